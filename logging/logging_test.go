package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogger_Info(t *testing.T) {
	var buf bytes.Buffer
	log := New()
	log.SetOutput(&buf)

	log.Info("wait applied", map[string]interface{}{"provider": "openrouter"})

	out := buf.String()
	if !strings.Contains(out, "INFO") {
		t.Errorf("expected INFO level in output: %q", out)
	}
	if !strings.Contains(out, "wait applied") {
		t.Errorf("expected message in output: %q", out)
	}
	if !strings.Contains(out, "provider=openrouter") {
		t.Errorf("expected field in output: %q", out)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New()
	log.SetOutput(&buf)
	log.SetLevel(LevelWarn)

	log.Debug("hidden")
	log.Info("also hidden")
	log.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("expected filtered levels to be suppressed: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("expected warn output: %q", out)
	}
}

func TestLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	log := New()
	log.SetOutput(&buf)

	log.WithComponent("gate").Info("dispatch")

	if !strings.Contains(buf.String(), "[gate]") {
		t.Errorf("expected component tag in output: %q", buf.String())
	}
}

func TestLogger_SortedFields(t *testing.T) {
	var buf bytes.Buffer
	log := New()
	log.SetOutput(&buf)

	log.Info("msg", map[string]interface{}{"b": 2, "a": 1, "c": 3})

	out := buf.String()
	ai := strings.Index(out, "a=1")
	bi := strings.Index(out, "b=2")
	ci := strings.Index(out, "c=3")
	if ai < 0 || bi < 0 || ci < 0 || !(ai < bi && bi < ci) {
		t.Errorf("expected fields in sorted order: %q", out)
	}
}
