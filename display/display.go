// Package display renders conversation turns, tool interactions, and error
// scenarios for test logs and example binaries. Output is never truncated:
// full responses, full tool payloads, full error text. Truncated transcripts
// hide exactly the failures the logs exist to catch.
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// Separator widths, matched to the section they open.
const (
	majorWidth   = 80
	sectionWidth = 60
	minorWidth   = 40
)

// Printer writes formatted transcript sections to a single writer. Zero
// value is not usable; use New.
type Printer struct {
	w       io.Writer
	name    string
	verbose bool
	start   time.Time

	turns        int
	interactions int
}

// New creates a Printer writing to stdout.
func New(name string) *Printer {
	return NewWriter(name, os.Stdout)
}

// NewWriter creates a Printer writing to w.
func NewWriter(name string, w io.Writer) *Printer {
	return &Printer{
		w:       w,
		name:    name,
		verbose: true,
		start:   time.Now(),
	}
}

// SetVerbose toggles output. When off, every method is a no-op.
func (p *Printer) SetVerbose(v bool) {
	p.verbose = v
}

// Turns returns the highest conversation turn number rendered so far.
func (p *Printer) Turns() int {
	return p.turns
}

// Interactions returns the number of tool interactions rendered so far.
func (p *Printer) Interactions() int {
	return p.interactions
}

// Header opens a transcript with the printer's name and a description.
func (p *Printer) Header(description string) {
	if !p.verbose {
		return
	}
	p.rule("=", majorWidth)
	fmt.Fprintf(p.w, "%s\n", strings.ToUpper(p.name))
	fmt.Fprintf(p.w, "%s\n", description)
	fmt.Fprintf(p.w, "started: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	p.rule("=", majorWidth)
}

// ConversationTurn renders one user/agent exchange in full, followed by
// response metrics.
func (p *Printer) ConversationTurn(turn int, agent, userMsg, response string, context map[string]string) {
	if !p.verbose {
		return
	}
	p.turns = turn

	p.rule("=", majorWidth)
	fmt.Fprintf(p.w, "conversation turn %d (agent: %s)\n", turn, agent)
	p.rule("=", majorWidth)

	fmt.Fprintf(p.w, "user:\n  %s\n", userMsg)
	p.keyValues("context", context)

	fmt.Fprintf(p.w, "\n%s response:\n", agent)
	p.rule("-", majorWidth)
	fmt.Fprintln(p.w, response)
	p.rule("-", majorWidth)

	fmt.Fprintf(p.w, "response metrics:\n")
	fmt.Fprintf(p.w, "  characters: %d\n", len(response))
	fmt.Fprintf(p.w, "  lines: %d\n", strings.Count(response, "\n")+1)
	fmt.Fprintf(p.w, "  elapsed: %.2fs\n", time.Since(p.start).Seconds())
}

// ToolInteraction renders a complete tool call: input, output or error, and
// metrics. Structured outputs are rendered as indented JSON.
func (p *Printer) ToolInteraction(tool string, input map[string]interface{}, output interface{}, took time.Duration, err error) {
	if !p.verbose {
		return
	}
	p.interactions++

	p.rule("=", sectionWidth)
	fmt.Fprintf(p.w, "tool interaction #%d: %s\n", p.interactions, tool)
	p.rule("=", sectionWidth)

	fmt.Fprintln(p.w, "input:")
	for _, key := range sortedKeys(input) {
		fmt.Fprintf(p.w, "  %s: %v\n", key, input[key])
	}
	if took > 0 {
		fmt.Fprintf(p.w, "took: %.3fs\n", took.Seconds())
	}

	if err != nil {
		fmt.Fprintln(p.w, "\ntool error:")
		p.rule("-", minorWidth)
		fmt.Fprintln(p.w, err.Error())
		p.rule("-", minorWidth)
		fmt.Fprintf(p.w, "error length: %d characters\n", len(err.Error()))
		return
	}

	fmt.Fprintln(p.w, "\noutput:")
	p.rule("-", minorWidth)
	fmt.Fprintln(p.w, render(output))
	p.rule("-", minorWidth)
	fmt.Fprintf(p.w, "output length: %d characters\n", len(render(output)))
}

// ErrorScenario renders a failure in full, with optional trace and
// recovery note.
func (p *Printer) ErrorScenario(kind, message, trace, recovery string) {
	if !p.verbose {
		return
	}

	p.rule("=", majorWidth)
	fmt.Fprintf(p.w, "error scenario: %s (%s)\n", kind, time.Now().Format("15:04:05"))
	p.rule("=", majorWidth)

	fmt.Fprintln(p.w, "message:")
	p.rule("-", minorWidth)
	fmt.Fprintln(p.w, message)
	p.rule("-", minorWidth)

	if trace != "" {
		fmt.Fprintln(p.w, "\ntrace:")
		p.rule("-", minorWidth)
		fmt.Fprintln(p.w, trace)
		p.rule("-", minorWidth)
	}
	if recovery != "" {
		fmt.Fprintf(p.w, "\nrecovery: %s\n", recovery)
	}
}

// Summary closes a transcript with pass/fail counts and running totals.
func (p *Printer) Summary(total, passed, failed int) {
	if !p.verbose {
		return
	}

	p.rule("=", majorWidth)
	fmt.Fprintf(p.w, "summary: %s\n", p.name)
	p.rule("=", majorWidth)

	fmt.Fprintf(p.w, "total: %d  passed: %d  failed: %d\n", total, passed, failed)
	if total > 0 {
		fmt.Fprintf(p.w, "success rate: %.1f%%\n", float64(passed)/float64(total)*100)
	}
	fmt.Fprintf(p.w, "conversation turns: %d\n", p.turns)
	fmt.Fprintf(p.w, "tool interactions: %d\n", p.interactions)
	fmt.Fprintf(p.w, "elapsed: %.2fs\n", time.Since(p.start).Seconds())
}

func (p *Printer) rule(ch string, width int) {
	fmt.Fprintln(p.w, strings.Repeat(ch, width))
}

func (p *Printer) keyValues(label string, kv map[string]string) {
	if len(kv) == 0 {
		return
	}
	fmt.Fprintf(p.w, "\n%s:\n", label)
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(p.w, "  %s: %s\n", k, kv[k])
	}
}

// render formats structured values as indented JSON and everything else
// with %v.
func render(v interface{}) string {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		if data, err := json.MarshalIndent(v, "", "  "); err == nil {
			return string(data)
		}
	}
	return fmt.Sprintf("%v", v)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
