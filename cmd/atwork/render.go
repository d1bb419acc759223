package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cgast/atwork/pkg/plan"
	"github.com/cgast/atwork/pkg/taskspec"
	"github.com/cgast/atwork/pkg/workflow"
)

var (
	colorGreen  = lipgloss.Color("#8ec07c")
	colorYellow = lipgloss.Color("#fabd2f")
	colorRed    = lipgloss.Color("#fb4934")
	colorBlue   = lipgloss.Color("#83a598")
	colorDim    = lipgloss.Color("#928374")
	colorHeader = lipgloss.Color("#fe8019")

	styleHeader = lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
	styleLabel  = lipgloss.NewStyle().Foreground(colorBlue)
	styleOK     = lipgloss.NewStyle().Foreground(colorGreen)
	styleWarn   = lipgloss.NewStyle().Foreground(colorYellow)
	styleErr    = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	styleDim    = lipgloss.NewStyle().Foreground(colorDim)
)

// renderer writes command results as styled text, plain text or JSON.
type renderer struct {
	w      io.Writer
	styled bool
	json   bool
}

func (a *app) renderer() renderer {
	return renderer{w: a.stdout, styled: a.styled(), json: a.jsonOut}
}

func (r renderer) style(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

func (r renderer) writeJSON(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r renderer) task(t taskspec.Task) error {
	if r.json {
		return r.writeJSON(t)
	}
	lines := strings.Split(t.String(), "\n")
	if len(lines) > 0 {
		lines[0] = r.style(styleHeader, lines[0])
	}
	for i := 1; i < len(lines); i++ {
		if strings.HasSuffix(lines[i], "situation:") {
			lines[i] = r.style(styleLabel, lines[i])
		}
	}
	_, err := fmt.Fprintln(r.w, strings.Join(lines, "\n"))
	return err
}

func (r renderer) plan(p plan.Plan) error {
	if r.json {
		return r.writeJSON(p)
	}
	fmt.Fprintln(r.w, r.style(styleHeader, "Task list")+" "+r.style(styleDim, "("+p.Summary+")"))
	for i, a := range p.Actions {
		kind := r.style(styleLabel, fmt.Sprintf("%-7s", a.Kind))
		fmt.Fprintf(r.w, "  %2d. %s %s\n", i+1, kind, a.Intent)
		if len(a.ObjectNames) > 0 {
			fmt.Fprintf(r.w, "      %s\n", r.style(styleDim, strings.Join(a.ObjectNames, ", ")))
		}
	}
	return nil
}

func (r renderer) parseError(err error) error {
	var pe *taskspec.ParseError
	if !errors.As(err, &pe) {
		return err
	}
	if r.json {
		if jerr := r.writeJSON(map[string]any{"error": pe}); jerr != nil {
			return jerr
		}
		return err
	}
	fmt.Fprintln(r.w, r.style(styleErr, "wrong task format")+": "+string(pe.Kind))
	if pe.Position != "" {
		fmt.Fprintf(r.w, "  position: %s\n", pe.Position)
	}
	fmt.Fprintf(r.w, "  expected: %s\n", pe.Expected)
	fmt.Fprintf(r.w, "  received: %q\n", pe.Received)
	fmt.Fprintf(r.w, "  stage:    %s\n", pe.Stage)
	return err
}

func (r renderer) run(res workflow.Result) error {
	if r.json {
		return r.writeJSON(res)
	}
	outcome := string(res.Outcome)
	switch res.Outcome {
	case workflow.OutcomeSucceeded, workflow.OutcomeTaskReceived:
		outcome = r.style(styleOK, outcome)
	case workflow.OutcomeWrongTaskFormat:
		outcome = r.style(styleWarn, outcome)
	default:
		outcome = r.style(styleErr, outcome)
	}
	fmt.Fprintf(r.w, "%s %s %s\n", r.style(styleHeader, "Run"), r.style(styleDim, res.RunID), outcome)
	for _, v := range res.Visits {
		fmt.Fprintf(r.w, "  %-16s %-18s %s\n", v.State, v.Outcome, r.style(styleDim, v.Duration.String()))
	}
	return nil
}
