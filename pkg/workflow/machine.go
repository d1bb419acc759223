// Package workflow runs the task acquisition states as a small state machine
// sharing a userdata.Store.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cgast/atwork/pkg/events"
	"github.com/cgast/atwork/pkg/userdata"
)

// Outcome names the edge a state leaves through.
type Outcome string

const (
	OutcomeTaskReceived    Outcome = "task_received"
	OutcomeWrongTaskFormat Outcome = "wrong_task_format"
	OutcomeSucceeded       Outcome = "succeeded"
	OutcomeFailed          Outcome = "failed"
)

// Userdata keys.
const (
	KeySpecCopy = "spec_copy" // ScopeTask: raw specification as received
	KeyTest     = "test"      // ScopeTask: declared task type
	KeyParsed   = "parsed"    // ScopeTask: taskspec.Task
	KeyError    = "error"     // ScopeTask: *taskspec.ParseError of the last rejection
	KeyTaskList = "task_list" // ScopeTask: plan.Plan
	KeyRunID    = "run_id"    // ScopeSession
)

// State is one step of a workflow.
type State interface {
	Name() string
	Execute(ctx context.Context, data userdata.Store) (Outcome, error)
}

// Transitions maps a state name and outcome to the next state name.
// An empty target ends the run with that outcome.
type Transitions map[string]map[Outcome]string

// Machine executes states starting at Start until a terminal transition.
type Machine struct {
	States      []State
	Transitions Transitions
	Start       string
	Data        userdata.Store
	Events      events.Publisher
	Logger      *slog.Logger

	// MaxSteps bounds the number of executed states; 0 means 64.
	MaxSteps int
}

// Visit records one executed state.
type Visit struct {
	State    string        `json:"state"`
	Outcome  Outcome       `json:"outcome"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Result holds the outcome of a run.
type Result struct {
	RunID   string  `json:"run_id"`
	Outcome Outcome `json:"outcome"`
	Visits  []Visit `json:"visits"`
}

type runIDKey struct{}

// ContextWithRunID returns a copy of ctx carrying the run ID. Run installs
// it before executing the first state.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run ID installed by Run, or "".
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// Run executes the machine once.
func (m *Machine) Run(ctx context.Context) (Result, error) {
	if m.Data == nil {
		return Result{}, fmt.Errorf("workflow: no userdata store configured")
	}
	byName := make(map[string]State, len(m.States))
	for _, s := range m.States {
		byName[s.Name()] = s
	}
	if _, ok := byName[m.Start]; !ok {
		return Result{}, fmt.Errorf("workflow: unknown start state %q", m.Start)
	}

	log := m.logger()
	res := Result{RunID: uuid.NewString()}
	log = log.With("run_id", res.RunID)
	if err := m.Data.Set(userdata.ScopeSession, KeyRunID, res.RunID); err != nil {
		return res, fmt.Errorf("workflow: store run id: %w", err)
	}

	ctx = ContextWithRunID(ctx, res.RunID)
	m.publish(res.RunID, "", events.EventWorkflowStart, map[string]any{"start": m.Start}, 0)
	log.Info("workflow started", "start", m.Start)

	limit := m.MaxSteps
	if limit <= 0 {
		limit = 64
	}

	current := m.Start
	for step := 0; ; step++ {
		if step >= limit {
			return m.fail(res, fmt.Errorf("workflow: exceeded %d steps at state %q", limit, current))
		}
		if err := ctx.Err(); err != nil {
			return m.fail(res, fmt.Errorf("workflow: %w", err))
		}

		state, ok := byName[current]
		if !ok {
			return m.fail(res, fmt.Errorf("workflow: transition to unknown state %q", current))
		}

		m.publish(res.RunID, current, events.EventStateEnter, nil, 0)
		start := time.Now()
		outcome, err := state.Execute(ctx, m.Data)
		visit := Visit{State: current, Outcome: outcome, Duration: time.Since(start)}
		if err != nil {
			visit.Error = err.Error()
			res.Visits = append(res.Visits, visit)
			log.Error("state failed", "state", current, "error", err)
			return m.fail(res, fmt.Errorf("workflow: state %s: %w", current, err))
		}
		res.Visits = append(res.Visits, visit)
		m.publish(res.RunID, current, events.EventStateExit, map[string]any{"outcome": outcome}, visit.Duration)
		log.Debug("state finished", "state", current, "outcome", outcome, "duration", visit.Duration)

		next, ok := m.Transitions[current][outcome]
		if !ok {
			return m.fail(res, fmt.Errorf("workflow: state %s has no transition for outcome %q", current, outcome))
		}
		if next == "" {
			res.Outcome = outcome
			break
		}
		current = next
	}

	m.record(res)
	m.publish(res.RunID, "", events.EventWorkflowEnd, map[string]any{"outcome": res.Outcome}, 0)
	log.Info("workflow finished", "outcome", res.Outcome, "states", len(res.Visits))
	return res, nil
}

func (m *Machine) fail(res Result, err error) (Result, error) {
	res.Outcome = OutcomeFailed
	m.record(res)
	m.publish(res.RunID, "", events.EventWorkflowEnd, map[string]any{
		"outcome": res.Outcome,
		"error":   err.Error(),
	}, 0)
	return res, err
}

// record appends the run to the history scope; failures only log.
func (m *Machine) record(res Result) {
	if err := m.Data.Set(userdata.ScopeHistory, res.RunID, res); err != nil {
		m.logger().Warn("record run history", "run_id", res.RunID, "error", err)
	}
}

func (m *Machine) publish(runID, state string, typ events.EventType, data any, d time.Duration) {
	if m.Events == nil {
		return
	}
	e := events.NewEvent(typ, data)
	e.RunID = runID
	e.State = state
	e.Duration = d
	m.Events.Publish(e)
}

func (m *Machine) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
