package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cgast/atwork/pkg/events"
	"github.com/cgast/atwork/pkg/plan"
	"github.com/cgast/atwork/pkg/refbox"
	"github.com/cgast/atwork/pkg/taskspec"
	"github.com/cgast/atwork/pkg/userdata"
)

// State names.
const (
	StateGetTask       = "get_task"
	StateReGetTask     = "re_get_task"
	StateBuildTaskList = "build_task_list"
)

// GetTask acquires a raw specification, keeps a copy and parses it.
type GetTask struct {
	Test    taskspec.TaskType
	Fetcher refbox.Fetcher
	Events  events.Publisher
	Logger  *slog.Logger
}

func (s *GetTask) Name() string { return StateGetTask }

func (s *GetTask) Execute(ctx context.Context, data userdata.Store) (Outcome, error) {
	if s.Fetcher == nil {
		return "", fmt.Errorf("no fetcher configured")
	}
	raw, err := s.Fetcher.FetchRawSpec(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch task specification: %w", err)
	}
	logger(s.Logger).Info("task specification", "spec", raw)
	publish(ctx, s.Events, events.EventSpecReceived, s.Name(), map[string]any{"spec": raw})

	if err := data.Set(userdata.ScopeTask, KeySpecCopy, raw); err != nil {
		return "", err
	}
	if err := data.Set(userdata.ScopeTask, KeyTest, s.Test); err != nil {
		return "", err
	}
	return parseInto(ctx, data, taskspec.Parse, s.Test, raw, s.Name(), s.Events, s.Logger)
}

// ReGetTask parses the stored specification copy again without contacting
// the referee box.
type ReGetTask struct {
	Test   taskspec.TaskType
	Events events.Publisher
	Logger *slog.Logger
}

func (s *ReGetTask) Name() string { return StateReGetTask }

func (s *ReGetTask) Execute(ctx context.Context, data userdata.Store) (Outcome, error) {
	var raw string
	if err := data.Get(userdata.ScopeTask, KeySpecCopy, &raw); err != nil {
		return "", fmt.Errorf("load specification copy: %w", err)
	}
	test := s.Test
	if test == "" {
		if err := data.Get(userdata.ScopeTask, KeyTest, &test); err != nil {
			return "", fmt.Errorf("load declared test: %w", err)
		}
	}
	return parseInto(ctx, data, taskspec.Reparse, test, raw, s.Name(), s.Events, s.Logger)
}

// parseFunc is taskspec.Parse or taskspec.Reparse.
type parseFunc func(taskspec.TaskType, string) (taskspec.Task, error)

// parseInto parses raw and stores the result, mapping format errors to
// OutcomeWrongTaskFormat. A rejection clears the parsed task and the task
// list of any earlier run.
func parseInto(ctx context.Context, data userdata.Store, parse parseFunc, test taskspec.TaskType, raw, state string, pub events.Publisher, l *slog.Logger) (Outcome, error) {
	task, err := parse(test, raw)
	if err != nil {
		var pe *taskspec.ParseError
		if !errors.As(err, &pe) {
			return "", err
		}
		logger(l).Warn("wrong task format", "test", test, "kind", string(pe.Kind), "position", pe.Position, "stage", pe.Stage)
		publish(ctx, pub, events.EventTaskRejected, state, pe)
		if err := data.Set(userdata.ScopeTask, KeyError, pe); err != nil {
			return "", err
		}
		for _, key := range []string{KeyParsed, KeyTaskList} {
			if err := data.Delete(userdata.ScopeTask, key); err != nil {
				return "", err
			}
		}
		return OutcomeWrongTaskFormat, nil
	}

	logger(l).Info("parsed task\n" + task.String())
	publish(ctx, pub, events.EventTaskParsed, state, task)
	if err := data.Set(userdata.ScopeTask, KeyParsed, task); err != nil {
		return "", err
	}
	if err := data.Delete(userdata.ScopeTask, KeyError); err != nil {
		return "", err
	}
	return OutcomeTaskReceived, nil
}

// BuildTaskList expands the stored task into the robot's action list.
type BuildTaskList struct {
	Events events.Publisher
	Logger *slog.Logger
}

func (s *BuildTaskList) Name() string { return StateBuildTaskList }

func (s *BuildTaskList) Execute(ctx context.Context, data userdata.Store) (Outcome, error) {
	var task taskspec.Task
	if err := data.Get(userdata.ScopeTask, KeyParsed, &task); err != nil {
		return "", fmt.Errorf("load parsed task: %w", err)
	}
	p, err := plan.Build(task)
	if err != nil {
		logger(s.Logger).Error("build task list", "error", err)
		return OutcomeFailed, nil
	}
	if err := data.Set(userdata.ScopeTask, KeyTaskList, p); err != nil {
		return "", err
	}
	logger(s.Logger).Info("task list built", "task", p.Task, "summary", p.Summary)
	publish(ctx, s.Events, events.EventTaskListBuilt, s.Name(), p)
	return OutcomeSucceeded, nil
}

// AcquireTask is the standard run: get the task, build its task list.
// A wrongly formatted specification ends the run with
// OutcomeWrongTaskFormat.
func AcquireTask(test taskspec.TaskType, f refbox.Fetcher, data userdata.Store, pub events.Publisher, l *slog.Logger) *Machine {
	return &Machine{
		States: []State{
			&GetTask{Test: test, Fetcher: f, Events: pub, Logger: l},
			&BuildTaskList{Events: pub, Logger: l},
		},
		Transitions: Transitions{
			StateGetTask: {
				OutcomeTaskReceived:    StateBuildTaskList,
				OutcomeWrongTaskFormat: "",
			},
			StateBuildTaskList: {
				OutcomeSucceeded: "",
				OutcomeFailed:    "",
			},
		},
		Start:  StateGetTask,
		Data:   data,
		Events: pub,
		Logger: l,
	}
}

// Reacquire reparses the stored copy and rebuilds the task list.
func Reacquire(test taskspec.TaskType, data userdata.Store, pub events.Publisher, l *slog.Logger) *Machine {
	return &Machine{
		States: []State{
			&ReGetTask{Test: test, Events: pub, Logger: l},
			&BuildTaskList{Events: pub, Logger: l},
		},
		Transitions: Transitions{
			StateReGetTask: {
				OutcomeTaskReceived:    StateBuildTaskList,
				OutcomeWrongTaskFormat: "",
			},
			StateBuildTaskList: {
				OutcomeSucceeded: "",
				OutcomeFailed:    "",
			},
		},
		Start:  StateReGetTask,
		Data:   data,
		Events: pub,
		Logger: l,
	}
}

// publish emits a state-level event stamped with the run ID carried by ctx.
func publish(ctx context.Context, pub events.Publisher, typ events.EventType, state string, data any) {
	if pub == nil {
		return
	}
	e := events.NewEvent(typ, data)
	e.RunID = RunIDFromContext(ctx)
	e.State = state
	pub.Publish(e)
}

func logger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}
