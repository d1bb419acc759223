// Package plan expands a parsed task into the ordered actions the robot
// carries out: fetches and places for situation tasks, moves and
// arrangements for step tasks.
package plan

import (
	"fmt"
	"strings"

	"github.com/cgast/atwork/pkg/taskspec"
)

// ActionKind is what the robot does at a location.
type ActionKind string

const (
	ActionFetch   ActionKind = "fetch"
	ActionPlace   ActionKind = "place"
	ActionMove    ActionKind = "move"
	ActionArrange ActionKind = "arrange"
	ActionPick    ActionKind = "pick"
)

// actionOrder fixes the order kinds appear in summaries.
var actionOrder = []ActionKind{ActionMove, ActionFetch, ActionPick, ActionArrange, ActionPlace}

// Action is one entry of the task list handed to the robot behaviours.
type Action struct {
	Kind         ActionKind           `json:"kind"`
	Role         taskspec.Role        `json:"role,omitempty"`
	Location     taskspec.Location    `json:"location,omitempty"`
	Orientation  taskspec.Orientation `json:"orientation,omitempty"`
	Seconds      int                  `json:"seconds,omitempty"`
	ObjectNames  []string             `json:"object_names,omitempty"`
	ObjectConfig string               `json:"object_config,omitempty"`
	Intent       string               `json:"intent"`
}

// Plan is the ordered task list derived from a parsed task.
type Plan struct {
	Task    taskspec.TaskType `json:"task"`
	Actions []Action          `json:"actions"`
	Summary string            `json:"summary"`
}

// Build expands a parsed task into robot actions. Transportation tasks
// yield fetch actions for the initial situation followed by place actions
// for the goal situation; sequence-based tasks yield one action per step.
func Build(task taskspec.Task) (Plan, error) {
	var (
		actions []Action
		err     error
	)
	switch task.Type {
	case taskspec.TransportationTest, taskspec.CompetitiveTransportationTest:
		actions, err = transportActions(task)
	case taskspec.NavigationTest:
		actions = navigationActions(task.Steps)
	case taskspec.ManipulationTest:
		actions = manipulationActions(task.Steps)
	case taskspec.PrecisionPlacementTest:
		actions, err = placementActions(task.Steps)
	default:
		return Plan{}, fmt.Errorf("plan: unsupported task type %q", task.Type)
	}
	if err != nil {
		return Plan{}, fmt.Errorf("plan %s: %w", task.Type, err)
	}

	return Plan{
		Task:    task.Type,
		Actions: actions,
		Summary: summarize(actions),
	}, nil
}

func transportActions(task taskspec.Task) ([]Action, error) {
	initial, ok := task.Situation(taskspec.SituationInitial)
	if !ok {
		return nil, fmt.Errorf("missing initial situation")
	}
	goal, ok := task.Situation(taskspec.SituationGoal)
	if !ok {
		return nil, fmt.Errorf("missing goal situation")
	}

	var actions []Action
	for _, p := range initial.Placements {
		actions = append(actions, placementAction(ActionFetch, p, "fetch object workspace"))
	}
	for _, p := range goal.Placements {
		actions = append(actions, placementAction(ActionPlace, p, "place object in workspace"))
	}
	return actions, nil
}

func placementAction(kind ActionKind, p taskspec.PlacementSpec, intent string) Action {
	return Action{
		Kind:         kind,
		Role:         p.Role,
		Location:     p.Location,
		Orientation:  p.Orientation,
		ObjectNames:  p.Objects,
		ObjectConfig: p.Configuration,
		Intent:       intent,
	}
}

func navigationActions(steps []taskspec.Step) []Action {
	actions := make([]Action, 0, len(steps))
	for _, s := range steps {
		actions = append(actions, Action{
			Kind:        ActionMove,
			Location:    s.Location,
			Orientation: s.Direction,
			Seconds:     s.Seconds,
			Intent:      fmt.Sprintf("reach %s facing %s and wait %ds", s.Location, s.Direction, s.Seconds),
		})
	}
	return actions
}

func manipulationActions(steps []taskspec.Step) []Action {
	actions := make([]Action, 0, len(steps))
	for _, s := range steps {
		if s.Kind == taskspec.StepConfiguration {
			actions = append(actions, Action{
				Kind:         ActionArrange,
				ObjectNames:  s.Objects,
				ObjectConfig: s.Configuration,
				Intent:       arrangeIntent(s),
			})
			continue
		}
		actions = append(actions, Action{
			Kind:     ActionMove,
			Location: s.Location,
			Intent:   fmt.Sprintf("move to %s", s.Location),
		})
	}
	return actions
}

func arrangeIntent(s taskspec.Step) string {
	if s.Configuration == "" {
		return fmt.Sprintf("arrange %d object(s)", len(s.Objects))
	}
	return fmt.Sprintf("arrange %d object(s) in %s", len(s.Objects), s.Configuration)
}

func placementActions(steps []taskspec.Step) ([]Action, error) {
	if len(steps) != 2 {
		return nil, fmt.Errorf("expected 2 locations, got %d", len(steps))
	}
	src, dst := steps[0].Location, steps[1].Location
	return []Action{
		{Kind: ActionPick, Role: taskspec.RoleSource, Location: src, Orientation: taskspec.InferOrientation(src), Intent: fmt.Sprintf("pick object at %s", src)},
		{Kind: ActionPlace, Role: taskspec.RoleDestination, Location: dst, Orientation: taskspec.InferOrientation(dst), Intent: fmt.Sprintf("place object precisely at %s", dst)},
	}, nil
}

func summarize(actions []Action) string {
	counts := make(map[ActionKind]int)
	for _, a := range actions {
		counts[a.Kind]++
	}
	var parts []string
	for _, k := range actionOrder {
		if n := counts[k]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, k))
		}
	}
	if len(parts) == 0 {
		return "no actions"
	}
	return strings.Join(parts, ", ") + " action(s)"
}
