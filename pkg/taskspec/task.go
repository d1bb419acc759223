package taskspec

import (
	"fmt"
	"strings"
)

// TaskType identifies a referee test and selects the grammar its
// specification string follows. The value is the three letter tag that
// prefixes the string.
type TaskType string

const (
	NavigationTest                TaskType = "BNT"
	ManipulationTest              TaskType = "BMT"
	TransportationTest            TaskType = "BTT"
	CompetitiveTransportationTest TaskType = "CTT"
	PrecisionPlacementTest        TaskType = "PPT"
)

// TaskTypes lists every supported task type in a stable order.
var TaskTypes = []TaskType{
	NavigationTest,
	ManipulationTest,
	TransportationTest,
	CompetitiveTransportationTest,
	PrecisionPlacementTest,
}

var taskTypeNames = map[TaskType]string{
	NavigationTest:                "NavigationTest",
	ManipulationTest:              "ManipulationTest",
	TransportationTest:            "TransportationTest",
	CompetitiveTransportationTest: "CompetitiveTransportationTest",
	PrecisionPlacementTest:        "PrecisionPlacementTest",
}

// ParseTaskType accepts either the tag ("BTT") or the long name
// ("TransportationTest").
func ParseTaskType(s string) (TaskType, error) {
	if t := TaskType(strings.ToUpper(s)); t.Valid() {
		return t, nil
	}
	for t, name := range taskTypeNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return "", &ParseError{Kind: UnknownTaskType, Expected: "one of BNT, BMT, BTT, CTT, PPT", Received: s}
}

// Valid reports whether t is one of the supported task types.
func (t TaskType) Valid() bool {
	_, ok := taskTypeNames[t]
	return ok
}

// Name returns the long name of the task type.
func (t TaskType) Name() string {
	if name, ok := taskTypeNames[t]; ok {
		return name
	}
	return string(t)
}

// Role tells whether a placement is where objects are picked up or where
// they must end up.
type Role string

const (
	RoleSource      Role = "source"
	RoleDestination Role = "destination"
)

// SituationKind tags a situation as the initial or goal arrangement.
type SituationKind string

const (
	SituationInitial SituationKind = "initial"
	SituationGoal    SituationKind = "goal"
)

// PlacementSpec is the expected object set at one location.
type PlacementSpec struct {
	Role          Role        `json:"role"`
	Location      Location    `json:"location"`
	Orientation   Orientation `json:"orientation,omitempty"`
	Objects       []string    `json:"objects"`
	Configuration string      `json:"configuration,omitempty"` // "line", "zigzag" or empty for unordered
}

// Situation is an ordered list of placements. Order follows the source text.
type Situation struct {
	Kind       SituationKind   `json:"kind"`
	Placements []PlacementSpec `json:"placements"`
}

// StepKind discriminates the Step union.
type StepKind string

const (
	StepWaypoint      StepKind = "waypoint"      // navigation (LOC,DIR,SECONDS)
	StepLocation      StepKind = "location"      // bare location token
	StepConfiguration StepKind = "configuration" // config(OBJ,...)
)

// Step is one element of a sequence-based task. Only the fields relevant to
// Kind are set.
type Step struct {
	Kind          StepKind    `json:"kind"`
	Location      Location    `json:"location,omitempty"`
	Direction     Orientation `json:"direction,omitempty"`
	Seconds       int         `json:"seconds,omitempty"`
	Configuration string      `json:"configuration,omitempty"`
	Objects       []string    `json:"objects,omitempty"`
}

// String renders the step in referee notation.
func (s Step) String() string {
	switch s.Kind {
	case StepWaypoint:
		return fmt.Sprintf("(%s,%s,%d)", s.Location, s.Direction, s.Seconds)
	case StepConfiguration:
		return fmt.Sprintf("%s(%s)", s.Configuration, strings.Join(s.Objects, ","))
	default:
		return string(s.Location)
	}
}

// Task is the parsed form of a specification string. Situation-based task
// types fill Situations, sequence-based ones fill Steps; never both.
type Task struct {
	Type       TaskType    `json:"type"`
	Situations []Situation `json:"situations,omitempty"`
	Steps      []Step      `json:"steps,omitempty"`
}

// Situation returns the situation of the given kind.
func (t Task) Situation(kind SituationKind) (Situation, bool) {
	for _, s := range t.Situations {
		if s.Kind == kind {
			return s, true
		}
	}
	return Situation{}, false
}

// Placements returns all placements of all situations in order.
func (t Task) Placements() []PlacementSpec {
	var out []PlacementSpec
	for _, s := range t.Situations {
		out = append(out, s.Placements...)
	}
	return out
}
