package taskspec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Stage is how far the parser got through a specification string. A
// ParseError records the stage at which parsing stopped.
type Stage string

const (
	StageUnclassified      Stage = "unclassified"
	StagePrefixValidated   Stage = "prefix_validated"
	StageEnvelopeValidated Stage = "envelope_validated"
	StageSituationsSplit   Stage = "situations_split"
	StageInitialParsed     Stage = "initial_parsed"
	StageGoalParsed        Stage = "goal_parsed"
	StageAssembled         Stage = "assembled"
)

// grammar is the per task type configuration. Situation-based types list
// their situation fields; sequence-based types provide a step parser.
type grammar struct {
	situations  []situationRule
	orientation orientationPolicy
	steps       func(body string) ([]Step, error)
}

var grammars = map[TaskType]grammar{
	NavigationTest:   {steps: parseWaypoints},
	ManipulationTest: {steps: parseManipulationSteps},
	TransportationTest: {
		situations:  []situationRule{initialRule, goalRule},
		orientation: orientationOptional,
	},
	CompetitiveTransportationTest: {
		situations:  []situationRule{initialRule, goalRule},
		orientation: orientationRequired,
	},
	PrecisionPlacementTest: {steps: parsePlacementPair},
}

// Parse validates raw against the grammar of taskType and returns the
// structured task. On failure the zero Task and a *ParseError are returned.
// Parse keeps no state and is safe for concurrent use.
func Parse(taskType TaskType, raw string) (Task, error) {
	p := &parser{stage: StageUnclassified}
	task, err := p.parse(taskType, raw)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Stage = p.stage
		}
		return Task{}, err
	}
	return task, nil
}

// Reparse derives the task again from a specification string received
// earlier. It is Parse under another name for callers that cached the raw
// string.
func Reparse(taskType TaskType, raw string) (Task, error) {
	return Parse(taskType, raw)
}

// Classify reads the task type from the tag that starts raw.
func Classify(raw string) (TaskType, error) {
	text := TrimTrailingSpace(raw)
	for _, t := range TaskTypes {
		if strings.HasPrefix(text, string(t)) {
			return t, nil
		}
	}
	return "", &ParseError{
		Kind:     UnknownTaskType,
		Expected: "one of BNT, BMT, BTT, CTT, PPT",
		Received: head(text, 3),
		Position: "task type tag",
		Stage:    StageUnclassified,
	}
}

// ParseDetected classifies raw and parses it with the detected type.
func ParseDetected(raw string) (Task, error) {
	t, err := Classify(raw)
	if err != nil {
		return Task{}, err
	}
	return Parse(t, raw)
}

type parser struct {
	stage Stage
}

func (p *parser) parse(taskType TaskType, raw string) (Task, error) {
	g, ok := grammars[taskType]
	if !ok {
		return Task{}, parseErr(UnknownTaskType, "one of BNT, BMT, BTT, CTT, PPT", string(taskType), "declared task type")
	}

	text := TrimTrailingSpace(raw)
	prefix := string(taskType)
	if !strings.HasPrefix(text, prefix) {
		return Task{}, parseErr(PrefixMismatch, prefix, head(text, len(prefix)), "task type tag")
	}
	p.stage = StagePrefixValidated

	body, err := StripEnvelope(text, prefix)
	if err != nil {
		return Task{}, err
	}
	p.stage = StageEnvelopeValidated

	if g.situations == nil {
		steps, err := g.steps(body)
		if err != nil {
			return Task{}, err
		}
		p.stage = StageAssembled
		return Task{Type: taskType, Steps: steps}, nil
	}

	fields := SplitTopLevel(body, ';')
	if len(fields) != len(g.situations) {
		return Task{}, parseErr(WrongFieldCount, strconv.Itoa(len(g.situations)), strconv.Itoa(len(fields)), "situations separated by ;")
	}
	p.stage = StageSituationsSplit

	situations := make([]Situation, 0, len(fields))
	for i, rule := range g.situations {
		s, err := parseSituation(fields[i], rule, g.orientation)
		if err != nil {
			return Task{}, err
		}
		situations = append(situations, s)
		p.stage = rule.parsed
	}
	p.stage = StageAssembled
	return Task{Type: taskType, Situations: situations}, nil
}

// parseWaypoints parses "(LOC,DIR,SECONDS),(LOC,DIR,SECONDS),...".
func parseWaypoints(body string) ([]Step, error) {
	if err := checkBalanced(body, "navigation steps"); err != nil {
		return nil, err
	}
	items := SplitTopLevel(body, ',')
	steps := make([]Step, 0, len(items))
	for i, item := range items {
		position := fmt.Sprintf("step %d", i+1)
		if len(item) < 2 || item[0] != openParen || item[len(item)-1] != closeParen {
			return nil, parseErr(StepMalformed, "(LOCATION,DIRECTION,SECONDS)", item, position)
		}
		parts := SplitTopLevel(item[1:len(item)-1], ',')
		if len(parts) != 3 {
			return nil, parseErr(StepMalformed, "3 fields", item, position)
		}
		loc, err := parseWaypointLocation(parts[0], position)
		if err != nil {
			return nil, err
		}
		dir, err := ParseOrientation(parts[1])
		if err != nil {
			return nil, parseErr(StepMalformed, "direction N, E, S or W", parts[1], position)
		}
		secs, err := strconv.Atoi(parts[2])
		if err != nil || secs < 0 {
			return nil, parseErr(StepMalformed, "non-negative duration in seconds", parts[2], position)
		}
		steps = append(steps, Step{Kind: StepWaypoint, Location: loc, Direction: dir, Seconds: secs})
	}
	return steps, nil
}

// parseManipulationSteps parses a mix of bare locations and cfg(OBJ,...)
// groups, e.g. "D1,D1,line(F20_20_B,R20),D1".
func parseManipulationSteps(body string) ([]Step, error) {
	if err := checkBalanced(body, "manipulation steps"); err != nil {
		return nil, err
	}
	items := SplitTopLevel(body, ',')
	steps := make([]Step, 0, len(items))
	for i, item := range items {
		position := fmt.Sprintf("step %d", i+1)
		if strings.IndexByte(item, openParen) < 0 {
			loc, err := parsePlacementLocation(item, position)
			if err != nil {
				return nil, err
			}
			steps = append(steps, Step{Kind: StepLocation, Location: loc})
			continue
		}
		config, objects, err := parseObjectGroup(item, position)
		if err != nil {
			return nil, err
		}
		steps = append(steps, Step{Kind: StepConfiguration, Configuration: config, Objects: objects})
	}
	return steps, nil
}

// parsePlacementPair parses "SRC,DST".
func parsePlacementPair(body string) ([]Step, error) {
	items := SplitTopLevel(body, ',')
	if len(items) != 2 {
		return nil, parseErr(WrongFieldCount, "2", strconv.Itoa(len(items)), "locations separated by ,")
	}
	steps := make([]Step, 0, 2)
	for i, item := range items {
		loc, err := parsePlacementLocation(item, fmt.Sprintf("location %d", i+1))
		if err != nil {
			return nil, err
		}
		steps = append(steps, Step{Kind: StepLocation, Location: loc})
	}
	return steps, nil
}
