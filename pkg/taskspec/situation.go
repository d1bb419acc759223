package taskspec

import (
	"fmt"
	"strings"
)

// situationRule describes one ';'-separated field of a situation-based
// task: the label it must start with and how its placements are tagged.
type situationRule struct {
	label  string
	kind   SituationKind
	role   Role
	parsed Stage
}

var (
	initialRule = situationRule{label: "initialsituation", kind: SituationInitial, role: RoleSource, parsed: StageInitialParsed}
	goalRule    = situationRule{label: "goalsituation", kind: SituationGoal, role: RoleDestination, parsed: StageGoalParsed}
)

type orientationPolicy int

const (
	orientationIgnored orientationPolicy = iota
	orientationOptional
	orientationRequired
)

// parseSituation parses "label(<LOC,cfg(OBJ,...)><...>)". The parentheses
// around the entry list are optional; everything inside them must be <...>
// entries.
func parseSituation(field string, rule situationRule, policy orientationPolicy) (Situation, error) {
	if !strings.HasPrefix(field, rule.label) {
		return Situation{}, parseErr(SectionLabelMismatch, rule.label, head(field, len(rule.label)), string(rule.kind)+" situation")
	}
	body := field[len(rule.label):]
	if err := checkBalanced(body, rule.label); err != nil {
		return Situation{}, err
	}
	if len(body) > 0 && body[0] == openParen && matchingClose(body, 0) == len(body)-1 {
		body = body[1 : len(body)-1]
	}

	sit := Situation{Kind: rule.kind, Placements: []PlacementSpec{}}
	consumed := 0
	for entry := range FindBracketed(body, openAngle, closeAngle) {
		position := fmt.Sprintf("%s entry %d", rule.label, len(sit.Placements)+1)
		p, err := parsePlacement(entry, rule.role, policy, position)
		if err != nil {
			return Situation{}, err
		}
		sit.Placements = append(sit.Placements, p)
		consumed += len(entry) + 2
	}
	if consumed != len(body) {
		return Situation{}, parseErr(EnvelopeMismatch, "only <...> entries", excerpt(body), rule.label)
	}
	return sit, nil
}

func parsePlacement(entry string, role Role, policy orientationPolicy, position string) (PlacementSpec, error) {
	token, remainder, _ := strings.Cut(entry, ",")
	loc, err := parsePlacementLocation(token, position)
	if err != nil {
		return PlacementSpec{}, err
	}
	config, objects, err := parseObjectGroup(remainder, position)
	if err != nil {
		return PlacementSpec{}, err
	}

	p := PlacementSpec{
		Role:          role,
		Location:      loc,
		Objects:       objects,
		Configuration: config,
	}
	if policy != orientationIgnored {
		p.Orientation = InferOrientation(loc)
		if p.Orientation == OrientationNone && policy == orientationRequired {
			return PlacementSpec{}, parseErr(UnmappedOrientation, "location starting with D or S", string(loc), position)
		}
	}
	return p, nil
}

// parseObjectGroup splits "cfg(OBJ,OBJ)" into the configuration tag and the
// alias-resolved object codes. The group must close the text.
func parseObjectGroup(text, position string) (string, []string, error) {
	open := strings.IndexByte(text, openParen)
	if open < 0 {
		return "", nil, parseErr(MissingObjectGroup, "object list in (...)", excerpt(text), position)
	}
	if matchingClose(text, open) != len(text)-1 {
		return "", nil, parseErr(MissingObjectGroup, "single (...) group closing the entry", excerpt(text), position)
	}
	config := text[:open]
	if !isWord(config) {
		return "", nil, parseErr(MissingObjectGroup, "configuration name before (...)", config, position)
	}

	inner := text[open+1 : len(text)-1]
	if inner == "" {
		return "", nil, parseErr(EmptyObjectList, "at least one object", "()", position)
	}
	tokens := SplitTopLevel(inner, ',')
	for i, t := range tokens {
		if t == "" {
			return "", nil, parseErr(EmptyObjectList, "non-empty object code", inner, fmt.Sprintf("%s object %d", position, i+1))
		}
		if hasSpace(t) {
			return "", nil, parseErr(ObjectTokenMalformed, "object code without whitespace", t, fmt.Sprintf("%s object %d", position, i+1))
		}
	}
	return config, resolveAll(tokens), nil
}

func isWord(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || isDigit(c) || c == '_') {
			return false
		}
	}
	return true
}
