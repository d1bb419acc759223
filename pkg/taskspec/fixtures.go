package taskspec

import (
	"fmt"
	"strings"
)

// Fixtures are referee specifications used when running without a referee
// box, one per task type.
var Fixtures = map[TaskType]string{
	NavigationTest:                "BNT<(D,W,3),(S1,E,3),(T3,N,3),(S3,S,3),(T1,S,3),(D1,E,3),(S4,N,3),(S5,N,3),(T4,W,3),(T2,S,3),(S2,E,3),(EXIT,E,3)>",
	ManipulationTest:              "BMT<D1,D1,D1,line(F20_20_B,R20,M20_100),D1>",
	TransportationTest:            "BTT<initialsituation(<S1,(M20_100,S40_40_G)><S2,(F20_20_G,S40_40_B,F20_20_B)>);goalsituation(<S3,line(S40_40_G,F20_20_G)><D1,zigzag(F20_20_B,S40_40_B,M20_100)>)>",
	CompetitiveTransportationTest: "CTT<initialsituation(<S1,(M20_100,S40_40_G)><S2,(F20_20_G,S40_40_B,F20_20_B)>);goalsituation(<S3,line(S40_40_G,F20_20_G)><D1,zigzag(F20_20_B,S40_40_B,M20_100)>)>",
	PrecisionPlacementTest:        "PPT<S6,S5>",
}

// Fixture returns the fixture for t.
func Fixture(t TaskType) (string, error) {
	spec, ok := Fixtures[t]
	if !ok {
		return "", fmt.Errorf("no fixture for task type %q", t)
	}
	return spec, nil
}

// String renders the task for logs and terminals.
func (t Task) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", t.Type.Name(), t.Type)
	for _, s := range t.Situations {
		fmt.Fprintf(&b, "  %s situation:\n", s.Kind)
		if len(s.Placements) == 0 {
			b.WriteString("    (empty)\n")
		}
		for _, p := range s.Placements {
			fmt.Fprintf(&b, "    %s\n", p)
		}
	}
	for i, step := range t.Steps {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, step)
	}
	return strings.TrimRight(b.String(), "\n")
}

// String renders the placement as "S3 [destination, E] line(A, B)".
func (p PlacementSpec) String() string {
	tags := string(p.Role)
	if p.Orientation != OrientationNone {
		tags += ", " + string(p.Orientation)
	}
	return fmt.Sprintf("%s [%s] %s(%s)", p.Location, tags, p.Configuration, strings.Join(p.Objects, ", "))
}
