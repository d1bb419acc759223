package taskspec

import "fmt"

// Zone is the area class encoded by the leading letter of a location code.
type Zone string

const (
	ZoneShelf       Zone = "shelf"
	ZoneDestination Zone = "destination"
	ZoneTable       Zone = "table"
	ZoneExit        Zone = "exit"
)

var zonesByLetter = map[byte]Zone{
	'S': ZoneShelf,
	'D': ZoneDestination,
	'T': ZoneTable,
}

// ExitToken is the navigation sentinel for leaving the arena.
const ExitToken = "EXIT"

// Orientation is a facing direction at a location.
type Orientation string

const (
	OrientationNone  Orientation = ""
	OrientationNorth Orientation = "N"
	OrientationEast  Orientation = "E"
	OrientationSouth Orientation = "S"
	OrientationWest  Orientation = "W"
)

// ParseOrientation accepts one of the compass letters N, E, S, W.
func ParseOrientation(s string) (Orientation, error) {
	switch o := Orientation(s); o {
	case OrientationNorth, OrientationEast, OrientationSouth, OrientationWest:
		return o, nil
	}
	return OrientationNone, fmt.Errorf("unknown orientation %q", s)
}

// dockingOrientation is the side the base docks from, keyed by zone letter.
var dockingOrientation = map[byte]Orientation{
	'D': OrientationWest,
	'S': OrientationEast,
}

// Location is a workspace location code such as S1, D1 or T3.
type Location string

// Zone returns the zone of the location, or "" for an unknown letter.
func (l Location) Zone() Zone {
	if l == ExitToken {
		return ZoneExit
	}
	if l == "" {
		return ""
	}
	return zonesByLetter[l[0]]
}

// InferOrientation returns the docking orientation implied by the leading
// character of a location code: D locations face west, S locations face east.
// Any other leading character yields OrientationNone.
func InferOrientation(code Location) Orientation {
	if code == "" {
		return OrientationNone
	}
	return dockingOrientation[code[0]]
}

// parsePlacementLocation validates the two character form used in
// situations, manipulation and precision placement tasks.
func parsePlacementLocation(token, position string) (Location, error) {
	if len(token) != 2 || zonesByLetter[token[0]] == "" || !isDigit(token[1]) {
		return "", parseErr(LocationTokenMalformed, "zone letter (S, D, T) followed by a digit", token, position)
	}
	return Location(token), nil
}

// parseWaypointLocation validates navigation locations, which may omit the
// digit (the referee sends a bare "D") or be the EXIT sentinel.
func parseWaypointLocation(token, position string) (Location, error) {
	if token == ExitToken {
		return ExitToken, nil
	}
	switch len(token) {
	case 1:
		if zonesByLetter[token[0]] != "" {
			return Location(token), nil
		}
	case 2:
		return parsePlacementLocation(token, position)
	}
	return "", parseErr(LocationTokenMalformed, "zone letter with optional digit, or EXIT", token, position)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
