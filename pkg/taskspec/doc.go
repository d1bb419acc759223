// Package taskspec parses the task specification strings sent by the
// RoboCup@Work referee box.
//
// A specification starts with a three letter task type tag followed by a
// body in angle brackets:
//
//	BNT<(D,W,3),(S1,E,3),(EXIT,E,3)>
//	BMT<D1,D1,line(F20_20_B,R20,M20_100),D1>
//	BTT<initialsituation(<S1,(M20_100,S40_40_G)>);goalsituation(<D1,zigzag(M20_100,S40_40_G)>)>
//	CTT<initialsituation(...);goalsituation(...)>
//	PPT<S6,S5>
//
// Transportation tasks produce two situations (initial, goal) of placements;
// the other task types produce a flat list of steps. Parsing is pure and
// either returns a complete Task or a *ParseError.
package taskspec
