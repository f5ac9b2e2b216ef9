package stage

import "fmt"

type State int

const (
	Idle State = iota
	Introducing
	AwaitingPick
	Resolving
	Resolved
	Failed
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Introducing:
		return "introducing"
	case AwaitingPick:
		return "awaiting-pick"
	case Resolving:
		return "resolving"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Strategy names the intro step that follows the overlap.
type Strategy string

const (
	Fan   Strategy = "fan"
	Grid  Strategy = "grid"
	Focus Strategy = "focus"
)

// ParseStrategy accepts "fan", "grid" or "focus". Empty means Fan.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(name); s {
	case "":
		return Fan, nil
	case Fan, Grid, Focus:
		return s, nil
	}
	return "", fmt.Errorf("unknown intro strategy %q", name)
}
