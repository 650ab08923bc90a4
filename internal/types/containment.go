package types

type ContainmentLevel string

const (
	LevelStrict   ContainmentLevel = "strict"
	LevelStandard ContainmentLevel = "standard"
	LevelRelaxed  ContainmentLevel = "relaxed"
)

// Rank returns a numeric tier for comparison.
// Higher values mean tighter containment.
func (l ContainmentLevel) Rank() int {
	switch l {
	case LevelRelaxed:
		return 0
	case LevelStandard:
		return 1
	case LevelStrict:
		return 2
	default:
		return -1
	}
}

func ParseContainmentLevel(s string) (ContainmentLevel, bool) {
	switch ContainmentLevel(s) {
	case LevelStrict, LevelStandard, LevelRelaxed:
		return ContainmentLevel(s), true
	default:
		return "", false
	}
}
