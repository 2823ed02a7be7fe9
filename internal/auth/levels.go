package auth

// AccessLevel represents a user access tier.
type AccessLevel string

const (
	LevelViewer    AccessLevel = "viewer"
	LevelTechnical AccessLevel = "technical"
)

// NormalizeAccessLevel validates and normalizes an access level string.
func NormalizeAccessLevel(value string) (AccessLevel, bool) {
	switch AccessLevel(value) {
	case LevelViewer, LevelTechnical:
		return AccessLevel(value), true
	default:
		return "", false
	}
}

// LevelAtLeast returns true when level satisfies the required level.
func LevelAtLeast(level AccessLevel, required AccessLevel) bool {
	return levelRank(level) >= levelRank(required)
}

func levelRank(level AccessLevel) int {
	switch level {
	case LevelViewer:
		return 1
	case LevelTechnical:
		return 2
	default:
		return 0
	}
}
