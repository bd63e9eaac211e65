package domain

// Score applies the time-decay policy: full points up to 5s, 75% up to 10s,
// half after that. Incorrect answers score nothing.
func Score(elapsedSeconds float64, basePoints int, isCorrect bool) int {
	if !isCorrect {
		return 0
	}
	switch {
	case elapsedSeconds <= 5:
		return basePoints
	case elapsedSeconds <= 10:
		return basePoints * 3 / 4
	default:
		return basePoints / 2
	}
}
