package leveling

import "math"

// ComputeLevel maps accumulated experience to a level. Levels start at 1;
// an xp total sitting exactly on a threshold resolves to the higher level.
func ComputeLevel(xp, xpPerLevel int) int {
	if xpPerLevel < 1 || xp < 0 {
		return 1
	}
	return int(math.Sqrt(float64(xp)/float64(xpPerLevel))) + 1
}

// XPForLevel is the inverse of ComputeLevel: the total experience needed to
// enter the given level. Used for progress bars and "xp to next level".
func XPForLevel(level, xpPerLevel int) int {
	if level < 1 {
		return 0
	}
	return (level - 1) * (level - 1) * xpPerLevel
}
