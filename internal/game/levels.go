package game

// MaxLevel is the highest character level reachable through XP.
const MaxLevel = 100

// xpForLevel returns the total XP required to reach level n.
func xpForLevel(n int) int64 {
	if n <= 1 {
		return 0
	}
	k := int64(n - 1)
	return 1500 * k * k
}

// LevelForXP maps accumulated XP to a character level in [1, MaxLevel].
func LevelForXP(xp int64) int {
	lvl := 1
	for lvl < MaxLevel && xp >= xpForLevel(lvl+1) {
		lvl++
	}
	return lvl
}
