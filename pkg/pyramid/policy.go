package pyramid

// LevelPolicy decides how many levels a pyramid has
type LevelPolicy interface {
	Levels(width, height, tileSize int) int
}

// FixedLevels always emits the same number of levels. With large sources
// the finest level may stay below native resolution.
type FixedLevels int

// Levels implements LevelPolicy
func (n FixedLevels) Levels(width, height, tileSize int) int {
	return int(n)
}

// DerivedLevels emits enough levels for the finest one to reach the source
// resolution: ceil(log2(max(w,h)/tileSize)) + 1, never less than one.
type DerivedLevels struct{}

// Levels implements LevelPolicy
func (DerivedLevels) Levels(width, height, tileSize int) int {
	if tileSize <= 0 {
		return 0
	}
	levels := 1
	for dim := float64(max(width, height)); dim > float64(tileSize); dim /= 2 {
		levels++
	}
	return levels
}

// PolicyByName resolves a policy from its configuration name. levels is
// used by the "fixed" policy only.
func PolicyByName(name string, levels int) (LevelPolicy, bool) {
	switch name {
	case "", "fixed":
		return FixedLevels(levels), true
	case "derived":
		return DerivedLevels{}, true
	}
	return nil, false
}
