package engine

func manhattan(a, b Position) int {
	return absInt(a.X-b.X) + absInt(a.Y-b.Y)
}

// DistanceToGoal is the obstacle-blind Manhattan distance from pos to the goal.
func (e *Environment) DistanceToGoal(pos Position) int {
	return manhattan(pos, e.goal)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
