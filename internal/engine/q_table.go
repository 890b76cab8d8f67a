package engine

// qTable is a sparse action-value table. Rows appear the first time a state
// is read through get and are never evicted.
type qTable struct {
	data map[StateKey]map[Action]float64
}

func newQTable() *qTable {
	return &qTable{data: make(map[StateKey]map[Action]float64)}
}

func (q *qTable) row(s State) map[Action]float64 {
	key := s.key()
	row, ok := q.data[key]
	if !ok {
		row = make(map[Action]float64)
		q.data[key] = row
	}
	return row
}

// get returns the stored value, materializing a zero entry on first access.
func (q *qTable) get(s State, action Action) float64 {
	row := q.row(s)
	value, ok := row[action]
	if !ok {
		row[action] = 0
	}
	return value
}

// peek is get without the side effect.
func (q *qTable) peek(s State, action Action) float64 {
	return q.data[s.key()][action]
}

func (q *qTable) set(s State, action Action, value float64) {
	q.row(s)[action] = value
}

// maxValue is the best value among actions, or 0 when there are none.
func (q *qTable) maxValue(s State, actions []Action) float64 {
	if len(actions) == 0 {
		return 0
	}
	best := q.get(s, actions[0])
	for _, action := range actions[1:] {
		if v := q.get(s, action); v > best {
			best = v
		}
	}
	return best
}

func (q *qTable) len() int {
	return len(q.data)
}

func (q *qTable) snapshot() map[StateKey]map[Action]float64 {
	out := make(map[StateKey]map[Action]float64, len(q.data))
	for key, row := range q.data {
		copied := make(map[Action]float64, len(row))
		for action, value := range row {
			copied[action] = value
		}
		out[key] = copied
	}
	return out
}
