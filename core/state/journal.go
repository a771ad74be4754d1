package state

// undoLog holds one reversal step per state mutation since the last commit.
// A snapshot is a position in the log; rewinding to it runs the steps above
// that position newest first.
type undoLog struct {
	steps []func(*StateDB)
}

func (u *undoLog) push(step func(*StateDB)) {
	u.steps = append(u.steps, step)
}

func (u *undoLog) mark() int { return len(u.steps) }

func (u *undoLog) rewind(s *StateDB, mark int) {
	for i := len(u.steps) - 1; i >= mark; i-- {
		u.steps[i](s)
		u.steps[i] = nil
	}
	u.steps = u.steps[:mark]
}

func (u *undoLog) clear() {
	u.steps = nil
}
