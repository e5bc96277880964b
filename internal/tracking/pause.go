package tracking

// PauseLedger accumulates whole seconds spent paused across pause/resume
// cycles. A pause is open between BeginPause and EndPause.
type PauseLedger struct {
	cumulativeSeconds int64
	startedAtMillis   int64
	open              bool
}

// BeginPause opens a pause at nowMillis. It returns false and does nothing
// if a pause is already open.
func (l *PauseLedger) BeginPause(nowMillis int64) bool {
	if l.open {
		return false
	}
	l.startedAtMillis = nowMillis
	l.open = true
	return true
}

// EndPause closes the open pause at nowMillis and folds its length, floored
// to whole seconds, into the total. It returns false and does nothing if no
// pause is open.
func (l *PauseLedger) EndPause(nowMillis int64) bool {
	if !l.open {
		return false
	}
	if elapsed := nowMillis - l.startedAtMillis; elapsed > 0 {
		l.cumulativeSeconds += elapsed / 1000
	}
	l.startedAtMillis = 0
	l.open = false
	return true
}

// Reset zeroes the total and drops any open pause.
func (l *PauseLedger) Reset() {
	l.cumulativeSeconds = 0
	l.startedAtMillis = 0
	l.open = false
}

// PausedSeconds returns the total of all closed pauses.
func (l *PauseLedger) PausedSeconds() int64 {
	return l.cumulativeSeconds
}

// PauseStartedAt returns when the open pause began.
func (l *PauseLedger) PauseStartedAt() (int64, bool) {
	return l.startedAtMillis, l.open
}

// Open reports whether a pause is currently open.
func (l *PauseLedger) Open() bool {
	return l.open
}
