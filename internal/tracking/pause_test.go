package tracking

import "testing"

func TestPauseLedger_RoundTrip(t *testing.T) {
	t.Parallel()

	var l PauseLedger
	const t0 = int64(1_700_000_000_000)

	if !l.BeginPause(t0) {
		t.Fatal("expected BeginPause to succeed")
	}
	if !l.EndPause(t0 + 5000) {
		t.Fatal("expected EndPause to succeed")
	}
	if got := l.PausedSeconds(); got != 5 {
		t.Errorf("PausedSeconds = %d, want 5", got)
	}

	// A second EndPause without a BeginPause is a no-op.
	if l.EndPause(t0 + 9000) {
		t.Error("expected second EndPause to be a no-op")
	}
	if got := l.PausedSeconds(); got != 5 {
		t.Errorf("PausedSeconds after no-op = %d, want 5", got)
	}
}

func TestPauseLedger_BeginWhilePausedIsNoOp(t *testing.T) {
	t.Parallel()

	var l PauseLedger
	l.BeginPause(1000)
	if l.BeginPause(4000) {
		t.Error("expected BeginPause while paused to be a no-op")
	}

	started, open := l.PauseStartedAt()
	if !open || started != 1000 {
		t.Errorf("pause start = %d open=%v, want 1000 open=true", started, open)
	}

	l.EndPause(11_000)
	if got := l.PausedSeconds(); got != 10 {
		t.Errorf("PausedSeconds = %d, want 10", got)
	}
}

func TestPauseLedger_FloorsSubSecondFragments(t *testing.T) {
	t.Parallel()

	var l PauseLedger
	l.BeginPause(0)
	l.EndPause(1999)
	l.BeginPause(5000)
	l.EndPause(5999)

	if got := l.PausedSeconds(); got != 1 {
		t.Errorf("PausedSeconds = %d, want 1", got)
	}
}

func TestPauseLedger_NegativeSpanAddsNothing(t *testing.T) {
	t.Parallel()

	var l PauseLedger
	l.BeginPause(10_000)
	l.EndPause(2_000)

	if got := l.PausedSeconds(); got != 0 {
		t.Errorf("PausedSeconds = %d, want 0", got)
	}
	if l.Open() {
		t.Error("expected pause to be closed")
	}
}

func TestPauseLedger_Reset(t *testing.T) {
	t.Parallel()

	var l PauseLedger
	l.BeginPause(0)
	l.EndPause(3000)
	l.BeginPause(4000)
	l.Reset()

	if l.PausedSeconds() != 0 || l.Open() {
		t.Errorf("expected zeroed ledger, got %d seconds open=%v", l.PausedSeconds(), l.Open())
	}
	if _, open := l.PauseStartedAt(); open {
		t.Error("expected no pause start after reset")
	}
}
