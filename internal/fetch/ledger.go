package fetch

import (
	"sync"
	"time"
)

// ledgerWindow is how much call history the ledger retains.
const ledgerWindow = time.Hour

type callRecord struct {
	at    time.Time
	calls int
}

// Ledger is a per-source sliding-window record of recent call
// volumes. It is an observability and self-throttling signal, not a
// hard limiter: recorded volumes are best-effort estimates.
type Ledger struct {
	mu      sync.Mutex
	history map[string][]callRecord
	now     func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{
		history: make(map[string][]callRecord),
		now:     time.Now,
	}
}

// Record notes that roughly calls API calls were just made against
// source, and prunes anything older than the window.
func (l *Ledger) Record(source string, calls int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-ledgerWindow)

	kept := l.history[source][:0]
	for _, rec := range l.history[source] {
		if rec.at.After(cutoff) {
			kept = append(kept, rec)
		}
	}
	l.history[source] = append(kept, callRecord{at: now, calls: calls})
}

// CallsInWindow returns the estimated call volume against source over
// the trailing hour.
func (l *Ledger) CallsInWindow(source string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-ledgerWindow)
	total := 0
	for _, rec := range l.history[source] {
		if rec.at.After(cutoff) {
			total += rec.calls
		}
	}
	return total
}
