// Package ledger records which deadline notifications have already gone out,
// so a milestone fires at most once even across restarts.
package ledger

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/yuduki/chartkeeper/internal/storefile"
)

// Ledger is the persisted set of sent notification keys. Marks accumulate in
// memory; Save writes the whole set out in one atomic batch at the end of a
// reconciliation pass. The set only ever grows — stale keys are never pruned.
type Ledger struct {
	mu   sync.Mutex
	path string
	sent map[string]string // key → ISO date the notification went out
}

// Key builds the notification key for a task title, its literal target-date
// string, and a milestone tag.
func Key(title, dateStr, tag string) string {
	return fmt.Sprintf("%s_%s_%s", title, dateStr, tag)
}

// Load opens the ledger backed by the given file. A missing, empty, or
// corrupt file starts the ledger empty.
func Load(path string) *Ledger {
	l := &Ledger{
		path: path,
		sent: make(map[string]string),
	}
	if _, err := storefile.Load(path, &l.sent); err != nil {
		log.Printf("[Ledger] %v, starting with an empty ledger", err)
		l.sent = make(map[string]string)
	}
	return l
}

// HasSent reports whether the key has already been marked.
func (l *Ledger) HasSent(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.sent[key]
	return ok
}

// MarkSent records the key with the date it fired. Marking an existing key
// again is a no-op; the original date is kept.
func (l *Ledger) MarkSent(key string, day time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.sent[key]; ok {
		return
	}
	l.sent[key] = day.Format("2006-01-02")
}

// Save atomically persists the current set.
func (l *Ledger) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return storefile.Save(l.path, l.sent)
}

// Len returns the number of recorded keys.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sent)
}
