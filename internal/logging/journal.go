// Package logging builds the diagnostic zap logger and keeps the user-facing
// activity journal shown next to the progress display.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

const journalTimestampLayout = "15:04:05"

// Entry is one timestamped journal line.
type Entry struct {
	Time    time.Time
	Message string
}

// String renders the entry as "[HH:MM:SS] message".
func (entry Entry) String() string {
	return fmt.Sprintf("[%s] %s", entry.Time.Format(journalTimestampLayout), entry.Message)
}

// Journal is the in-memory activity log. It is safe for concurrent use.
type Journal struct {
	lock    sync.Mutex
	entries []Entry
	clock   func() time.Time
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{clock: time.Now}
}

// WithClock replaces the time source.
func (journal *Journal) WithClock(clock func() time.Time) *Journal {
	journal.clock = clock
	return journal
}

// Add appends a message and returns the stored entry.
func (journal *Journal) Add(message string) Entry {
	journal.lock.Lock()
	defer journal.lock.Unlock()
	entry := Entry{Time: journal.clock(), Message: message}
	journal.entries = append(journal.entries, entry)
	return entry
}

// Entries returns a copy of the recorded entries.
func (journal *Journal) Entries() []Entry {
	journal.lock.Lock()
	defer journal.lock.Unlock()
	return append([]Entry(nil), journal.entries...)
}

// Clear drops every entry.
func (journal *Journal) Clear() {
	journal.lock.Lock()
	defer journal.lock.Unlock()
	journal.entries = nil
}

// Text renders all entries, one per line.
func (journal *Journal) Text() string {
	var builder strings.Builder
	for _, entry := range journal.Entries() {
		builder.WriteString(entry.String())
		builder.WriteByte('\n')
	}
	return builder.String()
}

// Save writes the journal to path.
func (journal *Journal) Save(path string) error {
	if err := os.WriteFile(path, []byte(journal.Text()), 0o644); err != nil {
		return fmt.Errorf("failed to save log: %w", err)
	}
	return nil
}
