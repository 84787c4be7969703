// Package audit keeps the compliance-facing record of a screening run: one
// entry per processed item with the exact prompt, raw response, and decision,
// so any result can be reconstructed after the fact.
package audit

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"abstractscreen/internal/domain"
)

// Entry records everything about one item's trip through the pipeline,
// including attempts that exhausted retries.
type Entry struct {
	ReferenceID string         `json:"reference_id"`
	Prompt      string         `json:"prompt"`
	RawResponse string         `json:"raw_response"`
	Outcome     domain.Outcome `json:"outcome"`
	Reasoning   string         `json:"reasoning"`
	ModelID     string         `json:"model_id"`
	Timestamp   time.Time      `json:"timestamp"`
	Attempts    int            `json:"attempts"`

	// Flagged marks entries that need manual review: parse anomalies and
	// exclusions with inadequate reasoning.
	Flagged bool `json:"flagged,omitempty"`
}

// Log is an append-only audit trail, safe for concurrent appends from
// in-flight items. Its lifetime is scoped to one run; it is passed into the
// processor explicitly rather than living as ambient global state.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	sink    *json.Encoder
}

// NewLog creates an in-memory log.
func NewLog() *Log {
	return &Log{}
}

// NewLogWithSink additionally streams every entry to w as one JSON object
// per line, written under the same lock as the in-memory append.
func NewLogWithSink(w io.Writer) *Log {
	return &Log{sink: json.NewEncoder(w)}
}

// Append records one entry. Sink write failures are swallowed: the in-memory
// trail stays authoritative and a broken disk must not fail the item.
func (l *Log) Append(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	if l.sink != nil {
		_ = l.sink.Encode(e)
	}
}

// Entries returns a copy of the trail in append order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the number of recorded entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Flagged returns the entries marked for manual review.
func (l *Log) Flagged() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for _, e := range l.entries {
		if e.Flagged {
			out = append(out, e)
		}
	}
	return out
}
