// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package audit records every rule-engine mutation as a durable,
// line-delimited trail, independent of the rule files themselves.
// Grounded on the teacher's internal/audit/logger.go event-struct-plus-
// google/uuid pattern.
package audit

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType names the kind of change being recorded.
type EventType string

const (
	EventRuleAdded     EventType = "rule_added"
	EventRuleRemoved   EventType = "rule_removed"
	EventRuleReplaced  EventType = "rule_replaced"
	EventRuleSkipped   EventType = "rule_skipped"
	EventPolicyChanged EventType = "policy_changed"
	EventLogToggled    EventType = "log_toggled"
	EventStarted       EventType = "started"
	EventStopped       EventType = "stopped"
	EventCommandFailed EventType = "command_failed"
)

// Severity classifies an event for downstream filtering.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Event is one audit record. Detail is a short human-readable summary;
// Fields carries the structured data (rule tuple, family, policy value)
// a consumer might want without re-parsing Detail.
type Event struct {
	ID        string         `json:"id"`
	Time      time.Time      `json:"time"`
	Type      EventType      `json:"type"`
	Severity  Severity       `json:"severity"`
	Detail    string         `json:"detail"`
	Fields    map[string]any `json:"fields,omitempty"`
	Err       string         `json:"error,omitempty"`
}

// Logger appends Events as JSON lines to an underlying writer. It is safe
// for concurrent use; the engine holds its own lock around mutations, but
// the audit trail is written independently so a future caller that emits
// events from multiple goroutines doesn't corrupt interleaved lines.
type Logger struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// New creates a Logger writing to w.
func New(w io.Writer) *Logger {
	return &Logger{w: w, now: time.Now}
}

// Record appends one event, assigning it a fresh ID and timestamp.
func (l *Logger) Record(typ EventType, sev Severity, detail string, fields map[string]any, err error) {
	if l == nil {
		return
	}
	ev := Event{
		ID:       uuid.NewString(),
		Time:     l.now(),
		Type:     typ,
		Severity: sev,
		Detail:   detail,
		Fields:   fields,
	}
	if err != nil {
		ev.Err = err.Error()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	enc := json.NewEncoder(l.w)
	_ = enc.Encode(ev) // a lost audit line is not worth aborting the mutation it describes
}

// Info is a convenience wrapper for SeverityInfo events with no error.
func (l *Logger) Info(typ EventType, detail string, fields map[string]any) {
	l.Record(typ, SeverityInfo, detail, fields, nil)
}

// Failure is a convenience wrapper for SeverityError events carrying err.
func (l *Logger) Failure(typ EventType, detail string, fields map[string]any, err error) {
	l.Record(typ, SeverityError, detail, fields, err)
}
