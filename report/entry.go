package report

import (
	"time"

	"github.com/multitest/report-harness/framework/opt"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// Entry is a record appended to a test case while it runs. The set of implementations is
// closed: AssertionEntry, LogEntry and AttachmentEntry.
type Entry interface {
	// EntryType is the type discriminator written to the interchange form.
	EntryType() string
	// Outcome is the entry's contribution to its case's status, if it has one.
	Outcome() opt.Maybe[bool]
	isEntry()
}

// Entry type names with a fixed meaning. Assertion and log entries may use any other name.
const (
	EntryTypeAssertion  = "RawAssertion"
	EntryTypeLog        = "Log"
	EntryTypeAttachment = "Attachment"
)

// AssertionEntry is a checked condition. Content holds whatever details the producing
// framework recorded and is not interpreted.
type AssertionEntry struct {
	Type        string
	Description string
	Passed      bool
	Content     ldvalue.Value
}

// LogEntry is a message with no outcome.
type LogEntry struct {
	Type        string
	Description string
	Message     string
	Level       string
}

// AttachmentEntry references a file produced by a test.
type AttachmentEntry struct {
	Description  string
	SourcePath   string
	OrigFilename string
	FileSize     int64
	Hash         string
}

// Assertion returns an AssertionEntry of the default type.
func Assertion(passed bool, description string) AssertionEntry {
	return AssertionEntry{Type: EntryTypeAssertion, Description: description, Passed: passed}
}

// Log returns a LogEntry of the default type.
func Log(message string) LogEntry {
	return LogEntry{Type: EntryTypeLog, Message: message}
}

func (e AssertionEntry) EntryType() string {
	if e.Type == "" {
		return EntryTypeAssertion
	}
	return e.Type
}

func (e AssertionEntry) Outcome() opt.Maybe[bool] { return opt.Some(e.Passed) }

func (e AssertionEntry) isEntry() {}

func (e LogEntry) EntryType() string {
	if e.Type == "" {
		return EntryTypeLog
	}
	return e.Type
}

func (e LogEntry) Outcome() opt.Maybe[bool] { return opt.None[bool]() }

func (e LogEntry) isEntry() {}

func (e AttachmentEntry) EntryType() string { return EntryTypeAttachment }

func (e AttachmentEntry) Outcome() opt.Maybe[bool] { return opt.None[bool]() }

func (e AttachmentEntry) isEntry() {}

// EntriesEqual compares two entries field by field.
func EntriesEqual(a, b Entry) bool {
	switch ea := a.(type) {
	case AssertionEntry:
		eb, ok := b.(AssertionEntry)
		return ok && ea.EntryType() == eb.EntryType() && ea.Description == eb.Description &&
			ea.Passed == eb.Passed && ea.Content.Equal(eb.Content)
	case LogEntry:
		eb, ok := b.(LogEntry)
		return ok && ea.EntryType() == eb.EntryType() && ea.Description == eb.Description &&
			ea.Message == eb.Message && ea.Level == eb.Level
	case AttachmentEntry:
		eb, ok := b.(AttachmentEntry)
		return ok && ea == eb
	default:
		return false
	}
}

func entryListsEqual(a, b []Entry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !EntriesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// LogRecord is a plan or group level log line.
type LogRecord struct {
	Time    time.Time
	Level   string
	Message string
}

func (r LogRecord) equal(other LogRecord) bool {
	return r.Time.Equal(other.Time) && r.Level == other.Level && r.Message == other.Message
}
