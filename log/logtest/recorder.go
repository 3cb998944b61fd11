/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"sync"
	"time"

	"github.com/ssgreg/logf"

	"github.com/wildcardbot/gatekeeper/log"
)

// RecordedEntry is a logged entry. Fields include the ones bound with With.
type RecordedEntry struct {
	Fields []log.Field
	Level  log.Level
	Time   time.Time
	Text   string
}

// FindField looks up a field of the entry by key.
func (re *RecordedEntry) FindField(key string) (log.Field, bool) {
	for _, field := range re.Fields {
		if field.Key == key {
			return field, true
		}
	}
	return log.Field{}, false
}

// Int64Field returns the value of an integer field such as user_id or update_id.
func (re *RecordedEntry) Int64Field(key string) (int64, bool) {
	field, ok := re.FindField(key)
	return field.Int, ok
}

// StringField returns the value of a string field.
func (re *RecordedEntry) StringField(key string) (string, bool) {
	field, ok := re.FindField(key)
	return string(field.Bytes), ok
}

// entries is shared by a Recorder and all loggers derived from it with With.
type entries struct {
	mu   sync.RWMutex
	list []RecordedEntry
}

//nolint:gocritic // logf.EntryWriter takes the entry by value.
func (e *entries) WriteEntry(entry logf.Entry) {
	recorded := RecordedEntry{
		Fields: append(append(make([]log.Field, 0, len(entry.DerivedFields)+len(entry.Fields)),
			entry.DerivedFields...), entry.Fields...),
		Level: levelOf(entry.Level),
		Time:  entry.Time,
		Text:  entry.Text,
	}
	e.mu.Lock()
	e.list = append(e.list, recorded)
	e.mu.Unlock()
}

func (e *entries) filter(accept func(RecordedEntry) bool) []RecordedEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var res []RecordedEntry
	for _, entry := range e.list {
		if accept(entry) {
			res = append(res, entry)
		}
	}
	return res
}

// Recorder is a log.FieldLogger that keeps entries of all levels in memory.
type Recorder struct {
	*log.LogfAdapter
	entries *entries
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	e := &entries{}
	return &Recorder{&log.LogfAdapter{Logger: logf.NewLogger(logf.LevelDebug, e)}, e}
}

// With returns a logger with additional fields whose entries are recorded by r.
func (r *Recorder) With(fs ...log.Field) log.FieldLogger {
	return &Recorder{r.LogfAdapter.With(fs...).(*log.LogfAdapter), r.entries}
}

// Entries returns all recorded entries.
func (r *Recorder) Entries() []RecordedEntry {
	return r.entries.filter(func(RecordedEntry) bool { return true })
}

// FindEntry returns the first entry with the given message.
func (r *Recorder) FindEntry(msg string) (RecordedEntry, bool) {
	found := r.entries.filter(func(e RecordedEntry) bool { return e.Text == msg })
	if len(found) == 0 {
		return RecordedEntry{}, false
	}
	return found[0], true
}

// FindAllEntries returns all entries accepted by filter.
func (r *Recorder) FindAllEntries(filter func(entry RecordedEntry) bool) []RecordedEntry {
	return r.entries.filter(filter)
}

// CountAtLevel returns the number of entries logged at the given level.
func (r *Recorder) CountAtLevel(level log.Level) int {
	return len(r.entries.filter(func(e RecordedEntry) bool { return e.Level == level }))
}

// Reset drops all recorded entries.
func (r *Recorder) Reset() {
	r.entries.mu.Lock()
	r.entries.list = nil
	r.entries.mu.Unlock()
}

func levelOf(l logf.Level) log.Level {
	switch l {
	case logf.LevelError:
		return log.LevelError
	case logf.LevelWarn:
		return log.LevelWarn
	case logf.LevelDebug:
		return log.LevelDebug
	default:
		return log.LevelInfo
	}
}
