// Package notify carries user-visible notifications out of the alignment core.
package notify

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Kind classifies a notification so callers can react to it without parsing messages.
type Kind string

const (
	KindMalformedSpan Kind = "malformed_span"
	KindAudioNotReady Kind = "audio_not_ready"
	KindEmptyEvidence Kind = "empty_evidence"
	KindFetchFailure  Kind = "fetch_failure"
	KindInference     Kind = "inference_failure"
	KindUnknown       Kind = "unknown_segment"
	KindProtocol      Kind = "protocol"
)

// Notification is a single message for the user.
type Notification struct {
	ID      string `json:"id"`
	Level   Level  `json:"level"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// New returns a notification with a fresh id.
func New(level Level, kind Kind, message string) Notification {
	return Notification{
		ID:      uuid.NewString(),
		Level:   level,
		Kind:    kind,
		Message: message,
	}
}

// Notifier receives notifications.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to the Notifier interface.
type Func func(n Notification)

// Notify calls f(n).
func (f Func) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Notifier = Func(func(Notification) {})

// LogNotifier writes notifications to a logrus logger.
type LogNotifier struct {
	log logrus.FieldLogger
}

// NewLogNotifier creates a notifier backed by log.
func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Notify logs n at a level matching its severity.
func (l *LogNotifier) Notify(n Notification) {
	entry := l.log.WithFields(logrus.Fields{
		"notification_id": n.ID,
		"kind":            n.Kind,
	})
	switch n.Level {
	case LevelError:
		entry.Error(n.Message)
	case LevelWarning:
		entry.Warn(n.Message)
	default:
		entry.Info(n.Message)
	}
}

// Recorder keeps every notification it receives.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// Notify records n.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Count returns how many notifications of kind were recorded.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, item := range r.items {
		if item.Kind == kind {
			n++
		}
	}
	return n
}

// Multi fans a notification out to several notifiers.
func Multi(notifiers ...Notifier) Notifier {
	return Func(func(n Notification) {
		for _, nt := range notifiers {
			nt.Notify(n)
		}
	})
}
