// Package dashboard coordinates the live map state of a dashboard session:
// viewport, suggestion search, pinned locations, the node feed, route planning
// and pin placement.
//
// Components are safe for concurrent use. None of them holds a lock across a
// network call.
package dashboard

import (
	"github.com/rs/zerolog"
)

// Level is the severity of a transient notification.
type Level string

// Notification levels.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a transient message shown to the user.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier receives transient notifications.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a notifier that logs every notification.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notifications").Logger()}
}

// Notify logs n at a level matching its severity.
func (l *LogNotifier) Notify(n Notification) {
	var event *zerolog.Event
	switch n.Level {
	case LevelError:
		event = l.logger.Error()
	case LevelWarning:
		event = l.logger.Warn()
	default:
		event = l.logger.Info()
	}
	event.Str("level_name", string(n.Level)).Msg(n.Message)
}

func notify(n Notifier, level Level, msg string) {
	if n == nil {
		return
	}
	n.Notify(Notification{Level: level, Message: msg})
}
