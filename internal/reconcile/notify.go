package reconcile

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/lherron/wrkboard/internal/domain"
)

const (
	// MessageMoveFailed is shown when persisting a move fails.
	MessageMoveFailed = "failed to move item"
	// MessageReloadFailed is shown when the recovery reload fails too.
	MessageReloadFailed = "failed to reload board"
)

// Notification is a user-facing failure report.
type Notification struct {
	BoardUUID string
	Message   string
	Err       error
}

// Notifier surfaces failures to the user.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier reports notifications through a logrus logger.
type LogNotifier struct {
	Logger *log.Logger
}

// Notify logs n at warning level, or error level for load failures.
func (l LogNotifier) Notify(n Notification) {
	if l.Logger == nil {
		return
	}
	entry := l.Logger.WithFields(log.Fields{
		"board": n.BoardUUID,
		"error": n.Err,
	})
	var loadErr *domain.LoadError
	if errors.As(n.Err, &loadErr) {
		entry.Error(n.Message)
		return
	}
	entry.Warn(n.Message)
}
