// Package notify carries user-facing notifications out of the service layer.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Level string

const (
	Success Level = "success"
	Error   Level = "error"
	Info    Level = "info"
	Warning Level = "warning"
)

type Notification struct {
	Level   Level     `json:"type"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, level Level, message string)
}

// Recorder collects the notifications raised while serving one request.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(_ context.Context, level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Notification{Level: level, Message: message, At: time.Now().UTC()})
}

// Drain returns the recorded notifications and resets the recorder.
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.items
	r.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

type ctxKey string

const recorderKey ctxKey = "notify.recorder"

func WithRecorder(ctx context.Context, r *Recorder) context.Context {
	return context.WithValue(ctx, recorderKey, r)
}

func RecorderFromContext(ctx context.Context) *Recorder {
	r, _ := ctx.Value(recorderKey).(*Recorder)
	return r
}

// Dispatcher logs every notification and forwards it to the request's
// Recorder when one is attached to the context.
type Dispatcher struct {
	logger *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{logger: logger.With("component", "notify")}
}

func (d *Dispatcher) Notify(ctx context.Context, level Level, message string) {
	d.logger.Debug("notification", "level", level, "message", message)
	if r := RecorderFromContext(ctx); r != nil {
		r.Notify(ctx, level, message)
	}
}
