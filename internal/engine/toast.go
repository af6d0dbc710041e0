package engine

import (
	"github.com/google/uuid"

	"github.com/netopt/optiview/internal/models"
	"github.com/netopt/optiview/internal/telemetry"
)

// Notify creates a toast, renders the stack, and schedules its removal:
// the toast stays visible for the configured duration, then spends the exit
// window in the "exiting" state before disposal. Toasts are independent;
// duplicates are not suppressed and there is no queue.
func (e *Engine) Notify(kind models.ToastKind, title, message string) string {
	toast := models.ToastRecord{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Message:   message,
		CreatedAt: e.clock.Now(),
	}

	e.mu.Lock()
	e.toasts = append(e.toasts, toast)
	e.mu.Unlock()

	telemetry.RecordToast(kind)
	e.renderToasts()

	go e.expireToast(toast.ID)
	return toast.ID
}

func (e *Engine) expireToast(id string) {
	<-e.clock.After(e.cfg.ToastVisible)

	if e.markToastExiting(id) {
		e.renderToasts()
	}

	<-e.clock.After(e.cfg.ToastExit)

	if e.removeToast(id) {
		e.renderToasts()
	}
}

func (e *Engine) markToastExiting(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.toasts {
		if e.toasts[i].ID == id {
			e.toasts[i].Exiting = true
			return true
		}
	}
	return false
}

func (e *Engine) removeToast(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.toasts {
		if e.toasts[i].ID == id {
			e.toasts = append(e.toasts[:i], e.toasts[i+1:]...)
			return true
		}
	}
	return false
}
