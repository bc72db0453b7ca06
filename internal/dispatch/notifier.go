package dispatch

import "log/slog"

// Notifier is the toast surface: best-effort, never blocking the
// lifecycle machines on delivery.
type Notifier struct {
	WS  *WSRegistry
	Log *slog.Logger
}

func NewNotifier(ws *WSRegistry, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{WS: ws, Log: log}
}

// Notify pushes over WebSocket when the user is connected and falls
// back to a log line otherwise. Delivery failures are not retried;
// notifications are advisory.
func (n *Notifier) Notify(userID, title, body string) {
	if n.WS != nil {
		if err := n.WS.Push(userID, Event{Type: "toast", Title: title, Body: body}); err == nil {
			return
		}
	}
	n.Log.Info("notify", "user_id", userID, "title", title, "body", body)
}
