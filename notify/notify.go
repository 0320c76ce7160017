// Package notify runs the background poll that tells users their premium
// application was approved.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/tomasmach/himekuri/store"
)

const approvalMessage = "✅ プレミアム登録が承認されました！\n" +
	"いつでもプレミアム設定が反映された写メ日記を作れるよ✨\n" +
	"「出勤」「退勤」「お礼」って送ってね😊"

// Pusher sends a one-way message to a user.
type Pusher interface {
	Push(ctx context.Context, userID, text string) error
}

// Notifier polls for newly approved users and pushes the approval notice
// once per user.
type Notifier struct {
	st       *store.Store
	pusher   Pusher
	interval time.Duration
}

// New builds a Notifier polling at the given interval.
func New(st *store.Store, pusher Pusher, interval time.Duration) *Notifier {
	return &Notifier{st: st, pusher: pusher, interval: interval}
}

// Run polls until ctx is cancelled. Any single iteration's failure is
// logged and the loop keeps going.
func (n *Notifier) Run(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.RunOnce(ctx)
		}
	}
}

// RunOnce performs one sweep: find approved-but-unnotified users, push the
// notice, then set the notified flag. The flag write happens only after the
// push was attempted; a duplicate notification after a crash between the two
// is accepted rather than risking a silently lost one.
func (n *Notifier) RunOnce(ctx context.Context) {
	userIDs, err := n.st.NewlyApproved(ctx)
	if err != nil {
		slog.Error("approval sweep failed", "error", err)
		return
	}
	for _, userID := range userIDs {
		if err := n.pusher.Push(ctx, userID, approvalMessage); err != nil {
			slog.Error("approval push failed", "user_id", userID, "error", err)
			continue
		}
		if err := n.st.MarkNotified(ctx, userID); err != nil {
			slog.Error("mark notified failed", "user_id", userID, "error", err)
		}
	}
}
