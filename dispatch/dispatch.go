// Package dispatch turns one inbound message into exactly one reply. It
// owns the routing priority: dialog-start commands (with the cross-dialog
// guard), the cancel command, active-dialog steps, feedback, the premium
// keyword follow-up, and finally category-routed generation behind the
// free-tier usage gate.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tomasmach/himekuri/dialog"
	"github.com/tomasmach/himekuri/diary"
	"github.com/tomasmach/himekuri/store"
)

// Literal commands recognized by the dispatcher.
const (
	cmdRegister      = "情報を登録する"
	cmdPremiumStart  = "プレミアム登録"
	cmdDiaryAdd      = "日記追加"
	cmdPremiumCancel = "プレミアム設定キャンセル"
)

const (
	msgInternalError = "⚠️ 内部エラーが発生しました。"
	msgNoProfile     = "ユーザー情報が見つかりません。『情報を登録する』と送ってね♪"
	msgPremiumOnly   = "⚠️ この機能はプレミアムユーザー限定です。"
	msgKeywordAsk    = "📝 入れて欲しいキーワードや内容があれば、読点（、）で区切って教えてください♪"
	msgFeedbackDone  = "フィードバックありがとうございます！保存しました✨"
	msgCapReached    = "⚠️ 本日の無料分はこれでラストだよっ💦\n明日また会えるの楽しみにしてるねっ💕\n▶️ プレミアム登録すれば制限なしで使えるよ！"
	msgWelcome       = "はじめまして🌸 写メ日記作成ボットだよ♪\nまずは「情報を登録する」と送って、呼び方・年齢・口調を教えてね！\n登録がすんだら「出勤」「退勤」「お礼」って送るだけで日記を作るよ✨"
)

// artifact is the latest generated diary per user, kept only until the next
// generation overwrites it.
type artifact struct {
	category store.Category
	text     string
}

// Dispatcher routes inbound messages. All per-user ephemeral state (session
// steps aside, which live in dialog.Manager) is held here: the latest
// artifact and the pending keyword request.
type Dispatcher struct {
	sessions *dialog.Manager
	st       *store.Store
	engine   *diary.Engine

	dailyCap    int
	feedbackDir string

	mu             sync.Mutex
	userLocks      map[string]*sync.Mutex
	latest         map[string]artifact
	pendingKeyword map[string]store.Category
}

// New builds a Dispatcher. dailyCap is the free-tier generations per
// calendar day; feedbackDir is where rated diaries are bucketed on disk.
func New(sessions *dialog.Manager, st *store.Store, engine *diary.Engine, dailyCap int, feedbackDir string) *Dispatcher {
	return &Dispatcher{
		sessions:       sessions,
		st:             st,
		engine:         engine,
		dailyCap:       dailyCap,
		feedbackDir:    feedbackDir,
		userLocks:      make(map[string]*sync.Mutex),
		latest:         make(map[string]artifact),
		pendingKeyword: make(map[string]store.Category),
	}
}

// lockUser serializes whole turns per user. The platform does not guarantee
// delivery ordering, so concurrent handler invocations for one user must not
// interleave session transitions.
func (d *Dispatcher) lockUser(userID string) func() {
	d.mu.Lock()
	l, ok := d.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		d.userLocks[userID] = l
	}
	d.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// HandleFollow returns the welcome message for a user who just added the
// bot.
func (d *Dispatcher) HandleFollow(ctx context.Context, userID string) string {
	return msgWelcome
}

// HandleText handles one inbound text message and always returns exactly one
// reply. Errors from stores or the generator are logged and collapsed into
// the generic internal-error reply.
func (d *Dispatcher) HandleText(ctx context.Context, userID, text string) string {
	unlock := d.lockUser(userID)
	defer unlock()

	reply, err := d.handle(ctx, userID, strings.TrimSpace(text))
	if err != nil {
		slog.Error("message handling failed", "user_id", userID, "error", err)
		return msgInternalError
	}
	return reply
}

func (d *Dispatcher) handle(ctx context.Context, userID, text string) (string, error) {
	// Dialog-start commands, guarded against a different dialog already
	// running. Starting the same dialog again restarts it from step 0.
	switch text {
	case cmdRegister:
		if act := d.sessions.Active(userID); act != dialog.None && act != dialog.Registration {
			return collisionReply(act), nil
		}
		d.clearPendingKeyword(userID)
		return d.sessions.StartRegistration(userID), nil

	case cmdPremiumStart:
		if act := d.sessions.Active(userID); act != dialog.None && act != dialog.PremiumSetup {
			return collisionReply(act), nil
		}
		d.clearPendingKeyword(userID)
		return d.sessions.StartPremiumSetup(ctx, userID)

	case cmdDiaryAdd:
		if act := d.sessions.Active(userID); act != dialog.None && act != dialog.DiaryIntake {
			return collisionReply(act), nil
		}
		profile, err := d.st.Profile(ctx, userID)
		if err != nil {
			return "", err
		}
		if profile == nil || !profile.PremiumApproved {
			return msgPremiumOnly, nil
		}
		d.clearPendingKeyword(userID)
		return d.sessions.StartDiaryIntake(userID), nil

	case cmdPremiumCancel:
		return d.sessions.CancelPremiumSetup(ctx, userID)
	}

	// An active dialog consumes the message as its next answer.
	if d.sessions.Active(userID) != dialog.None {
		return d.sessions.HandleStep(ctx, userID, text)
	}

	if text == "👍" || text == "👎" {
		if reply, ok, err := d.recordFeedback(ctx, userID, text); err != nil {
			return "", err
		} else if ok {
			return reply, nil
		}
		// No artifact on file: fall through to normal handling.
	}

	profile, err := d.st.Profile(ctx, userID)
	if err != nil {
		return "", err
	}
	if !profile.Complete() {
		return msgNoProfile, nil
	}

	// One-shot keyword answer issued to approved users before generation.
	if cat, ok := d.popPendingKeyword(userID); ok {
		keywords := ""
		if profile.PremiumApproved {
			keywords = text
		}
		return d.generate(ctx, profile, cat, keywords)
	}

	cat := store.CategoryFromRequest(text)

	if profile.PremiumApproved {
		d.setPendingKeyword(userID, cat)
		return msgKeywordAsk, nil
	}

	count, err := d.st.UsageCount(ctx, userID)
	if err != nil {
		return "", err
	}
	if count >= d.dailyCap && !profile.TestUser {
		return msgCapReached, nil
	}
	return d.generate(ctx, profile, cat, "")
}

// generate runs one generation, records usage, and stores the artifact for
// feedback.
func (d *Dispatcher) generate(ctx context.Context, profile *store.PersonaProfile, cat store.Category, keywords string) (string, error) {
	text, err := d.engine.Generate(ctx, profile, cat, keywords)
	if err != nil {
		return "", err
	}
	if err := d.st.RecordUsage(ctx, profile.UserID); err != nil {
		// The diary is already generated; deliver it and log the miss.
		slog.Warn("record usage failed", "user_id", profile.UserID, "error", err)
	}
	d.setLatest(profile.UserID, artifact{category: cat, text: text})
	return "📝 生成された日記：\n" + text + "\n\n気に入ったら「👍」微妙なら「👎」で教えてね♪", nil
}

// recordFeedback persists the verdict on the latest artifact: a bucketed
// file on disk plus a feedback-log row. Returns ok=false when the user has
// no artifact to rate.
func (d *Dispatcher) recordFeedback(ctx context.Context, userID, verdict string) (string, bool, error) {
	art, ok := d.getLatest(userID)
	if !ok {
		return "", false, nil
	}
	result := store.FeedbackGood
	if verdict == "👎" {
		result = store.FeedbackBad
	}

	dir := filepath.Join(d.feedbackDir, result, userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("create feedback dir: %w", err)
	}
	name := fmt.Sprintf("%s_%s.txt", art.category, d.st.Now().Format("20060102_150405"))
	if err := os.WriteFile(filepath.Join(dir, name), []byte(art.text), 0o644); err != nil {
		return "", false, fmt.Errorf("write feedback file: %w", err)
	}

	if err := d.st.AppendFeedback(ctx, userID, art.category, result, art.text); err != nil {
		return "", false, err
	}
	return msgFeedbackDone, true, nil
}

func collisionReply(active dialog.Type) string {
	return fmt.Sprintf("⚠️ いま「%s」の途中です。先に進行中の質問に答えてね♪", active.Label())
}

func (d *Dispatcher) setLatest(userID string, a artifact) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.latest[userID] = a
}

func (d *Dispatcher) getLatest(userID string) (artifact, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.latest[userID]
	return a, ok
}

func (d *Dispatcher) setPendingKeyword(userID string, cat store.Category) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pendingKeyword[userID] = cat
}

// clearPendingKeyword drops a pending keyword request. A dialog start
// abandons the request; leaving it would swallow the user's next message
// after the dialog as a keyword answer for a long-forgotten category.
func (d *Dispatcher) clearPendingKeyword(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pendingKeyword, userID)
}

func (d *Dispatcher) popPendingKeyword(userID string) (store.Category, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cat, ok := d.pendingKeyword[userID]
	if ok {
		delete(d.pendingKeyword, userID)
	}
	return cat, ok
}
