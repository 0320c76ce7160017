package dialog

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tomasmach/himekuri/sheets"
	"github.com/tomasmach/himekuri/store"
)

const testBookID = "user-data"

func newTestManager(t *testing.T) (*Manager, *store.Store, *sheets.MemStore) {
	t.Helper()
	mem := sheets.NewMemStore()
	mem.Seed(testBookID, "UserInfoLog", []string{
		"user_id", "源氏名", "年代", "口調", "updated_at",
		"is_test_user", "ステータス", "status_updated_at", "店舗", "通知済み",
	})
	mem.Seed(testBookID, "PremiumDiarySamples", []string{"user_id", "diary_type", "timestamp", "diary_text", "used_count"})
	mem.Seed(testBookID, "PremiumUserInfo", []string{
		"user_id", "emoji_list", "tone_tags", "ng_elements", "appeal_tags",
		"appeal_elements", "weekly_schedule", "fav_words", "other_requests", "store_name",
	})

	st := store.New(mem, testBookID, "templates")
	st.Now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return NewManager(st), st, mem
}

func TestRegistrationFlow(t *testing.T) {
	m, st, _ := newTestManager(t)
	ctx := context.Background()

	q := m.StartRegistration("U1")
	if !strings.Contains(q, "①") {
		t.Errorf("first question = %q, want name question", q)
	}
	if m.Active("U1") != Registration {
		t.Fatalf("active = %v, want Registration", m.Active("U1"))
	}

	q, err := m.HandleStep(ctx, "U1", "みるく")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(q, "②") {
		t.Errorf("second question = %q", q)
	}

	q, err = m.HandleStep(ctx, "U1", "20代")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(q, "③") || !strings.Contains(q, "大人っぽ系") {
		t.Errorf("tone question = %q", q)
	}

	q, err = m.HandleStep(ctx, "U1", "3")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(q, "登録が完了しました") {
		t.Errorf("completion reply = %q", q)
	}
	if m.Active("U1") != None {
		t.Error("session not cleared after completion")
	}

	p, err := st.Profile(ctx, "U1")
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.DisplayName != "みるく" || p.AgeBracket != "20代" || p.Tone != "大人っぽ系" {
		t.Errorf("flushed profile = %+v", p)
	}
}

func TestRegistrationInvalidToneReprompts(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	m.StartRegistration("U1")
	if _, err := m.HandleStep(ctx, "U1", "みるく"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.HandleStep(ctx, "U1", "20代"); err != nil {
		t.Fatal(err)
	}

	for _, bad := range []string{"99", "0", "large", ""} {
		q, err := m.HandleStep(ctx, "U1", bad)
		if err != nil {
			t.Fatalf("HandleStep(%q): %v", bad, err)
		}
		if q != toneRetryMessage {
			t.Errorf("reply to %q = %q, want retry message", bad, q)
		}
		if m.Step("U1") != 2 {
			t.Errorf("step after %q = %d, want 2", bad, m.Step("U1"))
		}
	}

	// A valid pick still completes.
	q, err := m.HandleStep(ctx, "U1", "15")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(q, "登録が完了しました") {
		t.Errorf("completion reply = %q", q)
	}
}

func TestToneByNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"1", "甘えんぼ系", true},
		{"3", "大人っぽ系", true},
		{"15", "方言系（関西）", true},
		{" 2 ", "ギャル系", true},
		{"16", "", false},
		{"0", "", false},
		{"x", "", false},
	}
	for _, tt := range tests {
		got, ok := ToneByNumber(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ToneByNumber(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRestartDiscardsAnswers(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	m.StartRegistration("U1")
	if _, err := m.HandleStep(ctx, "U1", "みるく"); err != nil {
		t.Fatal(err)
	}
	if m.Step("U1") != 1 {
		t.Fatalf("step = %d, want 1", m.Step("U1"))
	}

	m.StartRegistration("U1")
	if m.Step("U1") != 0 {
		t.Errorf("step after restart = %d, want 0", m.Step("U1"))
	}
}

func TestPremiumSetupFlow(t *testing.T) {
	m, st, _ := newTestManager(t)
	ctx := context.Background()

	if err := st.SaveProfile(ctx, "U1", "みるく", "20代", "清楚系"); err != nil {
		t.Fatal(err)
	}

	q, err := m.StartPremiumSetup(ctx, "U1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(q, "【1/10】") {
		t.Errorf("intro reply = %q, want first question", q)
	}

	answers := []string{
		"💕🌙",
		"清楚、甘えん坊",
		"下品な言葉",
		"恥ずかしがり屋で可愛い",
		"色っぽさ",
		"金土メイン",
		"えへへ",
		"なし",
		"出勤がんばります\n\nありがとう、また来てね",
		"クラブ月",
	}
	var last string
	for i, a := range answers {
		last, err = m.HandleStep(ctx, "U1", a)
		if err != nil {
			t.Fatalf("answer %d: %v", i+1, err)
		}
		if i < len(answers)-1 {
			wantTag := fmt.Sprintf("【%d/10】", i+2)
			if !strings.Contains(last, wantTag) {
				t.Errorf("reply to answer %d = %q, want next question %s", i+1, last, wantTag)
			}
		}
	}
	if !strings.Contains(last, "プレミアム申請が完了しました") {
		t.Errorf("final reply = %q", last)
	}
	if m.Active("U1") != None {
		t.Error("session not cleared after completion")
	}

	b, err := st.PreferenceBundle(ctx, "U1")
	if err != nil {
		t.Fatal(err)
	}
	if b == nil || b.StoreName != "クラブ月" || b.ToneTags != "清楚、甘えん坊" {
		t.Errorf("flushed bundle = %+v", b)
	}

	// The sample blob was split and classified.
	shukkin, err := st.DiarySamples(ctx, "U1", store.CategoryShukkin)
	if err != nil {
		t.Fatal(err)
	}
	orei, err := st.DiarySamples(ctx, "U1", store.CategoryOrei)
	if err != nil {
		t.Fatal(err)
	}
	if len(shukkin) != 1 || len(orei) != 1 {
		t.Errorf("samples split as shukkin=%d orei=%d, want 1 and 1", len(shukkin), len(orei))
	}

	// The application is pending, not approved.
	p, err := st.Profile(ctx, "U1")
	if err != nil {
		t.Fatal(err)
	}
	if p.PremiumApproved {
		t.Error("completion must not self-approve")
	}
}

func TestPremiumSetupRejectsApprovedUser(t *testing.T) {
	m, _, mem := newTestManager(t)
	ctx := context.Background()

	mem.Seed(testBookID, "UserInfoLog", []string{
		"user_id", "源氏名", "年代", "口調", "updated_at",
		"is_test_user", "ステータス", "status_updated_at", "店舗", "通知済み",
	}, []string{"U1", "みるく", "20代", "清楚系", "", "", "承認済", "", "", ""})

	q, err := m.StartPremiumSetup(ctx, "U1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(q, "承認済み") {
		t.Errorf("reply = %q, want already-approved notice", q)
	}
	if m.Active("U1") != None {
		t.Error("approved user must not get a session")
	}
}

func TestCancelPremiumSetup(t *testing.T) {
	m, st, _ := newTestManager(t)
	ctx := context.Background()

	if err := st.SaveProfile(ctx, "U1", "みるく", "20代", "清楚系"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.StartPremiumSetup(ctx, "U1"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.HandleStep(ctx, "U1", "💕"); err != nil {
		t.Fatal(err)
	}

	q, err := m.CancelPremiumSetup(ctx, "U1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(q, "中止しました") {
		t.Errorf("cancel reply = %q", q)
	}
	if m.Active("U1") != None {
		t.Error("session not cleared on cancel")
	}
}

func TestDiaryIntakeFlow(t *testing.T) {
	m, st, _ := newTestManager(t)
	ctx := context.Background()

	q := m.StartDiaryIntake("U1")
	if !strings.Contains(q, "1.出勤") {
		t.Errorf("type question = %q", q)
	}

	// Invalid selector re-prompts without advancing.
	q, err := m.HandleStep(ctx, "U1", "4")
	if err != nil {
		t.Fatal(err)
	}
	if q != intakeTypeRetry {
		t.Errorf("reply to bad selector = %q", q)
	}
	if m.Step("U1") != 0 {
		t.Errorf("step after bad selector = %d, want 0", m.Step("U1"))
	}

	q, err = m.HandleStep(ctx, "U1", "2")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(q, "退勤日記モード") {
		t.Errorf("mode reply = %q", q)
	}

	// Two entries: one matches the orei keywords, one has no keyword and
	// falls back to the selected type.
	q, err = m.HandleStep(ctx, "U1", "ありがとう、楽しかった\n\n今日はこれでおしまい")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(q, "2件") {
		t.Errorf("completion reply = %q, want 2件", q)
	}
	if m.Active("U1") != None {
		t.Error("session not cleared after intake")
	}

	orei, err := st.DiarySamples(ctx, "U1", store.CategoryOrei)
	if err != nil {
		t.Fatal(err)
	}
	taikin, err := st.DiarySamples(ctx, "U1", store.CategoryTaikin)
	if err != nil {
		t.Fatal(err)
	}
	if len(orei) != 1 {
		t.Errorf("orei samples = %d, want 1 (keyword match overrides selection)", len(orei))
	}
	if len(taikin) != 1 {
		t.Errorf("taikin samples = %d, want 1 (fallback to selected type)", len(taikin))
	}
}
