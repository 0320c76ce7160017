package diary

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/tomasmach/himekuri/sheets"
	"github.com/tomasmach/himekuri/store"
)

const (
	testBookID      = "user-data"
	testTemplatesID = "templates"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store, *sheets.MemStore, *fakeGen) {
	t.Helper()
	mem := sheets.NewMemStore()
	mem.Seed(testBookID, "UserInfoLog", []string{
		"user_id", "源氏名", "年代", "口調", "updated_at",
		"is_test_user", "ステータス", "status_updated_at", "店舗", "通知済み",
	})
	mem.Seed(testBookID, "FeedbackLog", []string{"user_id", "diary_type", "result", "timestamp", "diary_text"})
	mem.Seed(testBookID, "PremiumDiarySamples", []string{"user_id", "diary_type", "timestamp", "diary_text", "used_count"})
	mem.Seed(testBookID, "PremiumUserInfo", []string{
		"user_id", "emoji_list", "tone_tags", "ng_elements", "appeal_tags",
		"appeal_elements", "weekly_schedule", "fav_words", "other_requests", "store_name",
	})
	mem.Seed(testTemplatesID, "ShukkinTemplates", []string{"section", "text", "used_count"})
	mem.Seed(testTemplatesID, "TaikinTemplates", []string{"section", "text", "used_count"})
	mem.Seed(testTemplatesID, "OreiTemplates", []string{"section", "text", "used_count"})

	st := store.New(mem, testBookID, testTemplatesID)
	st.Now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	gen := &fakeGen{reply: "生成された日記"}
	e := NewEngine(st, gen)
	e.Rand = rand.New(rand.NewPCG(1, 2))
	return e, st, mem, gen
}

type fakeGen struct {
	system      string
	user        string
	temperature float64
	reply       string
	err         error
}

func (g *fakeGen) Generate(ctx context.Context, system, user string, temperature float64) (string, error) {
	g.system, g.user, g.temperature = system, user, temperature
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

// seedLiked appends n positively-rated diaries for the user in the category,
// numbered oldest to newest.
func seedLiked(t *testing.T, mem *sheets.MemStore, userID string, cat store.Category, n int) {
	t.Helper()
	tab, err := mem.OpenTable(context.Background(), testBookID, "FeedbackLog")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		ts := fmt.Sprintf("2025-06-01 10:%02d:00", i)
		text := fmt.Sprintf("liked-%d", i)
		if err := tab.Append(context.Background(), []string{userID, string(cat), "good", ts, text}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name string
		text string
		disp string
		want string
	}{
		{"san suffix", "みるくさん、今日もありがとう", "みるく", "お客様、今日もありがとう"},
		{"sama suffix", "みるく様のおかげです", "みるく", "お客様のおかげです"},
		{"bare name untouched", "みるくはがんばる", "みるく", "みるくはがんばる"},
		{"no display name", "みるくさんへ", "", "みるくさんへ"},
		{"idempotent", "お客様、今日もありがとう", "みるく", "お客様、今日もありがとう"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeAddress(tt.text, tt.disp); got != tt.want {
				t.Errorf("NormalizeAddress(%q, %q) = %q, want %q", tt.text, tt.disp, got, tt.want)
			}
		})
	}
}

func TestFreeReferenceUsesTemplatesBelowThreshold(t *testing.T) {
	e, _, mem, _ := newTestEngine(t)
	ctx := context.Background()

	tab := mem.Seed(testTemplatesID, "ShukkinTemplates", []string{"section", "text", "used_count"},
		[]string{"greeting", "おはよう！出勤したよ", "0"},
		[]string{"closing", "待ってるね", "0"},
	)
	seedLiked(t, mem, "U1", store.CategoryShukkin, 9)

	ref, err := e.freeReference(ctx, "U1", store.CategoryShukkin)
	if err != nil {
		t.Fatalf("freeReference: %v", err)
	}
	if strings.Contains(ref, "liked-") {
		t.Errorf("reference used liked history below threshold: %q", ref)
	}
	lines := strings.Split(ref, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d reference lines, want one per section: %q", len(lines), ref)
	}

	// Each picked snippet's usage counter was bumped.
	total := 0
	for i := 0; i < tab.Len(); i++ {
		if tab.Cell(i, 2) == "1" {
			total++
		}
	}
	if total != 2 {
		t.Errorf("%d usage counters bumped, want 2", total)
	}
}

func TestFreeReferenceSwitchesToLikedHistory(t *testing.T) {
	e, _, mem, _ := newTestEngine(t)
	ctx := context.Background()

	mem.Seed(testTemplatesID, "ShukkinTemplates", []string{"section", "text", "used_count"},
		[]string{"greeting", "テンプレ", "0"},
	)
	seedLiked(t, mem, "U1", store.CategoryShukkin, 10)

	ref, err := e.freeReference(ctx, "U1", store.CategoryShukkin)
	if err != nil {
		t.Fatalf("freeReference: %v", err)
	}
	if strings.Contains(ref, "テンプレ") {
		t.Errorf("templates leaked into liked-history reference: %q", ref)
	}
	lines := strings.Split(ref, "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want the 5 most recent: %q", len(lines), ref)
	}
	// Most recent first: liked-9 down to liked-5.
	for i, line := range lines {
		want := fmt.Sprintf("liked-%d", 9-i)
		if line != want {
			t.Errorf("line %d = %q, want %q", i, line, want)
		}
	}
}

func TestFreeReferenceGratitudeHybrid(t *testing.T) {
	e, _, mem, _ := newTestEngine(t)
	ctx := context.Background()

	mem.Seed(testTemplatesID, "OreiTemplates", []string{"section", "text", "used_count"},
		[]string{"s1", "tmpl-1", "0"},
		[]string{"s2", "tmpl-2", "0"},
		[]string{"s3", "tmpl-3", "0"},
		[]string{"s4", "tmpl-4", "0"},
	)
	seedLiked(t, mem, "U1", store.CategoryOrei, 10)

	ref, err := e.freeReference(ctx, "U1", store.CategoryOrei)
	if err != nil {
		t.Fatalf("freeReference: %v", err)
	}
	lines := strings.Split(ref, "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d hybrid lines, want 5: %q", len(lines), ref)
	}
	tmpl, liked := 0, 0
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "tmpl-"):
			tmpl++
		case strings.HasPrefix(line, "liked-"):
			liked++
		default:
			t.Errorf("unexpected hybrid line %q", line)
		}
	}
	if tmpl != 3 || liked != 2 {
		t.Errorf("hybrid mix = %d templates + %d liked, want 3 + 2", tmpl, liked)
	}
}

func TestPremiumReferenceSamplesAndCounts(t *testing.T) {
	e, st, mem, _ := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		if err := st.AppendDiarySample(ctx, "U1", store.CategoryShukkin, fmt.Sprintf("sample-%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	ref, err := e.premiumReference(ctx, "U1", store.CategoryShukkin)
	if err != nil {
		t.Fatalf("premiumReference: %v", err)
	}
	lines := strings.Split(ref, "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d sample lines, want 5: %q", len(lines), ref)
	}
	seen := make(map[string]bool)
	for _, l := range lines {
		if seen[l] {
			t.Errorf("sample %q picked twice", l)
		}
		seen[l] = true
	}

	// Exactly the picked samples had their counters bumped.
	tab, err := mem.OpenTable(ctx, testBookID, "PremiumDiarySamples")
	if err != nil {
		t.Fatal(err)
	}
	rows, err := tab.Rows(ctx)
	if err != nil {
		t.Fatal(err)
	}
	bumped := 0
	for _, r := range rows {
		if r.Get("used_count") == "1" {
			bumped++
			if !seen[r.Get("diary_text")] {
				t.Errorf("counter bumped for unpicked sample %q", r.Get("diary_text"))
			}
		}
	}
	if bumped != 5 {
		t.Errorf("%d counters bumped, want 5", bumped)
	}
}

func TestPremiumReferenceEmptyCorpus(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	ref, err := e.premiumReference(context.Background(), "U1", store.CategoryTaikin)
	if err != nil {
		t.Fatalf("premiumReference: %v", err)
	}
	if ref != "" {
		t.Errorf("reference = %q, want empty for empty corpus", ref)
	}
}

func TestGenerateFree(t *testing.T) {
	e, _, mem, gen := newTestEngine(t)
	ctx := context.Background()

	mem.Seed(testTemplatesID, "TaikinTemplates", []string{"section", "text", "used_count"},
		[]string{"bye", "今日はおしまい", "0"},
	)
	gen.reply = "みるくさん、ありがとう！また明日ね"

	profile := &store.PersonaProfile{UserID: "U1", DisplayName: "みるく", AgeBracket: "20代", Tone: "清楚系"}
	text, err := e.Generate(ctx, profile, store.CategoryTaikin, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "お客様、ありがとう！また明日ね" {
		t.Errorf("normalized output = %q", text)
	}
	if gen.system != systemPromptFree {
		t.Errorf("system prompt = %q", gen.system)
	}
	if gen.temperature != generationTemperature {
		t.Errorf("temperature = %v", gen.temperature)
	}
	for _, want := range []string{"みるく", "20代", "清楚系", "今日はおしまい"} {
		if !strings.Contains(gen.user, want) {
			t.Errorf("free prompt missing %q", want)
		}
	}
}

func TestGeneratePremium(t *testing.T) {
	e, st, _, gen := newTestEngine(t)
	ctx := context.Background()

	if err := st.SavePreferenceBundle(ctx, "U1", &store.PreferenceBundle{
		EmojiList: "💕", ToneTags: "甘め", FavWords: "えへへ", StoreName: "クラブ月",
	}); err != nil {
		t.Fatal(err)
	}
	if err := st.AppendDiarySample(ctx, "U1", store.CategoryShukkin, "自作の日記"); err != nil {
		t.Fatal(err)
	}

	profile := &store.PersonaProfile{
		UserID: "U1", DisplayName: "みるく", AgeBracket: "20代",
		Tone: "清楚系", PremiumApproved: true,
	}
	if _, err := e.Generate(ctx, profile, store.CategoryShukkin, "雨の日"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gen.system != systemPromptPremium {
		t.Errorf("system prompt = %q", gen.system)
	}
	for _, want := range []string{"💕", "甘め", "えへへ", "自作の日記", "雨の日"} {
		if !strings.Contains(gen.user, want) {
			t.Errorf("premium prompt missing %q", want)
		}
	}
}

func TestGenerateIncompleteProfile(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	_, err := e.Generate(context.Background(), &store.PersonaProfile{UserID: "U1"}, store.CategoryDiary, "")
	if err == nil {
		t.Fatal("expected error for incomplete profile")
	}
}

func TestGenerateKeywordsOnlyInPrompt(t *testing.T) {
	e, st, _, gen := newTestEngine(t)
	ctx := context.Background()

	if err := st.SavePreferenceBundle(ctx, "U1", &store.PreferenceBundle{}); err != nil {
		t.Fatal(err)
	}
	profile := &store.PersonaProfile{
		UserID: "U1", DisplayName: "みるく", AgeBracket: "20代",
		Tone: "清楚系", PremiumApproved: true,
	}

	if _, err := e.Generate(ctx, profile, store.CategoryDiary, ""); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if strings.Contains(gen.user, "【キーワード】") {
		t.Error("keyword section present for empty keywords")
	}
}
