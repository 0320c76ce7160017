package dialog

import (
	"context"
	"fmt"
	"strings"
)

// toneOptions maps the numeric tone selector to the fifteen style labels.
// Order matters: the question lists them 1–15.
var toneOptions = []string{
	"甘えんぼ系",
	"ギャル系",
	"大人っぽ系",
	"ロリ系・妹系",
	"サバサバ系",
	"丁寧系",
	"しっかり真面目系",
	"ふんわり癒し系",
	"学園系・初心者風",
	"お姉さん系",
	"かっこいい系",
	"エステ・スパ風",
	"ドM系",
	"清楚系",
	"方言系（関西）",
}

// ToneByNumber resolves a numeric tone selection ("1"–"15") to its label.
func ToneByNumber(s string) (string, bool) {
	for i, label := range toneOptions {
		if strings.TrimSpace(s) == fmt.Sprintf("%d", i+1) {
			return label, true
		}
	}
	return "", false
}

const (
	regKeyName = "name"
	regKeyAge  = "age_range"
	regKeyTone = "tone"
)

var registrationSteps = []string{regKeyName, regKeyAge, regKeyTone}

func registrationQuestion(key string) string {
	switch key {
	case regKeyName:
		return "① 自分の呼び方を教えてね♪（日記で自分の名前を書く時の表現だよ）"
	case regKeyAge:
		return "② お店での設定年齢（プロフィール上の年齢）を教えてね♪"
	case regKeyTone:
		var b strings.Builder
		b.WriteString("③ 自分のキャラの雰囲気を番号で一つ選んでね♪（口調のスタイル）\n")
		for i, label := range toneOptions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, label)
		}
		return strings.TrimRight(b.String(), "\n")
	}
	return ""
}

const toneRetryMessage = "番号を1〜15の中から選んでね♪"

// StartRegistration (re)starts the registration dialog from step 0,
// discarding any unflushed answers, and returns the first question.
func (m *Manager) StartRegistration(userID string) string {
	s := m.session(userID)
	s.reset(Registration)
	return registrationQuestion(registrationSteps[0])
}

func (m *Manager) registrationStep(ctx context.Context, userID string, s *Session, text string) (string, error) {
	key := registrationSteps[s.Step]

	if key == regKeyTone {
		label, ok := ToneByNumber(text)
		if !ok {
			// Invalid selection: stay on this step and re-prompt.
			return toneRetryMessage, nil
		}
		s.Answers[key] = label
	} else {
		s.Answers[key] = strings.TrimSpace(text)
	}

	if s.Step+1 < len(registrationSteps) {
		s.Step++
		return registrationQuestion(registrationSteps[s.Step]), nil
	}

	err := m.st.SaveProfile(ctx, userID,
		s.Answers[regKeyName], s.Answers[regKeyAge], s.Answers[regKeyTone])
	if err != nil {
		// Session stays on the final step so a retry can flush again.
		return "", fmt.Errorf("save profile: %w", err)
	}
	s.clear()
	return "🎉 登録が完了しました！日記リクエストを送ってみてください♪", nil
}
