package dialog

import (
	"context"
	"fmt"

	"github.com/tomasmach/himekuri/store"
)

type premiumQuestion struct {
	key      string
	question string
}

// premiumQuestions is the fixed ten-question sequence; the ninth collects
// the bulk diary-sample blob and the tenth the store name.
var premiumQuestions = []premiumQuestion{
	{"emoji_list", "【1/10】実際に使ってほしい絵文字を貼り付けてください😊"},
	{"tone_tags", "【2/10】使いたい日記のテイストを教えてください（例：清楚、甘えん坊、えっち、愛され系、ドMなど）"},
	{"ng_elements", "【3/10】NGワード・避けたい表現を教えてください（例：下品、罵倒、汚れ、淫語など）"},
	{"appeal_tags", "【4/10】指名に繋がりやすいあなたの特徴を教えてください（例：恥ずかしがり屋で可愛い、ロリ系、M、妹系など）"},
	{"appeal_elements", "【5/10】推したい特徴や演出したい雰囲気を教えてください（例：方言、Sっぽさ、色っぽさなど）"},
	{"weekly_schedule", "【6/10】主に出勤する曜日や時間帯を教えてください（例：平日昼、金土メイン、夜型など）"},
	{"fav_words", "【7/10】よく使う言い回し・口癖を教えてください（例：ぉ兄様へ、○○だよ〜、ぴえん、えちえち、〜だよぉなど）"},
	{"other_requests", "【8/10】他に反映したいリクエストがあれば教えてください（なければ「なし」でOK♪）"},
	{"diary_samples", "【9/10】あなたが実際に書いた写メ日記をまとめて送ってください！\n※「日記」→空行→「日記」…の形式で送ってね♪\n⚠️実際の日記に空行があると複数の日記として認識してしまう為注意してね。\n10件以上の日記をくれると日記の精度が上がっていくよ♪"},
	{"store_name", "【10/10】在籍している店舗名を教えてください🏢"},
}

const premiumIntro = `🎉【プレミアム設定スタート】🎉

これから、あなた専用の日記をもっと魅力的に仕上げるための
「プレミアム設定」の質問を順番にお送りします😊

📌最初に入力ルールのご案内です：
・複数ある場合は読点（、）で区切って1通にまとめて送ってね
・最後の質問では、複数の写メ日記をまとめて送ってもらいます
※「日記」→空行→「日記」…の形式で送ってね！

途中で止めても、また続きから再開できるので安心してね🌸

`

const premiumAlreadyApproved = "✅ すでにプレミアム承認済みです。プレミアム設定は反映されているよ♪"

const premiumDone = "✅ プレミアム申請が完了しました！\n承認後に通知するのでお待ちください✨\n承認完了までは引き続き無料版の日記が生成できます☺"

// StartPremiumSetup (re)starts the premium questionnaire from step 0 and
// returns the intro with the first question. Already-approved users are
// rejected without touching their session.
func (m *Manager) StartPremiumSetup(ctx context.Context, userID string) (string, error) {
	profile, err := m.st.Profile(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load profile: %w", err)
	}
	if profile != nil && profile.PremiumApproved {
		return premiumAlreadyApproved, nil
	}
	s := m.session(userID)
	s.reset(PremiumSetup)
	return premiumIntro + premiumQuestions[0].question, nil
}

// CancelPremiumSetup force-clears any premium-setup session and resets a
// pending application flag on the persona row, regardless of step.
func (m *Manager) CancelPremiumSetup(ctx context.Context, userID string) (string, error) {
	s := m.session(userID)
	if s.Active == PremiumSetup {
		s.clear()
	}
	if err := m.st.ClearPremiumPending(ctx, userID); err != nil {
		return "", fmt.Errorf("clear pending application: %w", err)
	}
	return "プレミアム設定を中止しました。また「プレミアム登録」と送ればいつでも再開できるよ🌸", nil
}

func (m *Manager) premiumStep(ctx context.Context, userID string, s *Session, text string) (string, error) {
	s.Answers[premiumQuestions[s.Step].key] = text

	if s.Step+1 < len(premiumQuestions) {
		s.Step++
		return premiumQuestions[s.Step].question, nil
	}

	if err := m.flushPremium(ctx, userID, s); err != nil {
		return "", err
	}
	s.clear()
	return premiumDone, nil
}

// flushPremium persists a completed questionnaire: the classified sample
// corpus, the preference bundle, and the pending-approval flag.
func (m *Manager) flushPremium(ctx context.Context, userID string, s *Session) error {
	for _, entry := range store.SplitEntries(s.Answers["diary_samples"]) {
		if err := m.st.AppendDiarySample(ctx, userID, store.Classify(entry), entry); err != nil {
			return fmt.Errorf("save diary sample: %w", err)
		}
	}

	bundle := &store.PreferenceBundle{
		EmojiList:      s.Answers["emoji_list"],
		ToneTags:       s.Answers["tone_tags"],
		NGElements:     s.Answers["ng_elements"],
		AppealTags:     s.Answers["appeal_tags"],
		AppealElements: s.Answers["appeal_elements"],
		WeeklySchedule: s.Answers["weekly_schedule"],
		FavWords:       s.Answers["fav_words"],
		OtherRequests:  s.Answers["other_requests"],
		StoreName:      s.Answers["store_name"],
	}
	if err := m.st.SavePreferenceBundle(ctx, userID, bundle); err != nil {
		return fmt.Errorf("save preference bundle: %w", err)
	}

	if err := m.st.MarkPremiumPending(ctx, userID, bundle.StoreName); err != nil {
		return fmt.Errorf("mark application pending: %w", err)
	}
	return nil
}
