package diary

import (
	"fmt"
	"strings"

	"github.com/tomasmach/himekuri/store"
)

// generationTemperature is used for every diary request.
const generationTemperature = 0.85

const (
	systemPromptFree    = "あなたは自然な雰囲気で日記を書く人気キャストです。"
	systemPromptPremium = "あなたは自然な雰囲気で日記を書くプロフェッショナルな人気キャストです。"
)

// purposeFor returns the category-specific goal statement used in premium
// prompts.
func purposeFor(cat store.Category) string {
	switch cat {
	case store.CategoryShukkin:
		return "この日記は『出勤していることを伝え、当日の空き枠や得意なサービス、自分の魅力を自然に伝えて来店につなげる』ためのものです。"
	case store.CategoryTaikin:
		return "この日記は『本日の勤務終了を伝え、感謝・満了アピール・次回の出勤予定・軽いプライベート要素を含めてファン化を促す』ためのものです。"
	case store.CategoryOrei:
		return "この日記は『今日来てくれた特定のお客様への感謝を綴りつつ、その思い出や雰囲気を通して新規のお客様に自分の魅力を伝える』ためのものです。"
	}
	return "自然な写メ日記を書く"
}

// freeInstructionFor returns the category-specific opening instruction of the
// free-tier prompt.
func freeInstructionFor(cat store.Category) string {
	switch cat {
	case store.CategoryShukkin:
		return "あなたは人気キャストです。本日出勤していることを自然な流れで伝えつつ、空き枠案内・得意サービス・明るい雰囲気を織り交ぜ、親近感ある文章で日記を作成してください。"
	case store.CategoryTaikin:
		return "あなたは人気キャストです。本日の退勤を優しく自然に伝え、感謝、満了アピール、次回予定、プライベート感をバランスよく盛り込んだ日記を作成してください。"
	case store.CategoryOrei:
		return "あなたは人気キャストです。今日来てくれた“特定のお客様”に向けた自然なお礼日記を作成してください。\n" +
			"・呼びかけは「○○さん」や「○○さま」など個人向けにしてください。\n" +
			"・お客様と交わした会話、反応、印象に残った出来事をできるだけ具体的に書いてください。\n" +
			"・自然で柔らかい文体、絵文字も適度に使って構いません。\n" +
			"・文章の冒頭は『今日は〜』ではなく、その方とのやりとりにすっと入れるようにしてください。"
	}
	return "あなたは人気キャストです。自然な写メ日記を書いてください。"
}

// buildFreePrompt assembles the free-tier prompt from persona attributes and
// the reference block.
func buildFreePrompt(profile *store.PersonaProfile, cat store.Category, reference string) string {
	return fmt.Sprintf(`%s

🎀 キャラ情報
・源氏名：%s
・年代：%s
・口調：%s

✏️ 参考例：
%s

📝 1通だけ自然な日記を書いてください。
日記の出だしは毎回違う自然な入り方にしてください。「今日も〇〇です」のような出だしは避けてください。`,
		freeInstructionFor(cat), profile.DisplayName, profile.AgeBracket, profile.Tone, reference)
}

// buildPremiumPrompt assembles the premium prompt from the purpose
// statement, persona, preference bundle, the one-shot keyword answer, and
// the reference block.
func buildPremiumPrompt(profile *store.PersonaProfile, cat store.Category, bundle *store.PreferenceBundle, keywords, reference string) string {
	if bundle == nil {
		bundle = &store.PreferenceBundle{}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "あなたは人気キャストです。\n\n🎯 目的\n%s\n\n", purposeFor(cat))
	fmt.Fprintf(&b, "【キャスト情報】\n源氏名: %s\n年代: %s\n口調: %s\n\n",
		profile.DisplayName, profile.AgeBracket, profile.Tone)
	fmt.Fprintf(&b, `【プレミアム設定】
使用絵文字: %s
日記テイスト: %s
避けたい表現: %s
推したい特徴: %s
得意ポイント: %s
出勤傾向: %s
口癖: %s
要望: %s
`,
		bundle.EmojiList, bundle.ToneTags, bundle.NGElements, bundle.AppealElements,
		bundle.AppealTags, bundle.WeeklySchedule, bundle.FavWords, bundle.OtherRequests)
	if keywords != "" {
		fmt.Fprintf(&b, "\n【キーワード】%s\n", keywords)
	}
	fmt.Fprintf(&b, "\n【参考日記】\n%s\n\n📝 これらを踏まえた自然な1通の日記を作成してください。", reference)
	return b.String()
}
