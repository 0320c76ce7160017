package store

import "strings"

// Category is a diary type. The string values are durable: they are written
// into the sample and feedback tables.
type Category string

const (
	// CategoryShukkin is a shift-start (出勤) diary.
	CategoryShukkin Category = "shukkin"
	// CategoryTaikin is a shift-end (退勤) diary.
	CategoryTaikin Category = "taikin"
	// CategoryOrei is a personal thank-you (お礼) diary.
	CategoryOrei Category = "orei"
	// CategoryDiary is the generic fallback.
	CategoryDiary Category = "diary"
)

// Label returns the user-facing Japanese name of the category.
func (c Category) Label() string {
	switch c {
	case CategoryShukkin:
		return "出勤"
	case CategoryTaikin:
		return "退勤"
	case CategoryOrei:
		return "お礼"
	}
	return "日記"
}

// TemplateTab returns the template-library tab for the category. The generic
// category has no template tab.
func (c Category) TemplateTab() (string, bool) {
	switch c {
	case CategoryShukkin:
		return "ShukkinTemplates", true
	case CategoryTaikin:
		return "TaikinTemplates", true
	case CategoryOrei:
		return "OreiTemplates", true
	}
	return "", false
}

// classifyKeywords is scanned in order; the first category with a keyword hit
// wins.
var classifyKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryShukkin, []string{"出勤", "おはよう", "今日も出勤", "こんにちは"}},
	{CategoryTaikin, []string{"退勤", "お疲れ様", "また明日", "おやすみ"}},
	{CategoryOrei, []string{"ありがとう", "感謝", "お礼", "嬉しい", "また会いたい"}},
}

// Classify tags one diary entry by keyword scan, defaulting to the generic
// category when nothing matches.
func Classify(text string) Category {
	text = strings.ToLower(text)
	for _, set := range classifyKeywords {
		for _, kw := range set.keywords {
			if strings.Contains(text, kw) {
				return set.category
			}
		}
	}
	return CategoryDiary
}

// SplitEntries splits a pasted diary blob on blank lines and trims each
// entry, dropping empty ones.
func SplitEntries(blob string) []string {
	var out []string
	for _, part := range strings.Split(blob, "\n\n") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// CategoryFromSelector maps the numeric selection used by the diary-add
// dialog ("1"–"3") to a category.
func CategoryFromSelector(s string) (Category, bool) {
	switch strings.TrimSpace(s) {
	case "1":
		return CategoryShukkin, true
	case "2":
		return CategoryTaikin, true
	case "3":
		return CategoryOrei, true
	}
	return "", false
}

// CategoryFromRequest routes a generation request message to a category by
// literal command match, defaulting to the generic diary.
func CategoryFromRequest(text string) Category {
	switch {
	case strings.Contains(text, "出勤"):
		return CategoryShukkin
	case strings.Contains(text, "退勤"):
		return CategoryTaikin
	case strings.Contains(text, "お礼"):
		return CategoryOrei
	}
	return CategoryDiary
}
