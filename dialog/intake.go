package dialog

import (
	"context"
	"fmt"

	"github.com/tomasmach/himekuri/store"
)

const (
	intakeTypeQuestion = "追加する日記の種類を番号で教えてね\n1.出勤\n2.退勤\n3.お礼"
	intakeTypeRetry    = "番号は 1〜3 の中から選んでね♪"
)

// StartDiaryIntake (re)starts the bulk diary intake dialog from step 0 and
// returns the type-selection question. The premium-only check is the
// dispatcher's job.
func (m *Manager) StartDiaryIntake(userID string) string {
	s := m.session(userID)
	s.reset(DiaryIntake)
	return intakeTypeQuestion
}

func (m *Manager) intakeStep(ctx context.Context, userID string, s *Session, text string) (string, error) {
	switch s.Step {
	case 0:
		cat, ok := store.CategoryFromSelector(text)
		if !ok {
			return intakeTypeRetry, nil
		}
		s.IntakeCategory = cat
		s.Step = 1
		return fmt.Sprintf("✏️ %s日記モードになりました。\n空行で区切って複数の日記を送ってね♪", cat.Label()), nil
	case 1:
		entries := store.SplitEntries(text)
		for _, entry := range entries {
			cat := store.Classify(entry)
			if cat == store.CategoryDiary {
				// No keyword hit: fall back to the type picked in step 0.
				cat = s.IntakeCategory
			}
			if err := m.st.AppendDiarySample(ctx, userID, cat, entry); err != nil {
				return "", fmt.Errorf("save diary entry: %w", err)
			}
		}
		s.clear()
		return fmt.Sprintf("✅ %d件の日記を追加しました！ありがとう♪", len(entries)), nil
	}
	return "", fmt.Errorf("diary intake in unknown step %d", s.Step)
}
