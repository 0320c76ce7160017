package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tomasmach/himekuri/sheets"
)

// Feedback outcomes stored in the FeedbackLog result column.
const (
	FeedbackGood = "good"
	FeedbackBad  = "bad"
)

// FeedbackRow is one accept/reject signal against a generated diary.
type FeedbackRow struct {
	UserID    string
	Category  Category
	Result    string
	Timestamp string
	Text      string
}

func feedbackFromRow(r sheets.Row) FeedbackRow {
	return FeedbackRow{
		UserID:    strings.TrimSpace(r.Get(colUserID)),
		Category:  Category(r.Get("diary_type")),
		Result:    r.Get("result"),
		Timestamp: r.Get("timestamp"),
		Text:      r.Get("diary_text"),
	}
}

// AppendFeedback records one accept/reject signal with the rated text.
func (s *Store) AppendFeedback(ctx context.Context, userID string, cat Category, result, text string) error {
	t, err := s.rows.OpenTable(ctx, s.userDataID, tabFeedback)
	if err != nil {
		return fmt.Errorf("open %s: %w", tabFeedback, err)
	}
	return t.Append(ctx, []string{userID, string(cat), result, s.timestamp(), text})
}

// LikedDiaries returns every positively-rated diary of the user in one
// category, most recent first. The timestamp format sorts lexicographically.
func (s *Store) LikedDiaries(ctx context.Context, userID string, cat Category) ([]FeedbackRow, error) {
	t, err := s.rows.OpenTable(ctx, s.userDataID, tabFeedback)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", tabFeedback, err)
	}
	rows, err := t.Rows(ctx)
	if err != nil {
		return nil, err
	}
	var out []FeedbackRow
	for _, r := range rows {
		f := feedbackFromRow(r)
		if f.UserID == userID && f.Result == FeedbackGood && f.Category == cat {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out, nil
}
