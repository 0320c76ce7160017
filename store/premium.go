package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tomasmach/himekuri/sheets"
)

// bundleColumns is the PremiumUserInfo header after user_id, in sheet order.
var bundleColumns = []string{
	"emoji_list",
	"tone_tags",
	"ng_elements",
	"appeal_tags",
	"appeal_elements",
	"weekly_schedule",
	"fav_words",
	"other_requests",
	"store_name",
}

// PreferenceBundle is the structured preference set collected by the
// ten-question premium-setup dialog. It conditions premium generation but is
// never merged into the reference block.
type PreferenceBundle struct {
	EmojiList      string
	ToneTags       string
	NGElements     string
	AppealTags     string
	AppealElements string
	WeeklySchedule string
	FavWords       string
	OtherRequests  string
	StoreName      string
}

func (b *PreferenceBundle) values() []string {
	return []string{
		b.EmojiList, b.ToneTags, b.NGElements, b.AppealTags,
		b.AppealElements, b.WeeklySchedule, b.FavWords, b.OtherRequests,
		b.StoreName,
	}
}

func bundleFromRow(r sheets.Row) *PreferenceBundle {
	return &PreferenceBundle{
		EmojiList:      r.Get("emoji_list"),
		ToneTags:       r.Get("tone_tags"),
		NGElements:     r.Get("ng_elements"),
		AppealTags:     r.Get("appeal_tags"),
		AppealElements: r.Get("appeal_elements"),
		WeeklySchedule: r.Get("weekly_schedule"),
		FavWords:       r.Get("fav_words"),
		OtherRequests:  r.Get("other_requests"),
		StoreName:      r.Get("store_name"),
	}
}

// PreferenceBundle returns the user's premium settings, or (nil, nil) when
// none were saved. Cached until the next SavePreferenceBundle.
func (s *Store) PreferenceBundle(ctx context.Context, userID string) (*PreferenceBundle, error) {
	if b, ok := s.bundles.get(userID); ok {
		return b, nil
	}
	t, err := s.rows.OpenTable(ctx, s.userDataID, tabPremium)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", tabPremium, err)
	}
	row, ok, err := findUserRow(ctx, t, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	b := bundleFromRow(row)
	s.bundles.put(userID, b)
	return b, nil
}

// SavePreferenceBundle overwrites the user's bundle wholesale and
// invalidates its cache entry.
func (s *Store) SavePreferenceBundle(ctx context.Context, userID string, b *PreferenceBundle) error {
	t, err := s.rows.OpenTable(ctx, s.userDataID, tabPremium)
	if err != nil {
		return fmt.Errorf("open %s: %w", tabPremium, err)
	}
	row, ok, err := findUserRow(ctx, t, userID)
	if err != nil {
		return err
	}
	if ok {
		vals := b.values()
		for i, col := range bundleColumns {
			idx := colIndex(row.Columns, col)
			if idx < 0 {
				continue
			}
			if err := t.UpdateCell(ctx, row.Index, idx, vals[i]); err != nil {
				return err
			}
		}
	} else {
		if err := t.Append(ctx, append([]string{userID}, b.values()...)); err != nil {
			return err
		}
	}
	s.bundles.invalidate(userID)
	return nil
}

// SampleRow is one user-submitted diary in the private sample corpus.
type SampleRow struct {
	Index     int
	UserID    string
	Category  Category
	Timestamp string
	Text      string
	UsedCount int

	columns []string
}

func sampleFromRow(r sheets.Row) SampleRow {
	count, _ := strconv.Atoi(strings.TrimSpace(r.Get("used_count")))
	return SampleRow{
		Index:     r.Index,
		UserID:    strings.TrimSpace(r.Get(colUserID)),
		Category:  Category(r.Get("diary_type")),
		Timestamp: r.Get("timestamp"),
		Text:      strings.TrimSpace(r.Get("diary_text")),
		UsedCount: count,
		columns:   r.Columns,
	}
}

// AppendDiarySample adds one entry to the user's private corpus. Samples are
// append-only and never deleted.
func (s *Store) AppendDiarySample(ctx context.Context, userID string, cat Category, text string) error {
	t, err := s.rows.OpenTable(ctx, s.userDataID, tabSamples)
	if err != nil {
		return fmt.Errorf("open %s: %w", tabSamples, err)
	}
	return t.Append(ctx, []string{userID, string(cat), s.timestamp(), text, "0"})
}

// DiarySamples returns the user's samples in one category, in submission
// order.
func (s *Store) DiarySamples(ctx context.Context, userID string, cat Category) ([]SampleRow, error) {
	t, err := s.rows.OpenTable(ctx, s.userDataID, tabSamples)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", tabSamples, err)
	}
	rows, err := t.Rows(ctx)
	if err != nil {
		return nil, err
	}
	var out []SampleRow
	for _, r := range rows {
		sr := sampleFromRow(r)
		if sr.UserID == userID && sr.Category == cat && sr.Text != "" {
			out = append(out, sr)
		}
	}
	return out, nil
}

// IncrementSampleUsage bumps a sample's usage counter. Called for every
// sample picked into a reference block, whether or not generation succeeds.
func (s *Store) IncrementSampleUsage(ctx context.Context, sample SampleRow) error {
	t, err := s.rows.OpenTable(ctx, s.userDataID, tabSamples)
	if err != nil {
		return fmt.Errorf("open %s: %w", tabSamples, err)
	}
	idx := colIndex(sample.columns, "used_count")
	if idx < 0 {
		return fmt.Errorf("%s has no used_count column", tabSamples)
	}
	return t.UpdateCell(ctx, sample.Index, idx, strconv.Itoa(sample.UsedCount+1))
}
