package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomasmach/himekuri/sheets"
)

// UserInfoLog columns. The Japanese headers are the ones the operators see
// in the spreadsheet, so they stay Japanese here.
const (
	colUserID        = "user_id"
	colDisplayName   = "源氏名"
	colAgeBracket    = "年代"
	colTone          = "口調"
	colUpdatedAt     = "updated_at"
	colTestUser      = "is_test_user"
	colStatus        = "ステータス"
	colStatusUpdated = "status_updated_at"
	colStoreName     = "店舗"
	colNotified      = "通知済み"
)

// Premium-application statuses stored in the ステータス column.
const (
	StatusApproved = "承認済"
	StatusPending  = "承認待ち"
)

// PersonaProfile is the worker's self-presentation used to condition
// generated text, plus the approval flags that gate the premium tier.
type PersonaProfile struct {
	UserID          string
	DisplayName     string
	AgeBracket      string
	Tone            string
	PremiumApproved bool
	TestUser        bool
}

// Complete reports whether the profile can condition a generation request.
func (p *PersonaProfile) Complete() bool {
	return p != nil && p.DisplayName != "" && p.Tone != ""
}

func profileFromRow(r sheets.Row) *PersonaProfile {
	return &PersonaProfile{
		UserID:          strings.TrimSpace(r.Get(colUserID)),
		DisplayName:     r.Get(colDisplayName),
		AgeBracket:      r.Get(colAgeBracket),
		Tone:            r.Get(colTone),
		PremiumApproved: r.Get(colStatus) == StatusApproved,
		TestUser:        strings.EqualFold(strings.TrimSpace(r.Get(colTestUser)), "TRUE"),
	}
}

// findUserRow scans a table for the first row whose user_id matches.
func findUserRow(ctx context.Context, t sheets.Table, userID string) (sheets.Row, bool, error) {
	rows, err := t.Rows(ctx)
	if err != nil {
		return sheets.Row{}, false, err
	}
	for _, r := range rows {
		if strings.TrimSpace(r.Get(colUserID)) == userID {
			return r, true, nil
		}
	}
	return sheets.Row{}, false, nil
}

// Profile returns the persona for a user, or (nil, nil) when none is
// registered. Results are cached until the next SaveProfile for the same
// user.
func (s *Store) Profile(ctx context.Context, userID string) (*PersonaProfile, error) {
	if p, ok := s.profiles.get(userID); ok {
		return p, nil
	}
	t, err := s.rows.OpenTable(ctx, s.userDataID, tabUserInfo)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", tabUserInfo, err)
	}
	row, ok, err := findUserRow(ctx, t, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	p := profileFromRow(row)
	s.profiles.put(userID, p)
	return p, nil
}

// SaveProfile creates or overwrites the persona fields collected by the
// registration dialog and invalidates the profile cache entry.
func (s *Store) SaveProfile(ctx context.Context, userID, displayName, ageBracket, tone string) error {
	t, err := s.rows.OpenTable(ctx, s.userDataID, tabUserInfo)
	if err != nil {
		return fmt.Errorf("open %s: %w", tabUserInfo, err)
	}
	row, ok, err := findUserRow(ctx, t, userID)
	if err != nil {
		return err
	}
	now := s.timestamp()
	if ok {
		for col, val := range map[string]string{
			colDisplayName: displayName,
			colAgeBracket:  ageBracket,
			colTone:        tone,
			colUpdatedAt:   now,
		} {
			idx := colIndex(row.Columns, col)
			if idx < 0 {
				continue
			}
			if err := t.UpdateCell(ctx, row.Index, idx, val); err != nil {
				return err
			}
		}
	} else {
		if err := t.Append(ctx, []string{userID, displayName, ageBracket, tone, now}); err != nil {
			return err
		}
	}
	s.profiles.invalidate(userID)
	return nil
}

// setStatus writes the premium-application status cell (and its timestamp)
// on the user's persona row.
func (s *Store) setStatus(ctx context.Context, userID, status string) error {
	t, err := s.rows.OpenTable(ctx, s.userDataID, tabUserInfo)
	if err != nil {
		return fmt.Errorf("open %s: %w", tabUserInfo, err)
	}
	row, ok, err := findUserRow(ctx, t, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no persona row for user %s", userID)
	}
	if idx := colIndex(row.Columns, colStatus); idx >= 0 {
		if err := t.UpdateCell(ctx, row.Index, idx, status); err != nil {
			return err
		}
	}
	if idx := colIndex(row.Columns, colStatusUpdated); idx >= 0 {
		if err := t.UpdateCell(ctx, row.Index, idx, s.timestamp()); err != nil {
			return err
		}
	}
	s.profiles.invalidate(userID)
	return nil
}

// MarkPremiumPending flags the persona row as awaiting approval after the
// premium-setup dialog completes, recording the store name alongside.
func (s *Store) MarkPremiumPending(ctx context.Context, userID, storeName string) error {
	t, err := s.rows.OpenTable(ctx, s.userDataID, tabUserInfo)
	if err != nil {
		return fmt.Errorf("open %s: %w", tabUserInfo, err)
	}
	row, ok, err := findUserRow(ctx, t, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no persona row for user %s", userID)
	}
	if idx := colIndex(row.Columns, colStoreName); idx >= 0 {
		if err := t.UpdateCell(ctx, row.Index, idx, storeName); err != nil {
			return err
		}
	}
	return s.setStatus(ctx, userID, StatusPending)
}

// ClearPremiumPending resets an incomplete or abandoned premium application.
// An approved status is left untouched.
func (s *Store) ClearPremiumPending(ctx context.Context, userID string) error {
	t, err := s.rows.OpenTable(ctx, s.userDataID, tabUserInfo)
	if err != nil {
		return fmt.Errorf("open %s: %w", tabUserInfo, err)
	}
	row, ok, err := findUserRow(ctx, t, userID)
	if err != nil || !ok {
		return err
	}
	if row.Get(colStatus) != StatusPending {
		return nil
	}
	return s.setStatus(ctx, userID, "")
}

// NewlyApproved returns the user ids whose status is approved but whose
// notified flag is not yet set. Consumed by the approval notifier.
func (s *Store) NewlyApproved(ctx context.Context) ([]string, error) {
	t, err := s.rows.OpenTable(ctx, s.userDataID, tabUserInfo)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", tabUserInfo, err)
	}
	rows, err := t.Rows(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range rows {
		if r.Get(colStatus) != StatusApproved {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(r.Get(colNotified)), "TRUE") {
			continue
		}
		if id := strings.TrimSpace(r.Get(colUserID)); id != "" {
			// The status cell was flipped by the operator directly in the
			// sheet, so any cached profile still carries the old tier.
			s.profiles.invalidate(id)
			out = append(out, id)
		}
	}
	return out, nil
}

// MarkNotified sets the notified flag after the approval push went out.
func (s *Store) MarkNotified(ctx context.Context, userID string) error {
	t, err := s.rows.OpenTable(ctx, s.userDataID, tabUserInfo)
	if err != nil {
		return fmt.Errorf("open %s: %w", tabUserInfo, err)
	}
	row, ok, err := findUserRow(ctx, t, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no persona row for user %s", userID)
	}
	idx := colIndex(row.Columns, colNotified)
	if idx < 0 {
		return fmt.Errorf("%s has no %s column", tabUserInfo, colNotified)
	}
	if err := t.UpdateCell(ctx, row.Index, idx, "TRUE"); err != nil {
		return err
	}
	s.profiles.invalidate(userID)
	return nil
}
