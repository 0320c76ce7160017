package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tomasmach/himekuri/sheets"
)

// usageRow is one (user, day) counter in the UsageLog tab.
type usageRow struct {
	index   int
	userID  string
	day     string
	count   int
	columns []string
}

func usageFromRow(r sheets.Row) usageRow {
	count, _ := strconv.Atoi(strings.TrimSpace(r.Get("count")))
	return usageRow{
		index:   r.Index,
		userID:  strings.TrimSpace(r.Get(colUserID)),
		day:     strings.TrimSpace(r.Get("date")),
		count:   count,
		columns: r.Columns,
	}
}

func (s *Store) findUsage(ctx context.Context, t sheets.Table, userID string) (usageRow, bool, error) {
	rows, err := t.Rows(ctx)
	if err != nil {
		return usageRow{}, false, err
	}
	today := s.dayKey()
	for _, r := range rows {
		u := usageFromRow(r)
		if u.userID == userID && u.day == today {
			return u, true, nil
		}
	}
	return usageRow{}, false, nil
}

// UsageCount returns the user's generation count for the current calendar
// day. A day-key change implicitly resets the count to zero.
func (s *Store) UsageCount(ctx context.Context, userID string) (int, error) {
	t, err := s.rows.OpenTable(ctx, s.userDataID, tabUsageLog)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", tabUsageLog, err)
	}
	u, ok, err := s.findUsage(ctx, t, userID)
	if err != nil || !ok {
		return 0, err
	}
	return u.count, nil
}

// RecordUsage increments today's counter for the user, creating the row at 1
// when none exists yet. Called only after a successful generation.
func (s *Store) RecordUsage(ctx context.Context, userID string) error {
	t, err := s.rows.OpenTable(ctx, s.userDataID, tabUsageLog)
	if err != nil {
		return fmt.Errorf("open %s: %w", tabUsageLog, err)
	}
	u, ok, err := s.findUsage(ctx, t, userID)
	if err != nil {
		return err
	}
	if !ok {
		return t.Append(ctx, []string{userID, s.dayKey(), "1"})
	}
	idx := colIndex(u.columns, "count")
	if idx < 0 {
		return fmt.Errorf("%s has no count column", tabUsageLog)
	}
	return t.UpdateCell(ctx, u.index, idx, strconv.Itoa(u.count+1))
}
