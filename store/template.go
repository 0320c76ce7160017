package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tomasmach/himekuri/sheets"
)

// TemplateRow is one reusable snippet of the template library.
type TemplateRow struct {
	Index     int
	Section   string
	Text      string
	UsedCount int

	columns []string
}

func templateFromRow(r sheets.Row) TemplateRow {
	count, _ := strconv.Atoi(strings.TrimSpace(r.Get("used_count")))
	return TemplateRow{
		Index:     r.Index,
		Section:   strings.TrimSpace(r.Get("section")),
		Text:      strings.TrimSpace(r.Get("text")),
		UsedCount: count,
		columns:   r.Columns,
	}
}

// Templates returns the category's template library grouped by section.
// Categories without a template tab get an empty map. Tabs are cached with
// no expiry; template tabs only ever change by operator edits, and the
// usage-counter writes go straight to the sheet.
func (s *Store) Templates(ctx context.Context, cat Category) (map[string][]TemplateRow, error) {
	tab, ok := cat.TemplateTab()
	if !ok {
		return map[string][]TemplateRow{}, nil
	}
	if cached, ok := s.templates.get(tab); ok {
		return cached, nil
	}
	t, err := s.rows.OpenTable(ctx, s.templatesID, tab)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", tab, err)
	}
	rows, err := t.Rows(ctx)
	if err != nil {
		return nil, err
	}
	sections := make(map[string][]TemplateRow)
	for _, r := range rows {
		tr := templateFromRow(r)
		if tr.Section == "" || tr.Text == "" {
			continue
		}
		sections[tr.Section] = append(sections[tr.Section], tr)
	}
	s.templates.put(tab, sections)
	return sections, nil
}

// IncrementTemplateUsage bumps a snippet's usage counter on the sheet. The
// cached copy keeps its old count; only the durable counter matters.
func (s *Store) IncrementTemplateUsage(ctx context.Context, cat Category, tr TemplateRow) error {
	tab, ok := cat.TemplateTab()
	if !ok {
		return nil
	}
	t, err := s.rows.OpenTable(ctx, s.templatesID, tab)
	if err != nil {
		return fmt.Errorf("open %s: %w", tab, err)
	}
	idx := colIndex(tr.columns, "used_count")
	if idx < 0 {
		return fmt.Errorf("%s has no used_count column", tab)
	}
	return t.UpdateCell(ctx, tr.Index, idx, strconv.Itoa(tr.UsedCount+1))
}
