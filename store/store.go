// Package store holds every durable record the bot knows about: persona
// profiles, premium preference bundles, diary samples, usage counters,
// feedback, and the template library. Everything is backed by the sheets
// row-store adapter; rows are mapped into typed records at this boundary so
// nothing downstream sees raw column maps.
package store

import (
	"time"

	"github.com/tomasmach/himekuri/sheets"
)

// Tab names inside the user-data collection.
const (
	tabUserInfo = "UserInfoLog"
	tabUsageLog = "UsageLog"
	tabFeedback = "FeedbackLog"
	tabSamples  = "PremiumDiarySamples"
	tabPremium  = "PremiumUserInfo"
)

// timeLayout is the timestamp format written into every table.
const timeLayout = "2006-01-02 15:04:05"

// dayLayout is the calendar-day key of the usage log.
const dayLayout = "2006-01-02"

// Store wraps the row store with typed accessors and the per-key caches.
type Store struct {
	rows        sheets.Store
	userDataID  string
	templatesID string

	profiles  *cache[*PersonaProfile]
	bundles   *cache[*PreferenceBundle]
	templates *cache[map[string][]TemplateRow]

	// Now is the clock used for timestamps and the usage day key. Tests
	// override it.
	Now func() time.Time
}

// New builds a Store over the given row store. userDataID and templatesID
// are the collection IDs of the user-data and template spreadsheets.
func New(rows sheets.Store, userDataID, templatesID string) *Store {
	return &Store{
		rows:        rows,
		userDataID:  userDataID,
		templatesID: templatesID,
		profiles:    newCache[*PersonaProfile](),
		bundles:     newCache[*PreferenceBundle](),
		templates:   newCache[map[string][]TemplateRow](),
		Now:         time.Now,
	}
}

func (s *Store) timestamp() string {
	return s.Now().Format(timeLayout)
}

func (s *Store) dayKey() string {
	return s.Now().Format(dayLayout)
}

// colIndex returns the position of a named column in a header, or -1.
func colIndex(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}
