package usecase

import (
	"time"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
)

// dateLayouts lists the formats a stored date value may carry, most common
// first. The matched layout is reused when a repaired value is written back
// so normalization never changes a field's format.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006",
}

// normalizeRecordDates repairs stale years on every date field of a record.
// Values produced by language model extraction sometimes carry the model's
// training-era year; any parseable date more than one year behind the
// current year is moved to the current year with month and day preserved.
// Unparseable values and recent years pass through untouched, which also
// makes the repair idempotent.
//
// The receiver is a copy; stored records are never mutated in place.
func normalizeRecordDates(tx domain.Transaction, now time.Time) domain.Transaction {
	tx.Date = normalizeDateValue(tx.Date, now)
	tx.PaymentDate = normalizeDateValue(tx.PaymentDate, now)
	tx.DueDate = normalizeDateValue(tx.DueDate, now)
	tx.StartDate = normalizeDateValue(tx.StartDate, now)
	tx.EndDate = normalizeDateValue(tx.EndDate, now)
	return tx
}

func normalizeDateValue(raw string, now time.Time) string {
	if raw == "" {
		return raw
	}
	parsed, layout, ok := parseStoredDate(raw)
	if !ok {
		return raw
	}
	if parsed.Year() >= now.Year()-1 {
		return raw
	}
	day := parsed.Day()
	// A stale Feb 29 moved into a non-leap year would roll over to Mar 1;
	// clamp it to the last day of February instead.
	if parsed.Month() == time.February && day == 29 && !isLeapYear(now.Year()) {
		day = 28
	}
	repaired := time.Date(now.Year(), parsed.Month(), day,
		parsed.Hour(), parsed.Minute(), parsed.Second(), parsed.Nanosecond(), parsed.Location())
	return repaired.Format(layout)
}

func parseStoredDate(raw string) (time.Time, string, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, layout, true
		}
	}
	return time.Time{}, "", false
}
