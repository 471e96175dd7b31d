package usecase

import (
	"testing"
	"time"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
)

var normalizeNow = time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

func TestNormalizeDateValueRepairsStaleYear(t *testing.T) {
	if got := normalizeDateValue("2021-05-12", normalizeNow); got != "2024-05-12" {
		t.Fatalf("got %q, want 2024-05-12", got)
	}
}

func TestNormalizeDateValueKeepsRecentYears(t *testing.T) {
	for _, raw := range []string{"2023-05-12", "2024-05-12", "2025-01-01"} {
		if got := normalizeDateValue(raw, normalizeNow); got != raw {
			t.Errorf("normalizeDateValue(%q) = %q, want unchanged", raw, got)
		}
	}
}

func TestNormalizeDateValueLeavesUnparseableUntouched(t *testing.T) {
	for _, raw := range []string{"", "next friday", "12 de mayo", "pending"} {
		if got := normalizeDateValue(raw, normalizeNow); got != raw {
			t.Errorf("normalizeDateValue(%q) = %q, want unchanged", raw, got)
		}
	}
}

func TestNormalizeDateValuePreservesFormat(t *testing.T) {
	if got := normalizeDateValue("2021-05-12T09:30:00Z", normalizeNow); got != "2024-05-12T09:30:00Z" {
		t.Fatalf("got %q", got)
	}
	if got := normalizeDateValue("12/05/2021", normalizeNow); got != "12/05/2024" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeDateValueClampsLeapDay(t *testing.T) {
	nonLeapNow := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	if got := normalizeDateValue("2020-02-29", nonLeapNow); got != "2025-02-28" {
		t.Fatalf("got %q, want 2025-02-28", got)
	}
	// A leap target year keeps the 29th.
	if got := normalizeDateValue("2020-02-29", normalizeNow); got != "2024-02-29" {
		t.Fatalf("got %q, want 2024-02-29", got)
	}
}

func TestNormalizeDateValueIdempotent(t *testing.T) {
	once := normalizeDateValue("2020-11-03", normalizeNow)
	twice := normalizeDateValue(once, normalizeNow)
	if once != twice {
		t.Fatalf("not idempotent: %q then %q", once, twice)
	}
}

func TestNormalizeRecordDatesTouchesAllFieldsOnACopy(t *testing.T) {
	original := domain.Transaction{
		Date:        "2021-03-01",
		PaymentDate: "2021-03-05",
		DueDate:     "2021-04-01",
		StartDate:   "not a date",
		EndDate:     "2024-12-31",
	}
	got := normalizeRecordDates(original, normalizeNow)

	if got.Date != "2024-03-01" || got.PaymentDate != "2024-03-05" || got.DueDate != "2024-04-01" {
		t.Fatalf("stale fields not repaired: %+v", got)
	}
	if got.StartDate != "not a date" || got.EndDate != "2024-12-31" {
		t.Fatalf("fields that need no repair changed: %+v", got)
	}
	if original.Date != "2021-03-01" {
		t.Fatal("input record was mutated")
	}
}
