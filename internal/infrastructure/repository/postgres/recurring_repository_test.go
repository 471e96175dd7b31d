package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
)

func TestListDueItemsScansRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	end := now.AddDate(0, 3, 0)
	rows := sqlmock.NewRows([]string{
		"id", "type", "amount", "currency", "description", "category", "frequency",
		"start_date", "end_date", "next_date", "active", "created_at", "updated_at",
	}).AddRow(
		"rec-1", "expense", "99.00", "EUR", "hosting", "Software", "monthly",
		now.AddDate(0, -2, 0), end, now, true, now, now,
	).AddRow(
		"rec-2", "income", "1500.00", "EUR", "retainer", "Revenue", "monthly",
		now.AddDate(0, -1, 0), nil, now, true, now, now,
	)

	mock.ExpectQuery("SELECT (.+) FROM recurring_items WHERE active AND next_date <= \\$1").
		WithArgs(now, 100).
		WillReturnRows(rows)

	got, err := NewRecurringRepository(db).ListDueItems(context.Background(), now, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("items %+v", got)
	}
	if got[0].EndDate == nil || !got[0].EndDate.Equal(end) {
		t.Fatalf("end date %v", got[0].EndDate)
	}
	if got[1].EndDate != nil {
		t.Fatal("open-ended item must have nil end date")
	}
	if got[0].Frequency != domain.FrequencyMonthly {
		t.Fatalf("frequency %s", got[0].Frequency)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateNextDateNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE recurring_items SET next_date").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewRecurringRepository(db).UpdateNextDate(context.Background(), "missing", time.Now())
	if !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestMarkInactive(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE recurring_items SET active = FALSE").
		WithArgs(sqlmock.AnyArg(), "rec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewRecurringRepository(db).MarkInactive(context.Background(), "rec-1"); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
