package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
)

func transactionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "type", "amount", "currency", "description", "category", "date",
		"payment_date", "due_date", "start_date", "end_date", "recurring_id",
		"document_id", "tags", "created_at", "updated_at",
	})
}

func TestCreateTransactionInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	repo := NewTransactionRepository(db)
	now := time.Now()

	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(
			"tx-1", "expense", decimal.NewFromFloat(49.99), "EUR", "Figma", "Software",
			"2024-06-10", nil, nil, nil, nil, nil, nil, []byte("null"), now, now,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.CreateTransaction(context.Background(), &domain.Transaction{
		ID:          "tx-1",
		Type:        domain.TypeExpense,
		Amount:      decimal.NewFromFloat(49.99),
		Currency:    "EUR",
		Description: "Figma",
		Category:    "Software",
		Date:        "2024-06-10",
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetTransactionNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM transactions").
		WithArgs("missing").
		WillReturnRows(transactionRows())

	_, err = NewTransactionRepository(db).GetTransaction(context.Background(), "missing")
	if !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestListTransactionsAppliesFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	now := time.Now()
	rows := transactionRows().AddRow(
		"tx-1", "expense", "120.00", "EUR", "Google Ads", "Marketing", "2024-05-10",
		nil, nil, nil, nil, nil, nil, []byte(`{}`), now, now,
	)

	mock.ExpectQuery("SELECT (.+) FROM transactions WHERE type = \\$1 AND category = \\$2 AND date >= \\$3 AND date <= \\$4").
		WithArgs("expense", "Marketing", "2024-05-01", "2024-05-31", 10, 0).
		WillReturnRows(rows)

	window := domain.DateRange{
		Start: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC),
	}
	got, err := NewTransactionRepository(db).ListTransactions(context.Background(), domain.FilterSet{
		Type:      domain.TypeExpense,
		Category:  "Marketing",
		DateRange: &window,
	}, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Category != "Marketing" {
		t.Fatalf("records %+v", got)
	}
	if !got[0].Amount.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("amount %s", got[0].Amount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestTextSearchFiltersByType(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id"}).AddRow("tx-7").AddRow("tx-3")
	mock.ExpectQuery("SELECT id FROM transactions WHERE to_tsvector").
		WithArgs("google ads", "expense", 5).
		WillReturnRows(rows)

	ids, err := NewTransactionRepository(db).TextSearch(context.Background(), "google ads", domain.TypeExpense, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "tx-7" {
		t.Fatalf("ids %v", ids)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteTransactionNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec("DELETE FROM transactions").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewTransactionRepository(db).DeleteTransaction(context.Background(), "missing")
	if !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("got %v", err)
	}
}
