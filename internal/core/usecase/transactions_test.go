package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
)

type fakeClassifier struct {
	intent   domain.QueryIntent
	draft    domain.TransactionDraft
	docDraft domain.DocumentDraft
	err      error
}

func (f *fakeClassifier) AnalyzeQuery(_ context.Context, _ string, _ []domain.ConversationEntry) (domain.QueryIntent, error) {
	return f.intent, f.err
}

func (f *fakeClassifier) ExtractTransaction(_ context.Context, _ string) (domain.TransactionDraft, error) {
	return f.draft, f.err
}

func (f *fakeClassifier) ExtractDocument(_ context.Context, _ string, _ domain.DocumentType) (domain.DocumentDraft, error) {
	return f.docDraft, f.err
}

func newTestTransactions(store *fakeRecordStore, recurring *fakeRecurringStore, index *fakeVectorIndex, classifier *fakeClassifier) *Transactions {
	tr := NewTransactions(store, recurring, index, &fakeEmbedder{}, classifier, testLogger())
	tr.now = func() time.Time { return day(2024, time.June, 15) }
	return tr
}

func TestCreateValidatesAndIndexes(t *testing.T) {
	store := &fakeRecordStore{}
	index := &fakeVectorIndex{}
	tr := newTestTransactions(store, &fakeRecurringStore{}, index, &fakeClassifier{})

	tx := &domain.Transaction{
		Type:        domain.TypeExpense,
		Amount:      decimal.NewFromFloat(49.99),
		Currency:    "EUR",
		Description: "Figma subscription",
		Category:    "Software",
		Date:        "2024-06-10",
	}
	if err := tr.Create(context.Background(), tx); err != nil {
		t.Fatal(err)
	}
	if tx.ID == "" {
		t.Fatal("no id assigned")
	}
	if _, ok := store.byID[tx.ID]; !ok {
		t.Fatal("record not persisted")
	}
	meta, ok := index.upserts[tx.ID]
	if !ok {
		t.Fatal("record not indexed")
	}
	if meta["category"] != "Software" || meta["type"] != "expense" || meta["date"] != "2024-06-10" {
		t.Fatalf("index metadata %+v", meta)
	}
}

func TestCreateRejectsNonPositiveAmount(t *testing.T) {
	tr := newTestTransactions(&fakeRecordStore{}, &fakeRecurringStore{}, &fakeVectorIndex{}, &fakeClassifier{})
	tx := &domain.Transaction{Type: domain.TypeExpense, Amount: decimal.Zero, Date: "2024-06-10"}
	if err := tr.Create(context.Background(), tx); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("got %v, want invalid input", err)
	}
}

func TestCreateSurvivesIndexFailure(t *testing.T) {
	store := &fakeRecordStore{}
	tr := NewTransactions(store, &fakeRecurringStore{}, &fakeVectorIndex{}, &fakeEmbedder{err: errors.New("down")}, &fakeClassifier{}, testLogger())

	tx := &domain.Transaction{Type: domain.TypeIncome, Amount: decimal.NewFromInt(100), Date: "2024-06-10"}
	if err := tr.Create(context.Background(), tx); err != nil {
		t.Fatalf("write must survive an embedding outage: %v", err)
	}
	if _, ok := store.byID[tx.ID]; !ok {
		t.Fatal("record not persisted")
	}
}

func TestCreateFromTextUsesExtractedDraft(t *testing.T) {
	store := &fakeRecordStore{}
	classifier := &fakeClassifier{draft: domain.TransactionDraft{
		Type:        domain.TypeExpense,
		Amount:      decimal.NewFromFloat(120.50),
		Currency:    "EUR",
		Description: "Google Ads campaign",
		Category:    "Marketing",
		Date:        "2024-06-12",
	}}
	tr := newTestTransactions(store, &fakeRecurringStore{}, &fakeVectorIndex{}, classifier)

	tx, item, err := tr.CreateFromText(context.Background(), "pagué 120,50 de google ads")
	if err != nil {
		t.Fatal(err)
	}
	if item != nil {
		t.Fatal("no recurring item expected")
	}
	if !tx.Amount.Equal(decimal.NewFromFloat(120.50)) || tx.Category != "Marketing" {
		t.Fatalf("transaction %+v", tx)
	}
}

func TestCreateFromTextFallsBackToBareNumber(t *testing.T) {
	classifier := &fakeClassifier{draft: domain.TransactionDraft{
		Type:        domain.TypeExpense,
		Description: "office chair",
	}}
	tr := newTestTransactions(&fakeRecordStore{}, &fakeRecurringStore{}, &fakeVectorIndex{}, classifier)

	tx, _, err := tr.CreateFromText(context.Background(), "bought an office chair for 249,99 today")
	if err != nil {
		t.Fatal(err)
	}
	if !tx.Amount.Equal(decimal.NewFromFloat(249.99)) {
		t.Fatalf("amount %s", tx.Amount)
	}
	if tx.Date != "2024-06-15" {
		t.Fatalf("date %q, want today", tx.Date)
	}
}

func TestCreateFromTextWithoutAnyAmountFails(t *testing.T) {
	classifier := &fakeClassifier{draft: domain.TransactionDraft{Type: domain.TypeExpense}}
	tr := newTestTransactions(&fakeRecordStore{}, &fakeRecurringStore{}, &fakeVectorIndex{}, classifier)

	if _, _, err := tr.CreateFromText(context.Background(), "bought some things"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("got %v, want invalid input", err)
	}
}

func TestCreateFromTextRegistersRecurring(t *testing.T) {
	recurring := &fakeRecurringStore{}
	classifier := &fakeClassifier{draft: domain.TransactionDraft{
		Type:        domain.TypeExpense,
		Amount:      decimal.NewFromInt(30),
		Currency:    "EUR",
		Description: "gym membership",
		Category:    "Services",
		Recurring:   true,
		Frequency:   "monthly",
		StartDate:   "2024-06-01",
	}}
	tr := newTestTransactions(&fakeRecordStore{}, recurring, &fakeVectorIndex{}, classifier)

	tx, item, err := tr.CreateFromText(context.Background(), "gym membership 30 eur per month")
	if err != nil {
		t.Fatal(err)
	}
	if item == nil || len(recurring.created) != 1 {
		t.Fatal("recurring item not registered")
	}
	if tx.RecurringID != item.ID {
		t.Fatal("transaction not linked to its recurring item")
	}
	if !item.NextDate.Equal(day(2024, time.July, 1)) {
		t.Fatalf("next date %v, want 2024-07-01", item.NextDate)
	}
}

func TestDeleteRemovesVector(t *testing.T) {
	store := &fakeRecordStore{byID: map[string]domain.Transaction{"x": marketingExpense("x", "2024-06-01")}}
	index := &fakeVectorIndex{}
	tr := newTestTransactions(store, &fakeRecurringStore{}, index, &fakeClassifier{})

	if err := tr.Delete(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if len(index.deleted) != 1 || index.deleted[0] != "x" {
		t.Fatalf("deleted %v", index.deleted)
	}
}

func TestGetNormalizesDates(t *testing.T) {
	store := &fakeRecordStore{byID: map[string]domain.Transaction{
		"old": marketingExpense("old", "2021-04-07"),
	}}
	tr := newTestTransactions(store, &fakeRecurringStore{}, &fakeVectorIndex{}, &fakeClassifier{})

	tx, err := tr.Get(context.Background(), "old")
	if err != nil {
		t.Fatal(err)
	}
	if tx.Date != "2024-04-07" {
		t.Fatalf("date %q", tx.Date)
	}
	if store.byID["old"].Date != "2021-04-07" {
		t.Fatal("stored record was mutated")
	}
}
