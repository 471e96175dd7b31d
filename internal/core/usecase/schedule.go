package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
	"github.com/emontoro/finance-ai-assistant/internal/core/ports"
)

// dueBatchLimit caps how many recurring items a single pass picks up.
const dueBatchLimit = 1000

// RecurringScheduler materializes due recurring items into transactions and
// advances their schedules.
type RecurringScheduler struct {
	recurring    ports.RecurringStore
	transactions ports.TransactionService
	logger       *slog.Logger
	now          func() time.Time
}

func NewRecurringScheduler(recurring ports.RecurringStore, transactions ports.TransactionService, logger *slog.Logger) *RecurringScheduler {
	return &RecurringScheduler{
		recurring:    recurring,
		transactions: transactions,
		logger:       logger,
		now:          time.Now,
	}
}

// ProcessDueItems runs one scheduling pass: every active item whose next
// date is due gets a generated transaction, then its schedule advances.
// Items whose advanced date passes their end date are deactivated instead.
// A failure on one item is logged and skipped so the rest of the batch still
// runs.
func (s *RecurringScheduler) ProcessDueItems(ctx context.Context) (processed, terminated int, err error) {
	now := s.now()
	due, err := s.recurring.ListDueItems(ctx, now, dueBatchLimit)
	if err != nil {
		return 0, 0, fmt.Errorf("list due items: %w", err)
	}

	for _, item := range due {
		tx := generatedTransaction(item)
		if err := s.transactions.Create(ctx, &tx); err != nil {
			s.logger.Error("recurring item skipped", "item_id", item.ID, "error", err)
			continue
		}

		next := advanceNextDate(item.NextDate, item.Frequency)
		if item.EndDate != nil && next.After(*item.EndDate) {
			if err := s.recurring.MarkInactive(ctx, item.ID); err != nil {
				s.logger.Error("deactivate recurring item", "item_id", item.ID, "error", err)
				continue
			}
			terminated++
		} else {
			if err := s.recurring.UpdateNextDate(ctx, item.ID, next); err != nil {
				s.logger.Error("advance recurring item", "item_id", item.ID, "error", err)
				continue
			}
		}
		processed++
	}

	s.logger.Info("recurring pass complete", "due", len(due), "processed", processed, "terminated", terminated)
	return processed, terminated, nil
}

func generatedTransaction(item domain.RecurringItem) domain.Transaction {
	return domain.Transaction{
		ID:          uuid.NewString(),
		Type:        item.Type,
		Amount:      item.Amount,
		Currency:    item.Currency,
		Description: item.Description,
		Category:    item.Category,
		Date:        item.NextDate.Format("2006-01-02"),
		RecurringID: item.ID,
	}
}

// advanceNextDate computes the occurrence that follows current. Monthly and
// quarterly steps keep the day of month, clamped to the target month's
// length. A yearly step from February 29 lands on March 1 when the next
// year is not a leap year. Unknown frequencies advance monthly.
func advanceNextDate(current time.Time, freq domain.Frequency) time.Time {
	switch freq {
	case domain.FrequencyDaily:
		return current.AddDate(0, 0, 1)
	case domain.FrequencyWeekly:
		return current.AddDate(0, 0, 7)
	case domain.FrequencyMonthly:
		return addMonthsClamped(current, 1)
	case domain.FrequencyQuarterly:
		return addMonthsClamped(current, 3)
	case domain.FrequencyYearly:
		if current.Month() == time.February && current.Day() == 29 && !isLeapYear(current.Year()+1) {
			return time.Date(current.Year()+1, time.March, 1,
				current.Hour(), current.Minute(), current.Second(), current.Nanosecond(), current.Location())
		}
		return time.Date(current.Year()+1, current.Month(), current.Day(),
			current.Hour(), current.Minute(), current.Second(), current.Nanosecond(), current.Location())
	default:
		return addMonthsClamped(current, 1)
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(months), 1,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	day := t.Day()
	if last := daysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
