package usecase

import (
	"context"
	"fmt"
	"time"

	"library-service/internal/data/entity"
	"library-service/internal/data/repository"
	"library-service/pkg/notifier"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// ScanReport summarizes one overdue scan.
type ScanReport struct {
	Matched int
	Sent    int
	Failed  int
}

// OverdueScanner reports unreturned borrowings that are due by tomorrow to the staff chat.
type OverdueScanner struct {
	borrowings repository.BorrowingRepository
	fees       *FeeCalculator
	notify     notifier.Notifier
	log        *zap.Logger
	now        func() time.Time
}

func NewOverdueScanner(
	borrowings repository.BorrowingRepository,
	fees *FeeCalculator,
	notify notifier.Notifier,
	log *zap.Logger,
) *OverdueScanner {
	return &OverdueScanner{
		borrowings: borrowings,
		fees:       fees,
		notify:     notify,
		log:        log.With(zap.String("service", "overdue_scanner")),
		now:        time.Now,
	}
}

// Scan sends one message per matching borrowing, all at once. A failed send is
// logged and counted, it never stops the others. With no matches a single
// summary message is sent instead.
func (s *OverdueScanner) Scan(ctx context.Context) (ScanReport, error) {
	today := entity.DateOf(s.now())
	cutoff := today.AddDate(0, 0, 1)

	details, err := s.borrowings.FindActiveDueBy(ctx, cutoff)
	if err != nil {
		return ScanReport{}, fmt.Errorf("find overdue borrowings: %w", err)
	}

	report := ScanReport{Matched: len(details)}

	if len(details) == 0 {
		if err := s.notify.Send(ctx, noOverdueMessage); err != nil {
			s.log.Warn("Failed to send no-overdue message", zap.Error(err))
			report.Failed = 1
			return report, nil
		}
		report.Sent = 1
		return report, nil
	}

	p := pool.NewWithResults[string]().WithErrors()
	for _, detail := range details {
		p.Go(func() (string, error) {
			quote := s.fees.Quote(detail.Borrowing, detail.Book, today)
			if err := s.notify.Send(ctx, overdueMessage(detail, quote)); err != nil {
				return "", fmt.Errorf("notify borrowing %s: %w", detail.Borrowing.ID.String(), err)
			}
			return detail.Borrowing.ID.String(), nil
		})
	}
	// only successful sends come back as results
	delivered, err := p.Wait()

	report.Sent = len(delivered)
	report.Failed = report.Matched - report.Sent
	if err != nil {
		s.log.Warn("Some overdue notifications failed",
			zap.Int("failed", report.Failed),
			zap.Error(err),
		)
	}
	return report, nil
}

// Run is the scheduler entry point.
func (s *OverdueScanner) Run(ctx context.Context) {
	start := time.Now()

	report, err := s.Scan(ctx)
	if err != nil {
		s.log.Error("Overdue scan failed", zap.Error(err))
		return
	}

	s.log.Info("Overdue scan finished",
		zap.Int("matched", report.Matched),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
}
