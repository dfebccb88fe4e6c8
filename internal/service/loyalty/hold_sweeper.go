package loyalty

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultSweepInterval = time.Minute
	// defaultHoldGrace защищает резерв, чей черновик ещё не успел записаться.
	defaultHoldGrace = 5 * time.Minute
)

// CheckoutState сообщает, чем закончилось оформление по черновику.
type CheckoutState interface {
	DraftExists(ctx context.Context, draftID string) (bool, error)
	OrderExists(ctx context.Context, orderID string) (bool, error)
}

// SweeperOption настраивает HoldSweeper.
type SweeperOption func(*HoldSweeper)

// WithSweepInterval задаёт интервал между проходами.
func WithSweepInterval(interval time.Duration) SweeperOption {
	return func(s *HoldSweeper) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithHoldGrace задаёт минимальный возраст резерва перед проверкой.
func WithHoldGrace(grace time.Duration) SweeperOption {
	return func(s *HoldSweeper) {
		if grace >= 0 {
			s.grace = grace
		}
	}
}

// WithSweeperLogger задаёт logger воркера.
func WithSweeperLogger(logger *log.Entry) SweeperOption {
	return func(s *HoldSweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// HoldSweeper периодически возвращает баллы по брошенным оформлениям:
// черновик истёк, а заказ так и не появился.
type HoldSweeper struct {
	ledger   *Ledger
	state    CheckoutState
	logger   *log.Entry
	interval time.Duration
	grace    time.Duration
}

// NewHoldSweeper создаёт воркер компенсации резервов.
func NewHoldSweeper(ledger *Ledger, state CheckoutState, options ...SweeperOption) *HoldSweeper {
	s := &HoldSweeper{
		ledger:   ledger,
		state:    state,
		logger:   log.WithField("component", "loyalty-hold-sweeper"),
		interval: defaultSweepInterval,
		grace:    defaultHoldGrace,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Run выполняет проходы до отмены ctx.
func (s *HoldSweeper) Run(ctx context.Context) {
	if s.ledger == nil || s.state == nil {
		s.logger.Warn("hold sweeper is disabled: ledger or checkout state is nil")
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *HoldSweeper) sweep(ctx context.Context) {
	released, err := s.Sweep(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.WithError(err).Warn("hold sweep failed")
		return
	}
	if released > 0 {
		s.logger.WithField("released", released).Info("hold sweep completed")
	}
}

// Sweep проверяет все резервы и возвращает баллы по брошенным оформлениям.
// Резерв оплаченного заказа закрывается без начисления.
func (s *HoldSweeper) Sweep(ctx context.Context) (int, error) {
	draftIDs, err := s.ledger.ListHolds(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := s.ledger.now().Add(-s.grace).UnixMilli()
	released := 0
	for _, draftID := range draftIDs {
		if err := ctx.Err(); err != nil {
			return released, err
		}

		ok, err := s.settle(ctx, draftID, cutoff)
		if err != nil {
			s.logger.WithError(err).WithField("draft_id", draftID).Warn("failed to settle points hold")
			continue
		}
		if ok {
			released++
		}
	}
	return released, nil
}

func (s *HoldSweeper) settle(ctx context.Context, draftID string, cutoff int64) (bool, error) {
	hold, found, err := s.ledger.GetHold(ctx, draftID)
	if err != nil {
		return false, err
	}
	if found && hold.CreatedAt > cutoff {
		return false, nil
	}

	pending, err := s.state.DraftExists(ctx, draftID)
	if err != nil || pending {
		return false, err
	}

	paid, err := s.state.OrderExists(ctx, draftID)
	if err != nil {
		return false, err
	}
	if paid {
		return false, s.ledger.ConsumeHold(ctx, draftID)
	}

	return s.ledger.ReleaseHold(ctx, draftID)
}
