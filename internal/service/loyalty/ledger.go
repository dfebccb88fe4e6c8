package loyalty

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
	"github.com/vladislavdragonenkov/glowup/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/glowup/internal/metrics"
	"github.com/vladislavdragonenkov/glowup/internal/storage/kv"
)

const (
	accountKeyPrefix = "loyalty:account:"
	txKeyPrefix      = "loyalty:tx:"
	userTxIndex      = "loyalty:user_txs:"

	// DefaultTransactionsLimit — размер истории по умолчанию.
	DefaultTransactionsLimit = 20
)

// Ledger ведёт счета лояльности, журнал транзакций и резервы баллов.
type Ledger struct {
	store   domain.KVStore
	rules   domain.AccrualRules
	logger  *log.Entry
	now     func() time.Time
	metrics *metrics.StorefrontMetrics
	events  *kafka.Emitter
}

// NewLedger создаёт журнал лояльности с заданными правилами.
func NewLedger(store domain.KVStore, rules domain.AccrualRules, logger *log.Entry) *Ledger {
	if logger == nil {
		logger = log.WithField("component", "loyalty")
	}
	return &Ledger{
		store:  store,
		rules:  rules,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock подменяет источник времени.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// WithMetrics подключает метрики начислений и списаний.
func (l *Ledger) WithMetrics(m *metrics.StorefrontMetrics) *Ledger {
	l.metrics = m
	return l
}

// WithEvents подключает публикацию событий лояльности.
func (l *Ledger) WithEvents(events *kafka.Emitter) *Ledger {
	l.events = events
	return l
}

// Rules возвращает действующие правила начисления.
func (l *Ledger) Rules() domain.AccrualRules {
	return l.rules
}

// GetOrCreateAccount возвращает счёт пользователя, создавая пустой при отсутствии
// или повреждении записи.
func (l *Ledger) GetOrCreateAccount(ctx context.Context, userID string) (domain.LoyaltyAccount, error) {
	if userID == "" {
		return domain.LoyaltyAccount{}, domain.Unauthorized("Unauthorized")
	}

	var account domain.LoyaltyAccount
	found, err := kv.GetJSON(ctx, l.store, accountKeyPrefix+userID, &account)
	if err != nil {
		return domain.LoyaltyAccount{}, err
	}
	if found {
		return account, nil
	}

	now := l.now().UnixMilli()
	account = domain.LoyaltyAccount{
		UserID:    userID,
		Tier:      domain.TierBronze,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := kv.SetJSON(ctx, l.store, accountKeyPrefix+userID, account, domain.LoyaltyAccountTTL); err != nil {
		return domain.LoyaltyAccount{}, err
	}
	return account, nil
}

// CreditPoints начисляет баллы и пересчитывает уровень.
func (l *Ledger) CreditPoints(ctx context.Context, userID string, points int64, txType domain.TransactionType, description string, metadata map[string]any) (domain.LoyaltyTransaction, error) {
	if points <= 0 {
		return domain.LoyaltyTransaction{}, domain.Validation("Points to credit must be positive")
	}
	if !txType.Valid() || txType == domain.TransactionRedemption {
		return domain.LoyaltyTransaction{}, domain.Validation("Invalid transaction type: %s", txType)
	}

	account, err := l.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return domain.LoyaltyTransaction{}, err
	}

	now := l.now()
	account.Balance += points
	account.TotalEarned += points
	account.Tier = domain.TierFor(account.TotalEarned)
	account.UpdatedAt = now.UnixMilli()

	tx := l.newTransaction(account, txType, points, description, metadata, now)
	if l.rules.ExpiryDays > 0 {
		expiresAt := now.Add(time.Duration(l.rules.ExpiryDays) * 24 * time.Hour).UnixMilli()
		tx.ExpiresAt = &expiresAt
	}

	if err := l.commit(ctx, account, tx); err != nil {
		return domain.LoyaltyTransaction{}, err
	}

	l.metrics.RecordPointsCredited(string(txType), points)
	l.events.Emit(kafka.EventTypeLoyaltyCredited, userID, userID, map[string]any{
		"transactionId": tx.ID,
		"type":          txType,
		"points":        points,
		"balance":       account.Balance,
	})
	return tx, nil
}

// DebitPoints списывает баллы. Баланс никогда не становится отрицательным.
func (l *Ledger) DebitPoints(ctx context.Context, userID string, points int64, description string, metadata map[string]any) (domain.LoyaltyTransaction, error) {
	if points <= 0 {
		return domain.LoyaltyTransaction{}, domain.Validation("Points to debit must be positive")
	}

	account, err := l.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return domain.LoyaltyTransaction{}, err
	}
	if points < l.rules.MinimumRedeemPoints {
		return domain.LoyaltyTransaction{}, domain.Validation("Minimum redemption is %d points", l.rules.MinimumRedeemPoints)
	}
	if account.Balance < points {
		return domain.LoyaltyTransaction{}, domain.Validation("Insufficient balance. Available: %d, Requested: %d", account.Balance, points)
	}

	now := l.now()
	account.Balance -= points
	account.TotalRedeemed += points
	account.UpdatedAt = now.UnixMilli()

	tx := l.newTransaction(account, domain.TransactionRedemption, -points, description, metadata, now)
	if err := l.commit(ctx, account, tx); err != nil {
		return domain.LoyaltyTransaction{}, err
	}

	l.metrics.RecordPointsDebited(string(domain.TransactionRedemption), points)
	l.events.Emit(kafka.EventTypeLoyaltyDebited, userID, userID, map[string]any{
		"transactionId": tx.ID,
		"points":        points,
		"balance":       account.Balance,
	})
	return tx, nil
}

// ValidateRedemption проверяет списание без изменения счёта.
func (l *Ledger) ValidateRedemption(ctx context.Context, userID string, points int64) (domain.RedemptionCheck, error) {
	if points < l.rules.MinimumRedeemPoints {
		return domain.RedemptionCheck{
			Error: fmt.Sprintf("Minimum redemption is %d points", l.rules.MinimumRedeemPoints),
		}, nil
	}

	account, err := l.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return domain.RedemptionCheck{}, err
	}
	if account.Balance < points {
		return domain.RedemptionCheck{
			Error: fmt.Sprintf("Insufficient balance. Available: %d points", account.Balance),
		}, nil
	}

	discount := l.ConvertPointsToKES(points)
	return domain.RedemptionCheck{Valid: true, DiscountKES: &discount}, nil
}

// Redeem проверяет и списывает баллы в обмен на скидку вне оформления заказа.
func (l *Ledger) Redeem(ctx context.Context, userID string, points int64, orderID string) (domain.LoyaltyTransaction, float64, error) {
	check, err := l.ValidateRedemption(ctx, userID, points)
	if err != nil {
		return domain.LoyaltyTransaction{}, 0, err
	}
	if !check.Valid {
		return domain.LoyaltyTransaction{}, 0, domain.Validation("%s", check.Error)
	}

	discount := *check.DiscountKES
	var metadata map[string]any
	if orderID != "" {
		metadata = map[string]any{"orderId": orderID}
	}
	description := fmt.Sprintf("Redeemed %d points for KES %s discount", points, strconv.FormatFloat(discount, 'f', -1, 64))

	tx, err := l.DebitPoints(ctx, userID, points, description, metadata)
	if err != nil {
		return domain.LoyaltyTransaction{}, 0, err
	}
	return tx, discount, nil
}

// GetTransactions возвращает последние транзакции пользователя, новые первыми.
// Отсутствующие и повреждённые записи пропускаются.
func (l *Ledger) GetTransactions(ctx context.Context, userID string, limit int) ([]domain.LoyaltyTransaction, error) {
	if limit <= 0 {
		limit = DefaultTransactionsLimit
	}

	ids, err := kv.ReadIDs(ctx, l.store, userTxIndex+userID)
	if err != nil {
		return nil, err
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}

	loaded := make([]*domain.LoyaltyTransaction, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			var tx domain.LoyaltyTransaction
			found, err := kv.GetJSON(gctx, l.store, txKeyPrefix+id, &tx)
			if err != nil {
				return err
			}
			if found {
				loaded[i] = &tx
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	txs := make([]domain.LoyaltyTransaction, 0, len(loaded))
	for _, tx := range loaded {
		if tx != nil {
			txs = append(txs, *tx)
		}
	}
	return txs, nil
}

// CalculatePointsFromPurchase возвращает floor(amount × pointsPerKES).
func (l *Ledger) CalculatePointsFromPurchase(amountKES int64) int64 {
	return int64(math.Floor(float64(amountKES) * l.rules.PointsPerKES))
}

// ConvertPointsToKES возвращает скидку в KES за points баллов.
func (l *Ledger) ConvertPointsToKES(points int64) float64 {
	return float64(points) * l.rules.PointValueKES
}

func (l *Ledger) newTransaction(account domain.LoyaltyAccount, txType domain.TransactionType, points int64, description string, metadata map[string]any, now time.Time) domain.LoyaltyTransaction {
	return domain.LoyaltyTransaction{
		ID:          fmt.Sprintf("%d-%s-%s", now.UnixMilli(), account.UserID, txType),
		UserID:      account.UserID,
		Type:        txType,
		Points:      points,
		Balance:     account.Balance,
		Description: description,
		Metadata:    metadata,
		CreatedAt:   now.UnixMilli(),
	}
}

func (l *Ledger) commit(ctx context.Context, account domain.LoyaltyAccount, tx domain.LoyaltyTransaction) error {
	if err := kv.SetJSON(ctx, l.store, accountKeyPrefix+account.UserID, account, domain.LoyaltyAccountTTL); err != nil {
		return err
	}
	if err := kv.SetJSON(ctx, l.store, txKeyPrefix+tx.ID, tx, domain.LoyaltyTransactionTTL); err != nil {
		return err
	}
	return kv.PrependID(ctx, l.store, userTxIndex+account.UserID, tx.ID, domain.LoyaltyTransactionIndexLimit, domain.LoyaltyTransactionTTL)
}
