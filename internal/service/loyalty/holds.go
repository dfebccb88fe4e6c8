package loyalty

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
	"github.com/vladislavdragonenkov/glowup/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/glowup/internal/storage/kv"
)

const (
	holdKeyPrefix = "loyalty:hold:"
	holdsIndexKey = "loyalty:holds"
)

// PlaceHold фиксирует баллы, списанные под черновик, до подтверждения оплаты.
func (l *Ledger) PlaceHold(ctx context.Context, draftID, userID string, points int64) (domain.PointsHold, error) {
	hold := domain.PointsHold{
		DraftID:   draftID,
		UserID:    userID,
		Points:    points,
		CreatedAt: l.now().UnixMilli(),
	}
	if err := hold.Validate(); err != nil {
		return domain.PointsHold{}, err
	}

	if err := kv.SetJSON(ctx, l.store, holdKeyPrefix+draftID, hold, 0); err != nil {
		return domain.PointsHold{}, err
	}
	if err := kv.PrependID(ctx, l.store, holdsIndexKey, draftID, 0, 0); err != nil {
		return domain.PointsHold{}, err
	}
	return hold, nil
}

// GetHold возвращает резерв по черновику.
func (l *Ledger) GetHold(ctx context.Context, draftID string) (domain.PointsHold, bool, error) {
	var hold domain.PointsHold
	found, err := kv.GetJSON(ctx, l.store, holdKeyPrefix+draftID, &hold)
	if err != nil {
		return domain.PointsHold{}, false, err
	}
	return hold, found, nil
}

// ListHolds возвращает идентификаторы черновиков с активными резервами.
func (l *Ledger) ListHolds(ctx context.Context) ([]string, error) {
	return kv.ReadIDs(ctx, l.store, holdsIndexKey)
}

// ConsumeHold закрывает резерв после успешной оплаты: баллы остаются списанными.
func (l *Ledger) ConsumeHold(ctx context.Context, draftID string) error {
	return l.dropHold(ctx, draftID)
}

// ReleaseHold возвращает зарезервированные баллы на счёт. Повторный вызов
// не начисляет баллы второй раз: компенсация защищена маркером обработки.
func (l *Ledger) ReleaseHold(ctx context.Context, draftID string) (bool, error) {
	hold, found, err := l.GetHold(ctx, draftID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, l.dropHold(ctx, draftID)
	}

	claimKey := domain.ProcessedEventKey(domain.HoldReleaseEventID(draftID))
	first, err := l.store.SetNX(ctx, claimKey, domain.ProcessedValue, 0)
	if err != nil {
		return false, fmt.Errorf("claim hold release %s: %w", draftID, err)
	}
	if !first {
		return false, l.dropHold(ctx, draftID)
	}

	description := fmt.Sprintf("Refunded %d points from expired checkout %s", hold.Points, draftID)
	if _, err := l.CreditPoints(ctx, hold.UserID, hold.Points, domain.TransactionAdjustment, description, map[string]any{"orderId": draftID}); err != nil {
		// Без маркера следующий проход повторит начисление.
		if delErr := l.store.Del(ctx, claimKey); delErr != nil {
			l.logger.WithError(delErr).WithField("draft_id", draftID).Error("failed to release hold claim")
		}
		return false, err
	}
	if err := l.dropHold(ctx, draftID); err != nil {
		return true, err
	}

	l.metrics.RecordHoldReleased()
	l.events.Emit(kafka.EventTypeLoyaltyHoldReleased, hold.UserID, hold.UserID, map[string]any{
		"draftId": draftID,
		"points":  hold.Points,
	})
	l.logger.WithFields(log.Fields{
		"draft_id": draftID,
		"user_id":  hold.UserID,
		"points":   hold.Points,
	}).Info("points hold released")
	return true, nil
}

func (l *Ledger) dropHold(ctx context.Context, draftID string) error {
	if err := l.store.Del(ctx, holdKeyPrefix+draftID); err != nil {
		return fmt.Errorf("delete hold %s: %w", draftID, err)
	}
	return kv.RemoveID(ctx, l.store, holdsIndexKey, draftID, 0)
}
