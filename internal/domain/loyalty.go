package domain

import "time"

const (
	// LoyaltyAccountTTL — срок хранения счёта лояльности.
	LoyaltyAccountTTL = 2 * 365 * 24 * time.Hour
	// LoyaltyTransactionTTL — срок хранения транзакции и индекса транзакций.
	LoyaltyTransactionTTL = 365 * 24 * time.Hour
	// LoyaltyTransactionIndexLimit — сколько последних транзакций хранит индекс пользователя.
	LoyaltyTransactionIndexLimit = 100
)

// TransactionType описывает тип операции по счёту лояльности.
type TransactionType string

const (
	TransactionPurchase   TransactionType = "purchase"
	TransactionReview     TransactionType = "review"
	TransactionReferral   TransactionType = "referral"
	TransactionBonus      TransactionType = "bonus"
	TransactionRedemption TransactionType = "redemption"
	TransactionExpiry     TransactionType = "expiry"
	TransactionAdjustment TransactionType = "adjustment"
)

// Valid проверяет, что тип транзакции поддерживается.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionPurchase, TransactionReview, TransactionReferral, TransactionBonus,
		TransactionRedemption, TransactionExpiry, TransactionAdjustment:
		return true
	default:
		return false
	}
}

// Tier отражает уровень участника программы и зависит только от накопленных баллов.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// TierFor вычисляет уровень по сумме заработанных баллов.
func TierFor(totalEarned int64) Tier {
	switch {
	case totalEarned >= 10000:
		return TierPlatinum
	case totalEarned >= 5000:
		return TierGold
	case totalEarned >= 2000:
		return TierSilver
	default:
		return TierBronze
	}
}

// LoyaltyAccount хранит счёт лояльности. Инвариант: Balance == TotalEarned - TotalRedeemed.
type LoyaltyAccount struct {
	UserID        string `json:"userId"`
	Balance       int64  `json:"balance"`
	TotalEarned   int64  `json:"totalEarned"`
	TotalRedeemed int64  `json:"totalRedeemed"`
	Tier          Tier   `json:"tier"`
	CreatedAt     int64  `json:"createdAt"`
	UpdatedAt     int64  `json:"updatedAt"`
}

// LoyaltyTransaction представляет неизменяемую запись об операции.
// Points положительны для начислений и отрицательны для списаний.
type LoyaltyTransaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Type        TransactionType `json:"type"`
	Points      int64           `json:"points"`
	Balance     int64           `json:"balance"`
	Description string          `json:"description"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	CreatedAt   int64           `json:"createdAt"`
	ExpiresAt   *int64          `json:"expiresAt,omitempty"`
}

// AccrualRules задаёт глобальные правила начисления и списания баллов.
type AccrualRules struct {
	PointsPerKES          float64
	ReviewBonus           int64
	ReferralBonusReferrer int64
	ReferralBonusReferee  int64
	MinimumRedeemPoints   int64
	PointValueKES         float64
	// ExpiryDays == 0 отключает срок действия начисленных баллов.
	ExpiryDays int
}

// DefaultAccrualRules возвращает правила по умолчанию: 1 балл за 100 KES, 1 балл = 1 KES.
func DefaultAccrualRules() AccrualRules {
	return AccrualRules{
		PointsPerKES:          0.01,
		ReviewBonus:           50,
		ReferralBonusReferrer: 500,
		ReferralBonusReferee:  250,
		MinimumRedeemPoints:   100,
		PointValueKES:         1,
		ExpiryDays:            365,
	}
}

// RedemptionCheck описывает результат проверки возможности списания.
type RedemptionCheck struct {
	Valid       bool     `json:"valid"`
	Error       string   `json:"error,omitempty"`
	DiscountKES *float64 `json:"discountKES,omitempty"`
}
