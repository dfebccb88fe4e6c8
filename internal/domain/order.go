package domain

import "time"

// DraftTTL — срок жизни черновика заказа до подтверждения оплаты.
const DraftTTL = time.Hour

// TaxRate — ставка НДС, применяемая к подытогу.
const TaxRate = 0.16

// PaymentProviderStripe — провайдер платежей по умолчанию.
const PaymentProviderStripe = "stripe"

// ShippingMethod описывает способ доставки.
type ShippingMethod string

const (
	// ShippingStandard — обычная доставка.
	ShippingStandard ShippingMethod = "standard"
	// ShippingExpress — ускоренная доставка.
	ShippingExpress ShippingMethod = "express"
)

// Valid проверяет, что способ доставки поддерживается.
func (m ShippingMethod) Valid() bool {
	return m == ShippingStandard || m == ShippingExpress
}

// ParseShippingMethod разбирает значение из запроса; пустая строка означает standard.
func ParseShippingMethod(raw string) (ShippingMethod, error) {
	if raw == "" {
		return ShippingStandard, nil
	}
	m := ShippingMethod(raw)
	if !m.Valid() {
		return "", Validation("Invalid shipping method: %s", raw)
	}
	return m, nil
}

// DraftStatus описывает состояние черновика.
type DraftStatus string

const (
	// DraftStatusPendingPayment — ожидаем подтверждение оплаты.
	DraftStatusPendingPayment DraftStatus = "pending_payment"
	// DraftStatusFailed — оплата отклонена.
	DraftStatusFailed DraftStatus = "failed"
	// DraftStatusExpired — черновик истёк без оплаты.
	DraftStatusExpired DraftStatus = "expired"
)

// OrderStatus описывает жизненный цикл оплаченного заказа.
type OrderStatus string

const (
	// OrderStatusPaid — оплата подтверждена вебхуком.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusProcessing — заказ собирается.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ доставлен.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusRefunded — средства по возврату выплачены.
	OrderStatusRefunded OrderStatus = "refunded"
	// OrderStatusReturnRequested — клиент запросил возврат.
	OrderStatusReturnRequested OrderStatus = "return_requested"
	// OrderStatusReturnApproved — возврат одобрен.
	OrderStatusReturnApproved OrderStatus = "return_approved"
	// OrderStatusReturnDenied — в возврате отказано.
	OrderStatusReturnDenied OrderStatus = "return_denied"
)

// OrderStatuses перечисляет все допустимые статусы заказа.
var OrderStatuses = []OrderStatus{
	OrderStatusPaid,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRefunded,
	OrderStatusReturnRequested,
	OrderStatusReturnApproved,
	OrderStatusReturnDenied,
}

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	for _, status := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Returnable сообщает, можно ли оформить возврат по заказу в этом статусе.
func (s OrderStatus) Returnable() bool {
	switch s {
	case OrderStatusPaid, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered:
		return true
	default:
		return false
	}
}

// ParseOrderStatus разбирает статус из запроса.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if !s.Valid() {
		return "", Validation("Invalid order status: %s", raw)
	}
	return s, nil
}

// Address описывает адрес доставки.
type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
}

// Totals хранит финансовую часть черновика и заказа.
type Totals struct {
	Subtotal int64   `json:"subtotal"`
	Tax      int64   `json:"tax"`
	TaxRate  float64 `json:"taxRate"`
	Shipping int64   `json:"shipping"`
	// PointsDiscount и PointsRedeemed отсутствуют, если баллы не списывались.
	PointsDiscount *int64 `json:"pointsDiscount,omitempty"`
	PointsRedeemed *int64 `json:"pointsRedeemed,omitempty"`
	Total          int64  `json:"total"`
}

// OrderDraft хранит неоплаченный снимок заказа. После создания не изменяется.
type OrderDraft struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId,omitempty"`
	SessionID string     `json:"sessionId,omitempty"`
	Items     []CartItem `json:"items"`
	Currency  string     `json:"currency"`
	Totals
	ShippingMethod  ShippingMethod `json:"shippingMethod"`
	Address         *Address       `json:"address,omitempty"`
	Status          DraftStatus    `json:"status"`
	CreatedAt       int64          `json:"createdAt"`
	PaymentProvider string         `json:"paymentProvider"`
}

// Order агрегирует оплаченный заказ. ID совпадает с ID исходного черновика.
type Order struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId,omitempty"`
	SessionID string     `json:"sessionId,omitempty"`
	Items     []CartItem `json:"items"`
	Currency  string     `json:"currency"`
	Totals
	ShippingMethod  ShippingMethod `json:"shippingMethod"`
	Address         *Address       `json:"address,omitempty"`
	Status          OrderStatus    `json:"status"`
	CreatedAt       int64          `json:"createdAt"`
	PaymentProvider string         `json:"paymentProvider"`
	PaymentIntentID string         `json:"paymentIntentId"`
	// Events — журнал аудита, только добавление.
	Events         []OrderEvent `json:"events"`
	TrackingNumber string       `json:"trackingNumber,omitempty"`
	RefundedAmount *int64       `json:"refundedAmount,omitempty"`
}

// Owner возвращает владельца заказа.
func (o *Order) Owner() Identity {
	return Identity{UserID: o.UserID, SessionID: o.SessionID}
}

// AppendEvent добавляет событие в журнал аудита.
func (o *Order) AppendEvent(eventType string, at time.Time, data map[string]any) {
	o.Events = append(o.Events, OrderEvent{Type: eventType, At: at.UnixMilli(), Data: data})
}

// FindItem ищет строку заказа по её идентификатору.
func (o *Order) FindItem(itemID string) (CartItem, bool) {
	for _, item := range o.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return CartItem{}, false
}

// NewOrderFromDraft переносит финансовые поля черновика без изменений и
// фиксирует оплату событием paid.
func NewOrderFromDraft(draft OrderDraft, paymentIntentID, eventID string, now time.Time) Order {
	order := Order{
		ID:              draft.ID,
		UserID:          draft.UserID,
		SessionID:       draft.SessionID,
		Items:           CloneItems(draft.Items),
		Currency:        draft.Currency,
		Totals:          draft.Totals,
		ShippingMethod:  draft.ShippingMethod,
		Address:         draft.Address,
		Status:          OrderStatusPaid,
		CreatedAt:       draft.CreatedAt,
		PaymentProvider: draft.PaymentProvider,
		PaymentIntentID: paymentIntentID,
	}
	if order.PaymentProvider == "" {
		order.PaymentProvider = PaymentProviderStripe
	}
	order.AppendEvent(EventPaid, now, map[string]any{"eventId": eventID})
	return order
}
