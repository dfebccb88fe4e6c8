package domain

import "time"

// ReturnTTL — срок хранения запроса на возврат и индекса по заказу.
const ReturnTTL = 90 * 24 * time.Hour

// ReturnStatus отражает состояние запроса на возврат.
type ReturnStatus string

const (
	ReturnStatusPending  ReturnStatus = "pending"
	ReturnStatusApproved ReturnStatus = "approved"
	ReturnStatusDenied   ReturnStatus = "denied"
	ReturnStatusRefunded ReturnStatus = "refunded"
)

// ReturnReason описывает причину возврата позиции.
type ReturnReason string

const (
	ReasonDefective      ReturnReason = "defective"
	ReasonWrongItem      ReturnReason = "wrong_item"
	ReasonNotAsDescribed ReturnReason = "not_as_described"
	ReasonChangedMind    ReturnReason = "changed_mind"
	ReasonOther          ReturnReason = "other"
)

// Valid проверяет, что причина входит в закрытый список.
func (r ReturnReason) Valid() bool {
	switch r {
	case ReasonDefective, ReasonWrongItem, ReasonNotAsDescribed, ReasonChangedMind, ReasonOther:
		return true
	default:
		return false
	}
}

// ReturnItem ссылается на строку заказа; количество не больше исходного.
type ReturnItem struct {
	OrderItemID string       `json:"orderItemId"`
	ProductID   string       `json:"productId"`
	Title       string       `json:"title"`
	Quantity    int64        `json:"quantity"`
	Reason      ReturnReason `json:"reason"`
	Photos      []string     `json:"photos,omitempty"`
}

// ReturnRequest хранит запрос на возврат, не более одного на заказ.
type ReturnRequest struct {
	ID                string        `json:"id"`
	OrderID           string        `json:"orderId"`
	UserID            string        `json:"userId,omitempty"`
	SessionID         string        `json:"sessionId,omitempty"`
	Items             []ReturnItem  `json:"items"`
	TotalRefundAmount int64         `json:"totalRefundAmount"`
	Status            ReturnStatus  `json:"status"`
	CustomerNote      string        `json:"customerNote,omitempty"`
	AdminNote         string        `json:"adminNote,omitempty"`
	ApprovedBy        string        `json:"approvedBy,omitempty"`
	DeniedBy          string        `json:"deniedBy,omitempty"`
	RefundedAt        *int64        `json:"refundedAt,omitempty"`
	CreatedAt         int64         `json:"createdAt"`
	UpdatedAt         int64         `json:"updatedAt"`
	Events            []ReturnEvent `json:"events"`
}

// Owner возвращает владельца возврата.
func (r *ReturnRequest) Owner() Identity {
	return Identity{UserID: r.UserID, SessionID: r.SessionID}
}

// AppendEvent добавляет событие в журнал возврата.
func (r *ReturnRequest) AppendEvent(eventType string, at time.Time, by, note string) {
	r.Events = append(r.Events, ReturnEvent{Type: eventType, At: at.UnixMilli(), By: by, Note: note})
	r.UpdatedAt = at.UnixMilli()
}

// CreateReturnInput описывает запрос клиента на возврат.
type CreateReturnInput struct {
	OrderID      string       `json:"orderId"`
	Items        []ReturnItem `json:"items"`
	CustomerNote string       `json:"customerNote,omitempty"`
}

// Validate проверяет форму запроса до обращения к хранилищу.
func (in CreateReturnInput) Validate() error {
	if in.OrderID == "" || len(in.Items) == 0 {
		return Validation("Invalid payload")
	}
	for _, item := range in.Items {
		if item.OrderItemID == "" || item.Quantity < 1 {
			return Validation("Invalid payload")
		}
		if !item.Reason.Valid() {
			return Validation("Invalid return reason: %s", item.Reason)
		}
	}
	return nil
}

// ReturnDecision описывает решение администратора.
type ReturnDecision string

const (
	DecisionApprove ReturnDecision = "approve"
	DecisionDeny    ReturnDecision = "deny"
)

// Valid проверяет решение.
func (d ReturnDecision) Valid() bool {
	return d == DecisionApprove || d == DecisionDeny
}

// ReturnDecisionInput описывает тело запроса решения по возврату.
type ReturnDecisionInput struct {
	Decision  ReturnDecision `json:"decision"`
	AdminNote string         `json:"adminNote,omitempty"`
}
