package domain

// OrderEvent хранит запись журнала аудита заказа.
type OrderEvent struct {
	Type string `json:"type"`
	// At — время события в миллисекундах Unix.
	At   int64          `json:"at"`
	Data map[string]any `json:"data,omitempty"`
}

// ReturnEvent хранит запись журнала аудита возврата.
type ReturnEvent struct {
	Type string `json:"type"`
	At   int64  `json:"at"`
	By   string `json:"by,omitempty"`
	Note string `json:"note,omitempty"`
}

// Типы событий, общие для заказов и возвратов.
const (
	EventPaid            = "paid"
	EventStatusUpdated   = "status_updated"
	EventReturnRequested = "return_requested"
	EventReturnApproved  = "return_approved"
	EventReturnDenied    = "return_denied"
	EventRefunded        = "refunded"
	EventCreated         = "created"
	EventApproved        = "approved"
	EventDenied          = "denied"
)
