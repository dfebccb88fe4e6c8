package domain

// PointsHold фиксирует баллы, списанные при оформлении черновика до подтверждения оплаты.
// Снимается при успешной оплате или возвращается на счёт, если черновик истёк.
type PointsHold struct {
	DraftID   string `json:"draftId"`
	UserID    string `json:"userId"`
	Points    int64  `json:"points"`
	CreatedAt int64  `json:"createdAt"`
}

// Validate проверяет обязательные поля резерва баллов.
func (h PointsHold) Validate() error {
	switch {
	case h.DraftID == "":
		return Validation("draft id is required")
	case h.UserID == "":
		return Validation("user id is required")
	case h.Points <= 0:
		return Validation("held points must be positive")
	}
	return nil
}
