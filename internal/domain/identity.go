package domain

// Identity определяет владельца корзины, черновика или возврата.
// UserID имеет приоритет над SessionID после входа пользователя.
type Identity struct {
	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// Validate проверяет, что задан хотя бы один идентификатор.
func (i Identity) Validate() error {
	if i.UserID == "" && i.SessionID == "" {
		return ErrMissingIdentity
	}
	return nil
}

// Authenticated сообщает, известен ли пользователь.
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// Effective возвращает идентичность, по которой ведётся владение:
// при наличии userId сессия игнорируется.
func (i Identity) Effective() Identity {
	if i.UserID != "" {
		return Identity{UserID: i.UserID}
	}
	return Identity{SessionID: i.SessionID}
}

// Owns проверяет, принадлежит ли ресурс с владельцем owner этой идентичности.
func (i Identity) Owns(owner Identity) bool {
	if i.UserID != "" {
		return owner.UserID == i.UserID
	}
	return i.SessionID != "" && owner.UserID == "" && owner.SessionID == i.SessionID
}
