package admin

import (
	"sort"
	"strings"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
)

// Allowlist хранит пользователей с правами администратора.
type Allowlist struct {
	ids map[string]struct{}
}

// NewAllowlist строит список из идентификаторов; пустые значения отбрасываются.
func NewAllowlist(ids []string) *Allowlist {
	list := &Allowlist{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			list.ids[id] = struct{}{}
		}
	}
	return list
}

// ParseAllowlist разбирает значение ADMIN_USER_IDS через запятую.
func ParseAllowlist(raw string) *Allowlist {
	return NewAllowlist(strings.Split(raw, ","))
}

// IsAdmin сообщает, является ли пользователь администратором.
func (l *Allowlist) IsAdmin(userID string) bool {
	if l == nil || userID == "" {
		return false
	}
	_, ok := l.ids[userID]
	return ok
}

// Require возвращает ErrAdminRequired для всех, кроме администраторов.
func (l *Allowlist) Require(userID string) error {
	if !l.IsAdmin(userID) {
		return domain.ErrAdminRequired
	}
	return nil
}

// Len возвращает число администраторов.
func (l *Allowlist) Len() int {
	if l == nil {
		return 0
	}
	return len(l.ids)
}

// IDs возвращает идентификаторы администраторов в отсортированном порядке.
func (l *Allowlist) IDs() []string {
	if l == nil {
		return nil
	}
	ids := make([]string, 0, len(l.ids))
	for id := range l.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
