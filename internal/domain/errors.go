package domain

import (
	"errors"
	"fmt"
)

// Kind классифицирует ошибку для транспортного слоя.
type Kind string

const (
	// KindValidation — некорректные входные данные (400).
	KindValidation Kind = "validation"
	// KindUnauthorized — операция требует аутентифицированного пользователя (401).
	KindUnauthorized Kind = "unauthorized"
	// KindForbidden — несовпадение владельца или роли (403).
	KindForbidden Kind = "forbidden"
	// KindNotFound — отсутствует черновик, заказ или возврат (404).
	KindNotFound Kind = "not_found"
	// KindConflict — недопустимый переход состояния или дубликат (409).
	KindConflict Kind = "conflict"
	// KindUpstream — сбой внешнего провайдера (502).
	KindUpstream Kind = "upstream"
	// KindInternal — сбой хранилища или прочая внутренняя ошибка (500).
	KindInternal Kind = "internal"
)

var (
	// ErrKeyNotFound возвращается хранилищем, если ключ отсутствует или истёк.
	ErrKeyNotFound = errors.New("key not found")
	// ErrMissingIdentity — у запроса нет ни userId, ни sessionId.
	ErrMissingIdentity = Validation("Missing identity")
	// ErrAdminRequired — операция доступна только администраторам.
	ErrAdminRequired = Forbidden("Forbidden: Admin access required")
	// ErrOrderNotFound — заказ не найден.
	ErrOrderNotFound = NotFound("Order not found")
	// ErrReturnNotFound — запрос на возврат не найден.
	ErrReturnNotFound = NotFound("Return not found")
	// ErrDraftNotFound — черновик заказа не найден или истёк.
	ErrDraftNotFound = NotFound("Draft not found")
	// ErrInvalidSignature — подпись вебхука не прошла проверку.
	ErrInvalidSignature = Validation("Invalid webhook signature")
)

// Error представляет ошибку домена с классификацией.
// Message показывается пользователю как есть, Err хранит причину для логов.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is сравнивает ошибки домена по виду и сообщению, чтобы errors.Is
// работал с пересозданными значениями.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// Validation создаёт ошибку валидации.
func Validation(format string, args ...any) *Error {
	return newError(KindValidation, nil, format, args...)
}

// Unauthorized создаёт ошибку отсутствующей аутентификации.
func Unauthorized(format string, args ...any) *Error {
	return newError(KindUnauthorized, nil, format, args...)
}

// Forbidden создаёт ошибку доступа.
func Forbidden(format string, args ...any) *Error {
	return newError(KindForbidden, nil, format, args...)
}

// NotFound создаёт ошибку отсутствующей сущности.
func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, nil, format, args...)
}

// Conflict создаёт ошибку недопустимого состояния.
func Conflict(format string, args ...any) *Error {
	return newError(KindConflict, nil, format, args...)
}

// Upstream оборачивает ошибку внешнего провайдера.
func Upstream(err error, format string, args ...any) *Error {
	return newError(KindUpstream, err, format, args...)
}

// Internal оборачивает внутреннюю ошибку.
func Internal(err error, format string, args ...any) *Error {
	return newError(KindInternal, err, format, args...)
}

func newError(kind Kind, cause error, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// KindOf возвращает вид ошибки; неклассифицированные ошибки считаются внутренними.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf возвращает сообщение для клиента без технических деталей причины.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error"
}
