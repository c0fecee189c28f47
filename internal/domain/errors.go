package domain

import "errors"

// Коды ошибок ядра. Транспортный слой отображает их на HTTP статусы,
// сервисы никогда не отдают наружу сырые ошибки хранилища.
var (
	ErrNotFound            = errors.New("resource not found")
	ErrForbidden           = errors.New("forbidden")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrBadInput            = errors.New("invalid input")
	ErrFileExists          = errors.New("name already exists in parent")
	ErrDuplicatePermission = errors.New("permission already exists")
	ErrCycle               = errors.New("cannot move a folder into its own subtree")
	ErrGone                = errors.New("link has expired")
	ErrUnauthorized        = errors.New("password required or invalid")
	ErrInternal            = errors.New("internal error")
)

// CodeOf возвращает строковый код ошибки для ответа клиенту
func CodeOf(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrPermissionDenied):
		return "PERMISSION_DENIED"
	case errors.Is(err, ErrBadInput):
		return "BAD_INPUT"
	case errors.Is(err, ErrFileExists):
		return "FILE_EXISTS"
	case errors.Is(err, ErrDuplicatePermission):
		return "DUPLICATE_PERMISSION"
	case errors.Is(err, ErrCycle):
		return "CYCLE"
	case errors.Is(err, ErrGone):
		return "GONE"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	default:
		return "INTERNAL_ERROR"
	}
}
