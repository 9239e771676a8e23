package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ErrorCode string

const (
	CodeValidation ErrorCode = "VALIDATION"
	CodeNotFound   ErrorCode = "NOT_FOUND"
	CodeConflict   ErrorCode = "CONFLICT"
	CodeForbidden  ErrorCode = "FORBIDDEN"
	CodeUpstream   ErrorCode = "UPSTREAM"
)

// Error: типизированная ошибка ядра. Alternatives заполняется только
// для конфликтов при выборе слота.
type Error struct {
	Code         ErrorCode
	Message      string
	Alternatives []string
	Err          error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf возвращает код ошибки; нетипизированные ошибки считаются UPSTREAM.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUpstream
}

func AlternativesOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Alternatives
	}
	return nil
}

// MessageOf: текст для клиента без деталей нижних слоёв.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

func validationError(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func notFound(what string) *Error {
	return &Error{Code: CodeNotFound, Message: what + " not found"}
}

func conflict(msg string, alternatives []string, cause error) *Error {
	return &Error{Code: CodeConflict, Message: msg, Alternatives: alternatives, Err: cause}
}

func forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

func upstream(op string, err error) *Error {
	return &Error{Code: CodeUpstream, Message: op + " failed", Err: err}
}

// fromValidator переводит ошибки validator/v10 в одно сообщение.
func fromValidator(err error) *Error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return validationError("invalid input: %v", err)
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s is %s", fe.Field(), tagText(fe.Tag())))
		}
	}
	return validationError("%s", strings.Join(parts, "; "))
}

func tagText(tag string) string {
	switch tag {
	case "required":
		return "required"
	case "uuid":
		return "not a valid uuid"
	default:
		return "invalid (" + tag + ")"
	}
}
