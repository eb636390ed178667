// Package apperr is the closed error taxonomy for the NathIA gateway.
// Every error surfaced outside the gateway is one of these kinds, never a
// raw transport error. Each kind carries a technical message, a pre-written
// user-facing message, an optional wrapped cause, and a free-form context
// map for diagnostics.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies one kind of failure.
type Code string

const (
	// Network
	NetworkError     Code = "NETWORK_ERROR"
	RequestTimeout   Code = "REQUEST_TIMEOUT"
	ConnectionFailed Code = "CONNECTION_FAILED"
	RequestCancelled Code = "REQUEST_CANCELLED"

	// Authentication
	Unauthorized   Code = "UNAUTHORIZED"
	Forbidden      Code = "FORBIDDEN"
	SessionExpired Code = "SESSION_EXPIRED"

	// Validation
	ValidationError Code = "VALIDATION_ERROR"
	InvalidInput    Code = "INVALID_INPUT"

	// API
	APIError           Code = "API_ERROR"
	RateLimited        Code = "RATE_LIMITED"
	ServiceUnavailable Code = "SERVICE_UNAVAILABLE"

	// Upload
	UploadFailed Code = "UPLOAD_FAILED"

	// AI
	AIServiceError   Code = "AI_SERVICE_ERROR"
	GenerationFailed Code = "GENERATION_FAILED"

	// Generic
	Unknown Code = "UNKNOWN_ERROR"
)

// userMessages maps every code to a non-technical message shown to the end
// user. Stack traces and the context map are only ever logged.
var userMessages = map[Code]string{
	NetworkError:     "Erro de conexão. Verifique sua internet.",
	RequestTimeout:   "A requisição demorou muito. Tente novamente.",
	ConnectionFailed: "Não foi possível conectar. Verifique sua conexão.",
	RequestCancelled: "A requisição foi cancelada.",

	Unauthorized:   "Você não está autenticada. Faça login para continuar.",
	Forbidden:      "Acesso negado.",
	SessionExpired: "Sua sessão expirou. Faça login novamente.",

	ValidationError: "Os dados fornecidos são inválidos.",
	InvalidInput:    "Entrada inválida. Verifique os dados.",

	APIError:           "Erro ao conectar com o servidor.",
	RateLimited:        "Você está enviando muitas mensagens. Aguarde.",
	ServiceUnavailable: "Serviço indisponível no momento.",

	UploadFailed: "Falha no upload. Tente novamente.",

	AIServiceError:   "Erro do serviço de IA. Tente novamente.",
	GenerationFailed: "Não consegui processar sua solicitação. Tente novamente.",

	Unknown: "Ocorreu um erro inesperado.",
}

// UserMessage returns the pre-written user-facing message for a code.
func UserMessage(code Code) string {
	if msg, ok := userMessages[code]; ok {
		return msg
	}
	return userMessages[Unknown]
}

// Error is the gateway's typed error.
type Error struct {
	Code    Code
	Message string
	// UserMsg is the non-technical message safe to show the end user.
	UserMsg string
	// Context is free-form diagnostic data, merged additively when an
	// already-typed error passes through another layer.
	Context map[string]any

	cause error
}

// New creates a typed error. An empty userMsg falls back to the code's
// pre-written message.
func New(code Code, message, userMsg string) *Error {
	if userMsg == "" {
		userMsg = UserMessage(code)
	}
	return &Error{Code: code, Message: message, UserMsg: userMsg}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the original lower-level error, preserving the cause
// chain for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// WithCause attaches the original error. Returns e for chaining.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// WithContext merges key/value pairs into the context map. Existing keys
// are overwritten; the map is created lazily.
func (e *Error) WithContext(kv map[string]any) *Error {
	if len(kv) == 0 {
		return e
	}
	if e.Context == nil {
		e.Context = make(map[string]any, len(kv))
	}
	for k, v := range kv {
		e.Context[k] = v
	}
	return e
}

// Wrap converts any error into a typed *Error. An error that is already
// typed keeps its original classification and only has its context merged —
// wrapping happens exactly once.
func Wrap(err error, code Code, userMsg string, ctx map[string]any) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.WithContext(ctx)
	}

	wrapped := New(code, err.Error(), userMsg).WithCause(err)
	return wrapped.WithContext(ctx)
}

// As extracts a typed *Error from an error chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// IsCode reports whether err is a typed error with the given code.
func IsCode(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// Classify maps a raw lower-level error onto the taxonomy using
// message-pattern heuristics. Already-typed errors keep their code.
func Classify(err error) Code {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	if err == nil {
		return Unknown
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return RequestTimeout
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset"):
		return ConnectionFailed
	case strings.Contains(msg, "network") || strings.Contains(msg, "no such host") || strings.Contains(msg, "offline"):
		return NetworkError
	case strings.Contains(msg, "401"):
		return Unauthorized
	case strings.Contains(msg, "403"):
		return Forbidden
	case strings.Contains(msg, "429"):
		return RateLimited
	case strings.Contains(msg, "503"):
		return ServiceUnavailable
	default:
		return Unknown
	}
}
