package usecase

import (
	"errors"
	"fmt"

	"workspace-assistant/internal/domain/ports/adapter"
)

// FriendlyErrorPrefix opens every user-visible failure message.
const FriendlyErrorPrefix = "Lucy's tired right now, has to take a nap. Come back later."

const (
	reasonRateLimit  = "Rate limit reached."
	reasonTooMany    = "Too many tokens."
	reasonBadRequest = "Bad request."
	reasonUnexpected = "Unexpected error."
)

// errorKind classifies err, falling back to message inspection for errors
// that did not come from a provider adapter.
func errorKind(err error) adapter.ProviderErrorKind {
	var pe *adapter.ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return adapter.ClassifyProviderError(0, err.Error())
}

// FriendlyErrorMessage is the text stored and shown in place of a reply.
// Diagnostic details never leak into it.
func FriendlyErrorMessage(err error) string {
	reason := reasonUnexpected
	switch errorKind(err) {
	case adapter.ProviderErrRateLimit:
		reason = reasonRateLimit
	case adapter.ProviderErrContextLength:
		reason = reasonTooMany
	case adapter.ProviderErrBadRequest:
		reason = reasonBadRequest
	}
	return FriendlyErrorPrefix + " " + reason
}

// ProviderDiagnostic is the operator-facing record of a failure, persisted
// as provider_error_json.
func ProviderDiagnostic(err error) map[string]any {
	out := map[string]any{
		"type":    fmt.Sprintf("%T", err),
		"message": err.Error(),
		"kind":    string(errorKind(err)),
	}
	var pe *adapter.ProviderError
	if errors.As(err, &pe) {
		out["provider"] = pe.Provider
		if pe.Type != "" {
			out["type"] = pe.Type
		}
		if pe.Message != "" {
			out["message"] = pe.Message
		}
		if pe.StatusCode != 0 {
			out["status_code"] = pe.StatusCode
		}
		if pe.RawBody != "" {
			out["body"] = pe.RawBody
		}
	}
	return out
}
