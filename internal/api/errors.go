// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for common conditions.
var (
	// ErrUnauthorized matches any 401 or 403 response.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound matches any 404 response.
	ErrNotFound = errors.New("not found")
	// ErrNoToken is returned by authenticated calls made without a token.
	ErrNoToken = errors.New("not authenticated")
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// AuthError is a rejected login or signup: bad credentials or input that
// failed server-side validation.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// Is matches ErrUnauthorized for 401 and 403 responses.
func (e *AuthError) Is(target error) bool {
	return target == ErrUnauthorized && rejected(e.Status)
}

func rejected(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// TransportError means no HTTP response was received.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request gave up waiting.
func (e *TransportError) Timeout() bool {
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// ProtocolError means the response body could not be interpreted.
type ProtocolError struct {
	Status  int
	Message string
	// HTML is set when the body was an HTML page rather than JSON, which
	// usually means the backend is down or the URL points elsewhere.
	HTML bool
	Err  error
}

func (e *ProtocolError) Error() string {
	return e.Message
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ServerError is a non-2xx response that is not an authentication failure.
type ServerError struct {
	Status int
	// Message is the user-facing explanation.
	Message string
	// Detail is the backend's own {detail} text, if it sent one.
	Detail string
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Detail)
	}
	return e.Message
}

// Is matches ErrUnauthorized and ErrNotFound by status.
func (e *ServerError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return rejected(e.Status)
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// =============================================================================
// MESSAGES
// =============================================================================

// StatusMessage returns the user-facing text for an HTTP status.
func StatusMessage(status int, statusText string) string {
	switch status {
	case http.StatusNotFound:
		return "Endpoint introuvable. Vérifiez que le backend est correctement déployé et que l'URL est correcte."
	case http.StatusInternalServerError:
		return "Erreur interne du serveur. Le backend a rencontré une erreur. Vérifiez les logs du backend."
	case http.StatusServiceUnavailable:
		return "Service indisponible. Le backend est peut-être en train de démarrer ou est surchargé."
	case http.StatusBadGateway:
		return "Bad Gateway. Le serveur proxy a reçu une réponse invalide du backend."
	case http.StatusGatewayTimeout:
		return "Gateway Timeout. Le backend a pris trop de temps à répondre."
	default:
		if statusText == "" {
			statusText = http.StatusText(status)
		}
		return fmt.Sprintf("Erreur %d: %s. Vérifiez que le backend est accessible et fonctionne correctement.", status, statusText)
	}
}

// IsHTML reports whether body looks like an HTML document.
func IsHTML(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	return strings.HasPrefix(trimmed, "<!DOCTYPE") || strings.HasPrefix(trimmed, "<html")
}

func htmlError(status int, statusText string) *ProtocolError {
	return &ProtocolError{
		Status: status,
		HTML:   true,
		Message: "Le serveur a retourné une page d'erreur HTML au lieu d'une réponse JSON. " +
			"Le backend est peut-être en erreur ou l'endpoint n'existe pas. " +
			fmt.Sprintf("Status: %d %s", status, statusText),
	}
}

// decodeJSON unmarshals body into out, classifying HTML and malformed bodies.
func decodeJSON(body []byte, status int, statusText string, out any) error {
	if IsHTML(body) {
		return htmlError(status, statusText)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ProtocolError{
			Status: status,
			Err:    err,
			Message: "Impossible de parser la réponse du serveur comme JSON. " +
				"Le serveur a peut-être retourné une erreur. " +
				fmt.Sprintf("Status: %d %s", status, statusText),
		}
	}
	return nil
}

// =============================================================================
// DETAIL PARSING
// =============================================================================

// validationIssue is one entry of a validation-error detail array.
type validationIssue struct {
	Msg  string `json:"msg"`
	Type string `json:"type"`
	Loc  []any  `json:"loc,omitempty"`
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// parseDetail extracts {detail} from an error body. detail may be a string
// or an array of {msg, type}. It returns "" when the body has no detail.
func parseDetail(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(eb.Detail, &s); err == nil {
		return s
	}

	var issues []validationIssue
	if err := json.Unmarshal(eb.Detail, &issues); err == nil {
		msgs := make([]string, 0, len(issues))
		for _, issue := range issues {
			if issue.Msg != "" {
				msgs = append(msgs, issue.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return strings.TrimSpace(string(eb.Detail))
}

// errorFromResponse maps a non-2xx response to the error taxonomy.
// authEndpoint selects AuthError for responses that carry a detail.
func errorFromResponse(status int, statusText string, body []byte, authEndpoint bool) error {
	if IsHTML(body) {
		return htmlError(status, statusText)
	}

	detail := parseDetail(body)
	if authEndpoint && detail != "" && status < 500 {
		return &AuthError{Status: status, Message: detail}
	}

	return &ServerError{
		Status:  status,
		Message: StatusMessage(status, statusText),
		Detail:  detail,
	}
}
