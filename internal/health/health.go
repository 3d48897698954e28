// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package health

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/dixel/internal/api"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 5 * time.Second

// Messages shown for each outcome.
const (
	MessageHealthy     = "Backend accessible"
	MessageUnreachable = "Impossible de se connecter au backend. Vérifiez que le serveur est démarré."
	MessageInvalid     = "Le backend a retourné une réponse invalide"
)

// Kind classifies a probe outcome.
type Kind int

const (
	KindHealthy Kind = iota
	KindTimeout
	KindUnreachable
	KindBadStatus
	KindInvalidResponse
)

// Result is the outcome of one probe.
type Result struct {
	Healthy bool
	Kind    Kind
	Message string
	URL     string
	Latency time.Duration
	// Status is the backend's self-reported status when it answered.
	Status string
}

// Prober is the part of the API client used for probing.
type Prober interface {
	Health(ctx context.Context) (*api.HealthResponse, error)
	BaseURL() string
}

// Probe checks the backend once, giving up after timeout. A zero timeout
// means DefaultTimeout. Probe never returns an error; failures are
// described by the Result.
func Probe(ctx context.Context, p Prober, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := Result{URL: strings.TrimRight(p.BaseURL(), "/") + "/health"}
	start := time.Now()
	resp, err := p.Health(ctx)
	res.Latency = time.Since(start)

	if err == nil {
		res.Healthy = true
		res.Kind = KindHealthy
		res.Message = MessageHealthy
		if resp != nil {
			res.Status = resp.Status
		}
		return res
	}

	res.Kind, res.Message = classify(err, timeout)
	return res
}

func classify(err error, timeout time.Duration) (Kind, string) {
	var (
		transport *api.TransportError
		protocol  *api.ProtocolError
		server    *api.ServerError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &transport) && transport.Timeout():
		return KindTimeout, fmt.Sprintf("Le backend ne répond pas (timeout après %d secondes)", max(1, int(timeout.Round(time.Second).Seconds())))
	case errors.As(err, &transport):
		return KindUnreachable, MessageUnreachable
	case errors.As(err, &protocol):
		if protocol.HTML {
			return KindBadStatus, protocol.Message
		}
		if protocol.Message != "" {
			return KindInvalidResponse, protocol.Message
		}
		return KindInvalidResponse, MessageInvalid
	case errors.As(err, &server):
		if server.Message != "" {
			return KindBadStatus, server.Message
		}
		return KindBadStatus, api.StatusMessage(server.Status, "")
	default:
		return KindUnreachable, err.Error()
	}
}

// Suggestions returns follow-up hints for an unhealthy result.
func (r Result) Suggestions() []string {
	switch r.Kind {
	case KindTimeout:
		return []string{
			"Le backend est peut-être en train de démarrer (sur Render, cela peut prendre 30-60 secondes)",
			"Attendez quelques secondes et réessayez",
		}
	case KindUnreachable:
		return []string{
			"Vérifiez que le backend est déployé et accessible",
			"Vérifiez l'URL du backend (dixel config show)",
		}
	}
	return nil
}

// Detail returns the message followed by any suggestions, one per line.
// It is empty for a healthy result.
func (r Result) Detail() string {
	if r.Healthy {
		return ""
	}
	hints := r.Suggestions()
	if len(hints) == 0 {
		return r.Message
	}
	var b strings.Builder
	b.WriteString(r.Message)
	b.WriteString("\n\nSuggestions:")
	for _, h := range hints {
		b.WriteString("\n• ")
		b.WriteString(h)
	}
	return b.String()
}

// Watch probes every interval until ctx is done, calling fn with each
// result. The first probe runs immediately. It returns nil once ctx ends.
func Watch(ctx context.Context, p Prober, interval, timeout time.Duration, fn func(Result)) error {
	if interval <= 0 {
		return fmt.Errorf("health: watch interval must be positive, got %v", interval)
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	for {
		// Wait fails only when ctx ends or its deadline falls before the
		// next slot.
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}
		fn(Probe(ctx, p, timeout))
	}
}
