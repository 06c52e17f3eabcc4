package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/bookstore-catalog/internal/domain/auth"
)

// SecurityHandler puts a role gate in front of API handlers. Denied requests
// get 401 with the same body whatever the cause; the cause is only logged
// and counted.
type SecurityHandler struct {
	gate   *auth.Gate
	denied metric.Int64Counter
}

// NewSecurityHandler creates a SecurityHandler for gate, recording denials
// on meter.
func NewSecurityHandler(gate *auth.Gate, meter metric.Meter) (*SecurityHandler, error) {
	denied, err := meter.Int64Counter("catalog.auth.denied",
		metric.WithDescription("Requests rejected by the role gate"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create denied counter")
	}
	return &SecurityHandler{gate: gate, denied: denied}, nil
}

// Protect returns next guarded by the gate. next never runs for a denied
// request.
func (s *SecurityHandler) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision, cause := s.gate.Check(r.Method, r.Header.Get("Authorization"))
		if decision == auth.Allow {
			next.ServeHTTP(w, r)
			return
		}

		reason := denyReason(cause)
		s.denied.Add(r.Context(), 1, metric.WithAttributes(
			attribute.String("reason", reason),
			attribute.String("required_role", s.gate.RequiredRole()),
		))
		zctx.From(r.Context()).Debug("Request denied",
			zap.String("reason", reason),
			zap.Error(cause),
		)
		writeError(w, http.StatusUnauthorized, msgNotAuthorized)
	})
}

func denyReason(err error) string {
	var verr *auth.VerificationError
	switch {
	case errors.Is(err, auth.ErrMissingHeader):
		return "missing_header"
	case errors.Is(err, auth.ErrBadScheme):
		return "bad_scheme"
	case errors.Is(err, auth.ErrRoleNotPermitted):
		return "role"
	case errors.As(err, &verr):
		return verr.Kind.String()
	default:
		return "unknown"
	}
}
