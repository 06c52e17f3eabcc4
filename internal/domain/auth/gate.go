package auth

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
)

// AdminRole passes every gate regardless of the configured required role.
const AdminRole = "ADMIN"

const bearerPrefix = "Bearer "

var (
	// ErrMissingHeader is the deny cause for a request without credentials.
	ErrMissingHeader = errors.New("authorization header missing")
	// ErrBadScheme is the deny cause for a header not starting with "Bearer ".
	ErrBadScheme = errors.New("authorization scheme is not bearer")
	// ErrRoleNotPermitted is the deny cause for a valid token with the wrong role.
	ErrRoleNotPermitted = errors.New("role not permitted")
)

// Decision is the outcome of a gate check.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// GateConfig is built once at startup and never changes afterwards.
type GateConfig struct {
	// Secret is the shared HMAC key tokens are signed with.
	Secret []byte
	// RequiredRole is the role, besides AdminRole, allowed through.
	RequiredRole string
}

// Gate decides whether a request may reach a handler. Read-only methods
// always pass; everything else needs a bearer token carrying AdminRole or
// the required role. Gate is safe for concurrent use.
type Gate struct {
	verifier     *Verifier
	requiredRole string
}

// NewGate creates a Gate from cfg. An empty RequiredRole defaults to AdminRole.
func NewGate(cfg GateConfig) *Gate {
	role := cfg.RequiredRole
	if role == "" {
		role = AdminRole
	}
	return &Gate{
		verifier:     NewVerifier(cfg.Secret),
		requiredRole: role,
	}
}

// WithRequiredRole returns a Gate sharing the verifier of g that admits role.
// An empty role admits AdminRole only.
func (g *Gate) WithRequiredRole(role string) *Gate {
	if role == "" {
		role = AdminRole
	}
	return &Gate{verifier: g.verifier, requiredRole: role}
}

// RequiredRole reports the role this gate admits besides AdminRole.
func (g *Gate) RequiredRole() string { return g.requiredRole }

// Authorize returns the decision for a request. header is the raw value of
// the Authorization header, empty when absent.
func (g *Gate) Authorize(method, header string) Decision {
	d, _ := g.Check(method, header)
	return d
}

// Check is Authorize that also reports the cause of a Deny. The cause is
// meant for logs and metrics and must not be shown to the caller.
func (g *Gate) Check(method, header string) (Decision, error) {
	if isReadOnly(method) {
		return Allow, nil
	}
	if header == "" {
		return Deny, ErrMissingHeader
	}
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return Deny, ErrBadScheme
	}

	claims, err := g.verifier.Verify(token)
	if err != nil {
		return Deny, err
	}
	if claims.Role == AdminRole || claims.Role == g.requiredRole {
		return Allow, nil
	}
	return Deny, errors.Wrapf(ErrRoleNotPermitted, "role %q", claims.Role)
}

func isReadOnly(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}
