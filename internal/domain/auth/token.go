package auth

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

// VerificationKind classifies why a token was rejected.
type VerificationKind int

const (
	// KindMalformed means the token could not be decoded.
	KindMalformed VerificationKind = iota + 1
	// KindSignature means the signature or signing method did not check out.
	KindSignature
	// KindExpired means the token is outside its exp/nbf validity window.
	KindExpired
	// KindMissingRole means the role claim is absent or not a string.
	KindMissingRole
)

func (k VerificationKind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindSignature:
		return "signature"
	case KindExpired:
		return "expired"
	case KindMissingRole:
		return "missing_role"
	default:
		return "unknown"
	}
}

// VerificationError is returned by Verifier.Verify.
type VerificationError struct {
	Kind VerificationKind
	Err  error
}

func (e *VerificationError) Error() string {
	if e.Err == nil {
		return "verify token: " + e.Kind.String()
	}
	return "verify token: " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *VerificationError) Unwrap() error { return e.Err }

// Claims is the part of a verified token the gate relies on.
type Claims struct {
	Role string
}

// roleClaim is the token claim carrying the caller's role.
const roleClaim = "role"

var hmacMethods = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

// Verifier checks HMAC-signed compact JWTs against a shared secret.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier returns a Verifier for the given secret. The secret is copied.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
}

// Verify parses token, checks its signature and validity window, and
// extracts the role claim. All other claims are ignored.
func (v *Verifier) Verify(token string) (Claims, error) {
	parsed, err := jwt.Parse(token,
		func(*jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods(hmacMethods),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return Claims{}, &VerificationError{Kind: classify(err), Err: err}
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, &VerificationError{Kind: KindMalformed}
	}
	role, ok := mc[roleClaim].(string)
	if !ok {
		return Claims{}, &VerificationError{Kind: KindMissingRole}
	}
	return Claims{Role: role}, nil
}

func classify(err error) VerificationKind {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return KindMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return KindSignature
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
		return KindExpired
	default:
		return KindMalformed
	}
}
