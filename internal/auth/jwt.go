package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coder/quartz"
	"github.com/golang-jwt/jwt/v5"

	svcErr "github.com/oggyb/devmatch/internal/errors"
)

var (
	ErrMissingToken = svcErr.Unauth("not authorised", nil)
	errBadSubject   = errors.New("token carries no valid user id")
)

// Claims is the access-token payload. userId is kept as a string claim so
// tokens issued by the REST side verify unchanged.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 access tokens and extracts the user identity.
type Authenticator struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  quartz.Clock
}

// NewAuthenticator creates an Authenticator. issuer may be empty to accept any issuer.
func NewAuthenticator(secret, issuer string, ttl time.Duration, clock quartz.Clock) (*Authenticator, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret key cannot be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("JWT token TTL must be positive")
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Authenticator{secret: []byte(secret), issuer: issuer, ttl: ttl, clock: clock}, nil
}

// Issue signs an access token for userID. Used by the seed command and tests;
// production tokens come from the REST login flow with the same secret.
func (a *Authenticator) Issue(userID uint64) (string, error) {
	now := a.clock.Now()
	id := strconv.FormatUint(userID, 10)
	claims := Claims{
		UserID: id,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    a.issuer,
			Subject:   id,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify checks signature and expiry and returns the embedded user ID.
//
// Behavior:
//   - Empty token → ErrMissingToken.
//   - Non-HMAC signing method, bad signature, expired, wrong issuer → Unauthenticated.
//   - userId claim is preferred; sub is the fallback.
func (a *Authenticator) Verify(token string) (uint64, error) {
	if token == "" {
		return 0, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithTimeFunc(func() time.Time { return a.clock.Now() }),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, opts...)
	if err != nil {
		return 0, svcErr.Unauth("invalid token", err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return 0, svcErr.Unauth("invalid token", nil)
	}

	raw := claims.UserID
	if raw == "" {
		raw = claims.Subject
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, svcErr.Unauth("invalid token", errBadSubject)
	}
	return id, nil
}

// BearerToken strips the "Bearer " scheme from an Authorization value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// TokenFromRequest reads the handshake credential: Authorization header first,
// then the "token" query parameter (browsers cannot set headers on websocket dials).
func TokenFromRequest(r *http.Request) string {
	if t := BearerToken(r.Header.Get("Authorization")); t != "" {
		return t
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
