package auth // package auth implements the signed-token service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// Audience scopes a token to the single flow it was minted for. A token
// issued for one audience never authorizes an action in another.
type Audience string

const (
	AudienceRegister Audience = "register_user"
	AudienceLogin    Audience = "login_user"
	AudienceReset    Audience = "reset_password_user"
)

// ErrInvalidToken is the caller-visible failure for any bad token. The
// specific sentinels below all wrap it, so handlers collapse every token
// failure to a single 401 while tests can still tell them apart.
var ErrInvalidToken = errors.New("invalid token")

var (
	// ErrBadSignature covers malformed, forged and wrong-algorithm tokens.
	ErrBadSignature = fmt.Errorf("%w: bad signature", ErrInvalidToken)
	// ErrExpired is returned when the token's exp claim has passed.
	ErrExpired = fmt.Errorf("%w: expired", ErrInvalidToken)
	// ErrAudienceMismatch is returned when the aud claim does not match
	// the audience the caller expects.
	ErrAudienceMismatch = fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
)

// Service issues and verifies HS256 tokens with a shared secret. Tokens
// are stateless; there is no revocation list, so compromise is bounded
// only by the TTL.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService builds a Service. A non-positive ttl falls back to one hour.
func NewService(secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token binding the user to the given audience. A
// non-positive ttl uses the service default. The JWT carries standard
// claims: subject (sub), audience (aud), expiration (exp) and issued at (iat).
func (s *Service) Issue(userID uint64, aud Audience, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": userID,
		"aud": string(aud),
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Verify parses the token, checks signature and expiry, and requires the
// aud claim to equal want. On success it returns the subject user id.
func (s *Service) Verify(token string, want Audience) (uint64, error) {
	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadSignature
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrExpired
		}
		return 0, ErrBadSignature
	}
	if !tok.Valid {
		return 0, ErrBadSignature
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrBadSignature
	}
	if aud, _ := claims["aud"].(string); aud != string(want) {
		return 0, ErrAudienceMismatch
	}
	return subjectID(claims)
}

// subjectID extracts the sub claim. JSON numbers decode as float64, but
// tokens minted by other services may carry the id as a string.
func subjectID(claims jwt.MapClaims) (uint64, error) {
	switch v := claims["sub"].(type) {
	case float64:
		if v < 0 {
			return 0, ErrBadSignature
		}
		return uint64(v), nil
	case string:
		var id uint64
		if _, err := fmt.Sscanf(v, "%d", &id); err != nil {
			return 0, ErrBadSignature
		}
		return id, nil
	default:
		return 0, ErrBadSignature
	}
}
