package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	rolesClaim    = "roles"
	usernameClaim = "username"
)

// tokens signs and verifies HS256 access tokens for counsellor sessions.
type tokens struct {
	secret   []byte
	issuer   string
	audience string
	skew     time.Duration
	ttl      time.Duration
	now      func() time.Time
}

func (t tokens) sign(p Principal) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	tok, err := jwt.NewBuilder().
		JwtID(uuid.NewString()).
		Subject(p.UserID).
		Issuer(t.issuer).
		Audience([]string{t.audience}).
		IssuedAt(now).
		NotBefore(now.Add(-t.skew)).
		Expiration(exp).
		Claim(usernameClaim, p.Username).
		Claim(rolesClaim, p.Roles).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, t.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), exp, nil
}

// verify accepts only HS256 signatures made with the service secret, so
// "none" and asymmetric-algorithm tokens fail at signature verification.
func (t tokens) verify(raw string) (Principal, error) {
	tok, err := jwt.ParseString(raw,
		jwt.WithKey(jwa.HS256, t.secret),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(t.now)),
		jwt.WithAcceptableSkew(t.skew),
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(t.audience),
		jwt.WithRequiredClaim(jwt.SubjectKey),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("auth: verify token: %w", err)
	}
	return principalOf(tok), nil
}

func principalOf(tok jwt.Token) Principal {
	p := Principal{UserID: tok.Subject()}
	if v, ok := tok.Get(usernameClaim); ok {
		p.Username, _ = v.(string)
	}
	v, _ := tok.Get(rolesClaim)
	switch roles := v.(type) {
	case []string:
		p.Roles = append(p.Roles, roles...)
	case []any:
		for _, r := range roles {
			if s, ok := r.(string); ok {
				p.Roles = append(p.Roles, s)
			}
		}
	}
	return p
}
