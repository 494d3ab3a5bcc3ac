package auth

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
)

var tokenEpoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func testTokens(at *time.Time) tokens {
	return tokens{
		secret:   []byte("s3cret"),
		issuer:   "spark-configurator",
		audience: "spark-counsellor",
		skew:     time.Second,
		ttl:      time.Hour,
		now:      func() time.Time { return *at },
	}
}

func TestTokensRoundTrip(t *testing.T) {
	now := tokenEpoch
	tk := testTokens(&now)
	raw, exp, err := tk.sign(Principal{UserID: "acct-1", Username: "priya", Roles: []string{RoleCounsellor}})
	require.NoError(t, err)
	require.Equal(t, tokenEpoch.Add(time.Hour), exp)

	p, err := tk.verify(raw)
	require.NoError(t, err)
	require.Equal(t, Principal{UserID: "acct-1", Username: "priya", Roles: []string{RoleCounsellor}}, p)

	now = exp.Add(2 * time.Second)
	_, err = tk.verify(raw)
	require.Error(t, err)
}

func TestTokensRejectForeignTokens(t *testing.T) {
	now := tokenEpoch
	tk := testTokens(&now)
	build := func(issuer, audience, subject string) jwt.Token {
		b := jwt.NewBuilder().Issuer(issuer).Audience([]string{audience}).IssuedAt(now).Expiration(now.Add(time.Minute))
		if subject != "" {
			b = b.Subject(subject)
		}
		tok, err := b.Build()
		require.NoError(t, err)
		return tok
	}
	signWith := func(tok jwt.Token, key []byte) string {
		signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, key))
		require.NoError(t, err)
		return string(signed)
	}

	cases := map[string]string{
		"other issuer":   signWith(build("elsewhere", tk.audience, "a"), tk.secret),
		"other audience": signWith(build(tk.issuer, "parents-app", "a"), tk.secret),
		"no subject":     signWith(build(tk.issuer, tk.audience, ""), tk.secret),
		"wrong key":      signWith(build(tk.issuer, tk.audience, "a"), []byte("guessed")),
		"garbage":        "not.a.jwt",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tk.verify(raw)
			require.Error(t, err)
		})
	}
}

func TestTokensRejectUnsignedToken(t *testing.T) {
	now := tokenEpoch
	tk := testTokens(&now)
	tok, err := jwt.NewBuilder().Issuer(tk.issuer).Audience([]string{tk.audience}).Subject("a").Expiration(now.Add(time.Minute)).Build()
	require.NoError(t, err)
	unsigned, err := jwt.NewSerializer().Serialize(tok)
	require.NoError(t, err)
	_, err = tk.verify(string(unsigned))
	require.Error(t, err)
}

func TestPrincipalOfSkipsNonStringRoles(t *testing.T) {
	tok, err := jwt.NewBuilder().
		Subject("acct-1").
		Claim(usernameClaim, "priya").
		Claim(rolesClaim, []any{"admin", "counsellor", 7}).
		Build()
	require.NoError(t, err)
	p := principalOf(tok)
	require.Equal(t, "priya", p.Username)
	require.Equal(t, []string{"admin", "counsellor"}, p.Roles)
}
