package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"

	"github.com/remotehive-dev/Spark-Configurator/internal/common"
)

const (
	defaultAccessTTL  = 8 * time.Hour
	minPasswordLength = 8
)

var errInvalidCredentials = common.NewAppError("INVALID_CREDENTIALS", "invalid username or password", http.StatusUnauthorized, nil)

func unknownAccount() error { return common.NotFound("account not found") }

func checkPassword(password string) error {
	if len(password) < minPasswordLength {
		return common.NewAppError("WEAK_PASSWORD", fmt.Sprintf("password must be at least %d characters", minPasswordLength), http.StatusBadRequest, nil)
	}
	return nil
}

func unauthorized(msg string, cause error) error {
	return common.NewAppError("UNAUTHORIZED", msg, http.StatusUnauthorized, cause)
}

// Service coordinates counsellor authentication and account administration.
type Service struct {
	store  AccountStore
	tokens tokens
	now    func() time.Time
	params *argon2id.Params
}

// Config configures the auth service. Issuer and Audience default to
// spark-configurator and spark-counsellor.
type Config struct {
	Store          AccountStore
	Secret         string
	AccessTokenTTL time.Duration
	Issuer         string
	Audience       string
	ClockSkew      time.Duration
	// HashParams overrides the argon2id cost; tests use cheaper settings.
	HashParams *argon2id.Params
}

// Principal is the identity carried by a verified access token.
type Principal struct {
	UserID   string   `json:"userId"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// LoginResult bundles the token issued after a successful login.
type LoginResult struct {
	Principal    Principal `json:"user"`
	AccessToken  string    `json:"accessToken"`
	AccessExpiry time.Time `json:"accessExpiresAt"`
}

// Stats summarises account activity for the admin dashboard.
type Stats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
	Admins   int `json:"admins"`
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("auth: account store is required")
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = defaultAccessTTL
	}
	params := cfg.HashParams
	if params == nil {
		params = argon2id.DefaultParams
	}
	s := &Service{store: cfg.Store, now: time.Now, params: params}
	s.tokens = tokens{
		secret:   []byte(secret),
		issuer:   orDefault(cfg.Issuer, "spark-configurator"),
		audience: orDefault(cfg.Audience, "spark-counsellor"),
		skew:     max(cfg.ClockSkew, 0),
		ttl:      ttl,
		now:      func() time.Time { return s.now() },
	}
	return s, nil
}

// WithNow replaces the clock used for token times and login stamps.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// AccessTTL is the lifetime of issued tokens.
func (s *Service) AccessTTL() time.Duration { return s.tokens.ttl }

// Login verifies credentials and issues a signed access token. Unknown
// usernames and wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, errInvalidCredentials
	}
	account, err := s.store.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, ErrAccountNotFound):
		return LoginResult{}, errInvalidCredentials
	case err != nil:
		return LoginResult{}, err
	}
	if match, err := argon2id.ComparePasswordAndHash(password, account.PasswordHash); err != nil || !match {
		return LoginResult{}, errInvalidCredentials
	}

	principal := account.principal()
	token, expiry, err := s.tokens.sign(principal)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}
	if err := s.store.TouchLogin(ctx, account.ID, s.now().UTC()); err != nil {
		return LoginResult{}, fmt.Errorf("record login: %w", err)
	}
	return LoginResult{Principal: principal, AccessToken: token, AccessExpiry: expiry}, nil
}

// Me returns the caller's current account, which may have changed roles
// since the token was issued.
func (s *Service) Me(ctx context.Context, userID string) (Principal, error) {
	id, ok := parseAccountID(userID)
	if !ok {
		return Principal{}, unauthorized("unauthorized", nil)
	}
	account, err := s.store.GetByID(ctx, id)
	switch {
	case errors.Is(err, ErrAccountNotFound):
		return Principal{}, unauthorized("unauthorized", nil)
	case err != nil:
		return Principal{}, err
	}
	return account.principal(), nil
}

// ParseAccessToken verifies a bearer or cookie token.
func (s *Service) ParseAccessToken(token string) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, unauthorized("missing token", nil)
	}
	p, err := s.tokens.verify(token)
	if err != nil {
		return Principal{}, unauthorized("invalid token", err)
	}
	return p, nil
}

// ListAccounts returns accounts whose username contains q.
func (s *Service) ListAccounts(ctx context.Context, q string) ([]Account, error) {
	accounts, err := s.store.List(ctx, q)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []Account{}
	}
	return accounts, nil
}

// CreateAccount registers a login. Accounts without explicit roles are counsellors.
func (s *Service) CreateAccount(ctx context.Context, username, password string, roles []string) (Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Account{}, common.NewAppError("VALIDATION_ERROR", "username is required", http.StatusBadRequest, nil)
	}
	if err := checkPassword(password); err != nil {
		return Account{}, err
	}
	normalized, err := normalizeRoles(roles)
	if err != nil {
		return Account{}, err
	}
	hash, err := argon2id.CreateHash(password, s.params)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}
	created, err := s.store.Insert(ctx, Account{
		ID:           uuid.NewString(),
		Username:     username,
		Roles:        normalized,
		CreatedAt:    s.now().UTC(),
		PasswordHash: hash,
	})
	if errors.Is(err, ErrDuplicateAccount) {
		return Account{}, common.Conflict("username already exists", err)
	}
	return created, err
}

// DeleteAccount removes a login. Admins cannot delete themselves, which
// keeps at least the acting admin in place.
func (s *Service) DeleteAccount(ctx context.Context, actorID, id string) error {
	id, ok := parseAccountID(id)
	if !ok {
		return unknownAccount()
	}
	if id == actorID {
		return common.NewAppError("CANNOT_DELETE_SELF", "you cannot delete your own account", http.StatusConflict, nil)
	}
	return mapMissing(s.store.Delete(ctx, id))
}

// ResetPassword replaces the password of an account. Tokens already issued
// stay valid until they expire.
func (s *Service) ResetPassword(ctx context.Context, id, password string) error {
	id, ok := parseAccountID(id)
	if !ok {
		return unknownAccount()
	}
	if err := checkPassword(password); err != nil {
		return err
	}
	hash, err := argon2id.CreateHash(password, s.params)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return mapMissing(s.store.UpdatePassword(ctx, id, hash))
}

func mapMissing(err error) error {
	if errors.Is(err, ErrAccountNotFound) {
		return unknownAccount()
	}
	return err
}

// Stats counts accounts. An account is active when it logged in within one
// token lifetime, i.e. it may still hold a valid session.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	accounts, err := s.store.List(ctx, "")
	if err != nil {
		return Stats{}, err
	}
	cutoff := s.now().Add(-s.tokens.ttl)
	st := Stats{Total: len(accounts)}
	for _, a := range accounts {
		if a.LastLoginAt != nil && a.LastLoginAt.After(cutoff) {
			st.Active++
		}
		if a.HasRole(RoleAdmin) {
			st.Admins++
		}
	}
	st.Inactive = st.Total - st.Active
	return st, nil
}

// EnsureAdmin creates the bootstrap administrator when no account has that
// username yet. It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if strings.TrimSpace(username) == "" {
		return false, nil
	}
	if _, err := s.store.GetByUsername(ctx, strings.TrimSpace(username)); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrAccountNotFound) {
		return false, err
	}
	if _, err := s.CreateAccount(ctx, username, password, []string{RoleAdmin, RoleCounsellor}); err != nil {
		if errors.Is(err, ErrDuplicateAccount) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func normalizeRoles(roles []string) ([]string, error) {
	if len(roles) == 0 {
		return []string{RoleCounsellor}, nil
	}
	out := make([]string, 0, len(roles))
	seen := map[string]struct{}{}
	for _, r := range roles {
		r = strings.ToLower(strings.TrimSpace(r))
		switch r {
		case RoleAdmin, RoleCounsellor:
		default:
			return nil, common.BadRequest(fmt.Sprintf("unknown role %q", r))
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}

func parseAccountID(raw string) (string, bool) {
	id := strings.TrimSpace(raw)
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}
