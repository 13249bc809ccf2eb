package httpapi

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/store"
)

const (
	tokenIssuer     = "flowork-terminal"
	defaultTokenTTL = 8 * time.Hour
	refreshTimeout  = 3 * time.Second

	minUsernameLen = 4
	minPasswordLen = 6
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errInactiveAccount    = errors.New("account is inactive")
	errBadToken           = errors.New("invalid or expired token")
)

// AuthManager signs operator sessions and checks the manager PIN. Accounts
// live in the repository; a hashed copy is kept in memory for logins.
type AuthManager struct {
	secret     []byte
	tokenTTL   time.Duration
	managerPIN string
	repo       store.Repository
	accounts   accountCache
	now        func() time.Time
}

type terminalClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

// NewAuthManager hashes the manager PIN up front. An empty PIN leaves
// approval disabled.
func NewAuthManager(secret string, tokenTTL time.Duration, managerPIN string, repo store.Repository) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	pinHash := ""
	if pin := strings.TrimSpace(managerPIN); pin != "" {
		if h, err := hashSecret(pin); err == nil {
			pinHash = h
		}
	}

	a := &AuthManager{
		secret:     []byte(secret),
		tokenTTL:   tokenTTL,
		managerPIN: pinHash,
		repo:       repo,
		accounts:   accountCache{byName: map[string]account{}},
		now:        func() time.Time { return time.Now().UTC() },
	}
	a.accounts.refresh(context.Background(), repo)
	return a
}

func normalizeUsername(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	rctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	a.accounts.refresh(rctx, a.repo)
	cancel()

	username := normalizeUsername(req.Username)
	acct, ok := a.accounts.get(username)
	if !ok || !matchesHash(acct.hash, req.Password) {
		return domain.LoginResponse{}, errInvalidCredentials
	}
	if !acct.active {
		return domain.LoginResponse{}, errInactiveAccount
	}

	issued := a.now()
	expires := issued.Add(a.tokenTTL)
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, terminalClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   username,
			IssuedAt:  jwtlib.NewNumericDate(issued),
			ExpiresAt: jwtlib.NewNumericDate(expires),
		},
		Role: acct.role,
	}).SignedString(a.secret)
	if err != nil {
		return domain.LoginResponse{}, errors.Wrap(err, "sign token")
	}
	return domain.LoginResponse{AccessToken: token, Role: acct.role, ExpiresAt: expires.Format(time.RFC3339)}, nil
}

// ParseToken accepts only HS256 tokens issued by this server.
func (a *AuthManager) ParseToken(raw string) (domain.Actor, error) {
	var claims terminalClaims
	_, err := jwtlib.ParseWithClaims(raw, &claims,
		func(*jwtlib.Token) (any, error) { return a.secret, nil },
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(tokenIssuer),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil {
		return domain.Actor{}, errors.Wrap(errBadToken, err.Error())
	}
	if claims.Subject == "" {
		return domain.Actor{}, errors.Wrap(errBadToken, "no subject")
	}
	return domain.Actor{Username: claims.Subject, Role: claims.Role}, nil
}

// ValidateManagerPIN checks the PIN a manager types to approve a staff
// refund. With no PIN configured nothing validates.
func (a *AuthManager) ValidateManagerPIN(pin string) bool {
	return a.managerPIN != "" && matchesHash(a.managerPIN, strings.TrimSpace(pin))
}

func validateOperator(username, password string) error {
	switch {
	case len(username) < minUsernameLen:
		return errors.Errorf("username must be at least %d characters", minUsernameLen)
	case strings.ContainsAny(username, " \t\r\n"):
		return errors.New("username must not contain spaces")
	case len(strings.TrimSpace(password)) < minPasswordLen:
		return errors.Errorf("password must be at least %d characters", minPasswordLen)
	}
	return nil
}

// CreateOperator adds an active staff account.
func (a *AuthManager) CreateOperator(ctx context.Context, req domain.OperatorCreateRequest) (domain.Operator, error) {
	a.accounts.refresh(ctx, a.repo)
	username := normalizeUsername(req.Username)
	if err := validateOperator(username, req.Password); err != nil {
		return domain.Operator{}, err
	}
	if _, taken := a.accounts.get(username); taken {
		return domain.Operator{}, store.ErrUserExists
	}

	hash, err := hashSecret(req.Password)
	if err != nil {
		return domain.Operator{}, errors.Wrap(err, "hash password")
	}
	acct := account{hash: hash, role: domain.RoleStaff, active: true, created: a.now()}
	if a.repo != nil {
		if err := a.repo.CreateUser(ctx, acct.user(username)); err != nil {
			return domain.Operator{}, err
		}
	}
	a.accounts.put(username, acct)
	return acct.operator(username), nil
}

// ListOperators returns every account, by username.
func (a *AuthManager) ListOperators(ctx context.Context) []domain.Operator {
	a.accounts.refresh(ctx, a.repo)
	return a.accounts.operators()
}

type account struct {
	hash    string
	role    string
	active  bool
	created time.Time
}

func (c account) user(username string) domain.UserAccount {
	return domain.UserAccount{Username: username, Password: c.hash, Role: c.role, Active: c.active, CreatedAt: c.created}
}

func (c account) operator(username string) domain.Operator {
	return domain.Operator{Username: username, Role: c.role, Active: c.active, CreatedAt: c.created}
}

// accountCache mirrors the repository with every password hashed.
type accountCache struct {
	mu     sync.RWMutex
	byName map[string]account
}

func (c *accountCache) get(username string) (account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	acct, ok := c.byName[username]
	return acct, ok
}

func (c *accountCache) put(username string, acct account) {
	c.mu.Lock()
	c.byName[username] = acct
	c.mu.Unlock()
}

func (c *accountCache) operators() []domain.Operator {
	c.mu.RLock()
	out := make([]domain.Operator, 0, len(c.byName))
	for name, acct := range c.byName {
		out = append(out, acct.operator(name))
	}
	c.mu.RUnlock()
	slices.SortFunc(out, func(x, y domain.Operator) int { return strings.Compare(x.Username, y.Username) })
	return out
}

// refresh reloads the accounts. Plain-text passwords left by older installs
// are hashed and written back. A failed listing keeps the current cache.
func (c *accountCache) refresh(ctx context.Context, repo store.Repository) {
	if repo == nil {
		return
	}
	users, err := repo.ListUsers(ctx)
	if err != nil || len(users) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range users {
		name := normalizeUsername(u.Username)
		if name == "" {
			continue
		}
		hash := u.Password
		if !isHashed(hash) {
			upgraded, err := hashSecret(hash)
			if err != nil {
				continue
			}
			hash = upgraded
			_ = repo.UpdateUserPassword(ctx, name, upgraded)
		}
		c.byName[name] = account{hash: hash, role: u.Role, active: u.Active, created: u.CreatedAt}
	}
}

func hashSecret(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(h), err
}

func isHashed(v string) bool {
	_, err := bcrypt.Cost([]byte(v))
	return err == nil
}

func matchesHash(hash, input string) bool {
	if strings.TrimSpace(input) == "" || !isHashed(hash) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(input)) == nil
}
