package memory

import (
	"context"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/logger"
	"flowork/terminal/internal/store"
)

const (
	seedPasswordEnv     = "FLOWORK_SEED_ADMIN_PASSWORD"
	defaultSeedPassword = "admin123"
)

type Store struct {
	mu              sync.RWMutex
	usersByUsername map[string]domain.UserAccount
	now             func() time.Time
}

func New() *Store {
	return &Store{
		usersByUsername: make(map[string]domain.UserAccount),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// NewSeeded returns a store holding the admin account. Without a configured
// bcrypt hash the password comes from FLOWORK_SEED_ADMIN_PASSWORD, or a dev
// default with a warning.
func NewSeeded(ctx context.Context, log *logger.Logger, username, passwordHash string) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		username = "admin"
	}
	if passwordHash == "" {
		password := os.Getenv(seedPasswordEnv)
		if password == "" {
			password = defaultSeedPassword
			log.Warn(ctx, "using the default dev admin password; set FLOWORK_ADMIN_PASSWORD_HASH to override")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, errors.Wrap(err, "hash seed password")
		}
		passwordHash = string(hash)
	}

	s := New()
	err := s.CreateUser(ctx, domain.UserAccount{
		Username: username,
		Password: passwordHash,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return errors.New("username and password are required")
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrUserExists
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleStaff
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	user.Active = true
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) GetUser(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByUsername[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return errors.New("username and password are required")
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
