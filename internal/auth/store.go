package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
	"pkt.systems/pslog"

	"github.com/kvterm/kvterm/internal/appconfig"
	"github.com/kvterm/kvterm/schema"
)

// ErrInvalidCredentials is returned for any failed verification so callers
// cannot distinguish unknown users from wrong passwords.
var ErrInvalidCredentials = errors.New("invalid credentials")

// User represents a stored console account.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	TOTPSecret   string `json:"totp_secret"`
}

// Store manages users stored on disk as a JSON document.
type Store struct {
	path  string
	mu    sync.RWMutex
	users map[string]User
	log   pslog.Logger
}

// NewStore loads or seeds the user store.
func NewStore(path string, seeds []appconfig.SeedUser, logger pslog.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("user file path is required")
	}
	if logger != nil {
		logger = logger.With("user_file", path)
	}
	store := &Store{
		path:  path,
		users: make(map[string]User),
		log:   logger,
	}
	if err := store.ensureFile(seeds); err != nil {
		return nil, err
	}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

// ValidatePassword verifies the stored password hash for a user.
func (s *Store) ValidatePassword(username, password string) error {
	user, ok := s.lookup(username)
	if !ok {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// ValidateTOTP verifies the stored TOTP secret for a user.
func (s *Store) ValidateTOTP(username, totpCode string) error {
	user, ok := s.lookup(username)
	if !ok {
		return ErrInvalidCredentials
	}
	if !totp.Validate(totpCode, user.TOTPSecret) {
		return errors.New("invalid totp")
	}
	return nil
}

// HasTOTP reports whether the user exists and has a TOTP secret enrolled.
func (s *Store) HasTOTP(username string) bool {
	user, ok := s.lookup(username)
	return ok && user.TOTPSecret != ""
}

// Authenticate verifies username, password, and totp together.
func (s *Store) Authenticate(username, password, totpCode string) error {
	if err := s.ValidatePassword(username, password); err != nil {
		return err
	}
	return s.ValidateTOTP(username, totpCode)
}

// ChangePassword verifies credentials and replaces the stored password hash.
func (s *Store) ChangePassword(username, currentPassword, totpCode, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return errors.New("new password is required")
	}
	if err := s.Authenticate(username, currentPassword, totpCode); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	user := s.users[username]
	user.PasswordHash = string(hash)
	s.users[username] = user
	s.mu.Unlock()
	return s.save()
}

// AddUser creates or replaces a user record.
func (s *Store) AddUser(user User) error {
	normalized, err := normalizeUsername(user.Username)
	if err != nil {
		return err
	}
	user.Username = normalized
	s.mu.Lock()
	s.users[normalized] = user
	s.mu.Unlock()
	if s.log != nil {
		s.log.Info("user stored", "user", normalized)
	}
	return s.save()
}

// UpdatePassword replaces the stored password hash for an existing user.
func (s *Store) UpdatePassword(username, passwordHash string) error {
	return s.updateUser(username, func(user *User) { user.PasswordHash = passwordHash })
}

// UpdateTOTP replaces the stored TOTP secret for an existing user.
func (s *Store) UpdateTOTP(username, secret string) error {
	return s.updateUser(username, func(user *User) { user.TOTPSecret = secret })
}

func (s *Store) updateUser(username string, mutate func(*User)) error {
	normalized, err := normalizeUsername(username)
	if err != nil {
		return err
	}
	s.mu.Lock()
	user, ok := s.users[normalized]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("unknown user %q", normalized)
	}
	mutate(&user)
	s.users[normalized] = user
	s.mu.Unlock()
	return s.save()
}

// RemoveUser deletes a user record.
func (s *Store) RemoveUser(username string) error {
	normalized, err := normalizeUsername(username)
	if err != nil {
		return err
	}
	s.mu.Lock()
	_, ok := s.users[normalized]
	delete(s.users, normalized)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown user %q", normalized)
	}
	if s.log != nil {
		s.log.Info("user removed", "user", normalized)
	}
	return s.save()
}

// ListUsers returns usernames in sorted order.
func (s *Store) ListUsers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.users))
	for name := range s.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) lookup(username string) (User, bool) {
	normalized, err := normalizeUsername(username)
	if err != nil {
		return User{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[normalized]
	return user, ok
}

func (s *Store) ensureFile(seeds []appconfig.SeedUser) error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	users := make(map[string]User, len(seeds))
	for _, seed := range seeds {
		normalized, err := normalizeUsername(seed.Username)
		if err != nil {
			return fmt.Errorf("seed user %q: %w", seed.Username, err)
		}
		users[normalized] = User{
			Username:     normalized,
			PasswordHash: seed.PasswordHash,
			TOTPSecret:   seed.TOTPSecret,
		}
	}
	s.users = users
	return s.save()
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return fmt.Errorf("parse user file: %w", err)
	}
	m := make(map[string]User, len(users))
	for _, u := range users {
		m[u.Username] = u
	}
	s.mu.Lock()
	s.users = m
	s.mu.Unlock()
	return nil
}

func (s *Store) save() error {
	s.mu.RLock()
	users := make([]User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	s.mu.RUnlock()
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func normalizeUsername(username string) (string, error) {
	trimmed := strings.TrimSpace(strings.ToLower(username))
	if err := schema.ValidateUserID(schema.UserID(trimmed)); err != nil {
		return "", err
	}
	return trimmed, nil
}
