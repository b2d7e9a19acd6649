package user

import (
	"fmt"
	"sync"
	"time"

	"valutatrade/internal/domain"
	"valutatrade/internal/storage"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 4

// User is an account record as persisted in the users file.
type User struct {
	ID               int       `json:"user_id"`
	Username         string    `json:"username"`
	HashedPassword   string    `json:"hashed_password"`
	RegistrationDate time.Time `json:"registration_date"`
}

func (u User) Info() map[string]string {
	return map[string]string{
		"user_id":           fmt.Sprintf("%d", u.ID),
		"username":          u.Username,
		"registration_date": u.RegistrationDate.Format(time.RFC3339),
	}
}

// Manager handles registration and authentication over the persisted
// user list.
type Manager struct {
	path string
	mu   sync.Mutex
}

func NewManager(path string) *Manager {
	return &Manager{path: path}
}

func (m *Manager) loadAll() ([]User, error) {
	var users []User
	if _, err := storage.ReadJSON(m.path, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Register creates a new account with a bcrypt-hashed password.
func (m *Manager) Register(username, password string) (User, error) {
	if username == "" {
		return User{}, &domain.ValidationError{Reason: "username is required"}
	}
	if len(password) < minPasswordLen {
		return User{}, &domain.ValidationError{Reason: fmt.Sprintf("password must be at least %d characters", minPasswordLen)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	users, err := m.loadAll()
	if err != nil {
		return User{}, err
	}

	nextID := 0
	for _, u := range users {
		if u.Username == username {
			return User{}, fmt.Errorf("%w: %s", domain.ErrUsernameTaken, username)
		}
		if u.ID > nextID {
			nextID = u.ID
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	u := User{
		ID:               nextID + 1,
		Username:         username,
		HashedPassword:   string(hash),
		RegistrationDate: time.Now().UTC(),
	}
	users = append(users, u)
	if err := storage.WriteJSONAtomic(m.path, users); err != nil {
		return User{}, err
	}

	logrus.Infof("User registered: %s (id=%d)", username, u.ID)
	return u, nil
}

// Authenticate verifies the password for an existing account.
func (m *Manager) Authenticate(username, password string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users, err := m.loadAll()
	if err != nil {
		return User{}, err
	}
	for _, u := range users {
		if u.Username != username {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password)) != nil {
			return User{}, domain.ErrBadCredentials
		}
		logrus.Infof("User authenticated: %s", username)
		return u, nil
	}
	return User{}, fmt.Errorf("%w: %s", domain.ErrUserNotFound, username)
}
