// ABOUTME: In-memory user directory for the development backend
// ABOUTME: Stores bcrypt password hashes and resolves bearer token subjects to identities

package backend

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/tso-console/internal/auth"
)

// User errors
var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidUser        = errors.New("username and password are required")
)

type user struct {
	id           string
	username     string
	passwordHash []byte
	admin        bool
}

// Users is a concurrency-safe in-memory user directory
type Users struct {
	mu     sync.RWMutex
	byName map[string]*user
	admins []string
	cost   int
}

// NewUsers creates a directory. Users registering with a name in admins become admins.
func NewUsers(admins []string) *Users {
	return &Users{
		byName: make(map[string]*user),
		admins: admins,
		cost:   bcrypt.DefaultCost,
	}
}

// Register adds a user and returns its ID
func (u *Users) Register(username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", ErrInvalidUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), u.cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if _, ok := u.byName[username]; ok {
		return "", ErrUserExists
	}
	usr := &user{
		id:           uuid.New().String(),
		username:     username,
		passwordHash: hash,
		admin:        slices.Contains(u.admins, username),
	}
	u.byName[username] = usr
	return usr.id, nil
}

// Authenticate checks a username and password pair
func (u *Users) Authenticate(username, password string) (*auth.Identity, error) {
	u.mu.RLock()
	usr, ok := u.byName[username]
	var id *auth.Identity
	var hash []byte
	if ok {
		id, hash = usr.identity(), usr.passwordHash
	}
	u.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return id, nil
}

// LookupIdentity resolves a token subject (the username) to the current identity
func (u *Users) LookupIdentity(_ context.Context, subject string) (*auth.Identity, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	usr, ok := u.byName[subject]
	if !ok {
		return nil, ErrUserNotFound
	}
	return usr.identity(), nil
}

// SetAdmin grants or revokes admin for an existing user
func (u *Users) SetAdmin(username string, admin bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	usr, ok := u.byName[username]
	if !ok {
		return ErrUserNotFound
	}
	usr.admin = admin
	return nil
}

func (usr *user) identity() *auth.Identity {
	return &auth.Identity{UserID: usr.id, Username: usr.username, Admin: usr.admin}
}
