package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
	"unicode"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

var ErrInvalidPhone = errors.New("invalid phone number")

// UserService identifies users by phone number without storing it: the
// number is reduced to its digits and kept as a keyed blake2b digest.
type UserService struct {
	store store.UserStore
	key   []byte
	now   func() time.Time
}

func NewUserService(st store.UserStore, hashKey string) *UserService {
	return &UserService{store: st, key: []byte(hashKey), now: time.Now}
}

// Resolve returns the user registered under phone, creating it on first
// sight. created reports whether this call registered it.
func (s *UserService) Resolve(ctx context.Context, phone string) (user *models.User, created bool, err error) {
	key, err := s.ContactKey(phone)
	if err != nil {
		return nil, false, err
	}

	user, err = s.store.GetUserByContactKey(ctx, key)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to look up user: %w", err)
	}

	user = &models.User{
		ID:           uuid.NewString(),
		ContactKey:   key,
		RegisteredAt: s.now().UTC(),
	}
	err = s.store.CreateUser(ctx, user)
	if errors.Is(err, store.ErrConflict) {
		// Registered concurrently; the stored one wins.
		user, err = s.store.GetUserByContactKey(ctx, key)
		if err != nil {
			return nil, false, fmt.Errorf("failed to look up user: %w", err)
		}
		return user, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}
	return user, true, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ContactKey is the stored form of phone.
func (s *UserService) ContactKey(phone string) (string, error) {
	digits := make([]rune, 0, len(phone))
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, r)
		case r == '+' || r == '-' || r == '(' || r == ')' || r == '.' || unicode.IsSpace(r):
		default:
			return "", fmt.Errorf("%w: unexpected %q", ErrInvalidPhone, r)
		}
	}
	if len(digits) < 8 || len(digits) > 15 {
		return "", fmt.Errorf("%w: expected 8 to 15 digits", ErrInvalidPhone)
	}

	h, err := blake2b.New256(s.key)
	if err != nil {
		return "", fmt.Errorf("contact hash: %w", err)
	}
	h.Write([]byte(string(digits)))
	return hex.EncodeToString(h.Sum(nil)), nil
}
