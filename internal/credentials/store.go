// Package credentials is the local account store behind the sign-up and
// sign-in forms.
//
// STORAGE SHAPE:
// All records live in ONE JSON array under the key "users" of a
// repository.KVStore, like the localStorage entry of a browser app. Every
// operation reads the array, and Register writes the whole array back.
// There are no update or delete operations.
//
// Register does its duplicate check and write inside one KVStore.Update, so
// the server and the admin CLI can register against the same file at once
// without dropping each other's record.
//
// The store is read on every call (no in-memory cache) so a user added by
// the admin CLI is visible to a running server straight away.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/pulse-dashboard/internal/apperror"
	"github.com/sakif/pulse-dashboard/internal/auth"
	"github.com/sakif/pulse-dashboard/internal/model"
	"github.com/sakif/pulse-dashboard/internal/repository"
)

// usersKey is the single record holding every registered user.
const usersKey = "users"

// Genders offered by the sign-up form.
var Genders = []string{"male", "female"}

// Store registers and authenticates local users.
type Store struct {
	kv        repository.KVStore
	passwords *auth.PasswordService
	logger    *slog.Logger
	now       func() time.Time
}

// NewStore creates a Store on top of kv.
func NewStore(kv repository.KVStore, passwords *auth.PasswordService, logger *slog.Logger) *Store {
	return &Store{
		kv:        kv,
		passwords: passwords,
		logger:    logger,
		now:       time.Now,
	}
}

// Register creates a new account.
//
// It fails with apperror.ErrDuplicateEmail when any record already has the
// same email, and with apperror.ErrValidation for malformed input. In both
// cases nothing is written.
func (s *Store) Register(ctx context.Context, email, password, gender string) (model.UserRecord, error) {
	if err := validateEmail(email); err != nil {
		return model.UserRecord{}, err
	}
	if err := validateGender(gender); err != nil {
		return model.UserRecord{}, err
	}

	// Hash outside the write transaction: bcrypt is the slow part and the
	// other process would wait on it.
	hash, err := s.passwords.Hash(password)
	if err != nil {
		return model.UserRecord{}, err
	}

	record := model.UserRecord{
		ID:           xid.New().String(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  DisplayName(email),
		Gender:       gender,
		CreatedAt:    s.now().UTC(),
	}

	err = s.kv.Update(ctx, usersKey, func(current []byte) ([]byte, error) {
		users, err := decodeUsers(current)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			if sameEmail(u.Email, email) {
				return nil, apperror.DuplicateEmail(email)
			}
		}
		raw, err := json.Marshal(append(users, record))
		if err != nil {
			return nil, fmt.Errorf("credentials: encoding users: %w", err)
		}
		return raw, nil
	})
	if err != nil {
		if errors.Is(err, apperror.ErrDuplicateEmail) {
			return model.UserRecord{}, err
		}
		return model.UserRecord{}, fmt.Errorf("credentials: writing users: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", record.ID),
		slog.String("displayName", record.DisplayName),
	)

	return record, nil
}

// Authenticate returns the record whose email AND password both match
// exactly, or apperror.ErrInvalidCredentials.
func (s *Store) Authenticate(ctx context.Context, email, password string) (model.UserRecord, error) {
	users, err := s.load(ctx)
	if err != nil {
		return model.UserRecord{}, err
	}

	for _, u := range users {
		if !sameEmail(u.Email, email) {
			continue
		}
		err := s.passwords.Verify(u.PasswordHash, password)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, auth.ErrMismatch) {
			s.logger.Error("stored password hash is unreadable",
				slog.String("userID", u.ID),
				slog.String("error", err.Error()),
			)
		}
		break
	}

	return model.UserRecord{}, apperror.InvalidCredentials()
}

// List returns every record in registration order.
func (s *Store) List(ctx context.Context) ([]model.UserRecord, error) {
	return s.load(ctx)
}

// DisplayName derives the name shown in the shell from an email: the part
// before the first "@" with every digit removed ("jane99@x.com" → "jane").
func DisplayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return -1
		}
		return r
	}, local)
}

// sameEmail is the one place emails are compared. Matching is exact and
// case-sensitive, with no trimming.
func sameEmail(a, b string) bool {
	return a == b
}

func validateEmail(email string) error {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return apperror.ValidationFailed("email", "a valid email address is required")
	}
	return nil
}

func validateGender(gender string) error {
	for _, g := range Genders {
		if gender == g {
			return nil
		}
	}
	return apperror.ValidationFailed("gender", "gender must be one of: "+strings.Join(Genders, ", "))
}

// load reads the users array. A missing record is an empty store.
func (s *Store) load(ctx context.Context) ([]model.UserRecord, error) {
	raw, err := s.kv.Get(ctx, usersKey)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return []model.UserRecord{}, nil
		}
		return nil, fmt.Errorf("credentials: reading users: %w", err)
	}
	return decodeUsers(raw)
}

func decodeUsers(raw []byte) ([]model.UserRecord, error) {
	if raw == nil {
		return []model.UserRecord{}, nil
	}
	var users []model.UserRecord
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("credentials: decoding users: %w", err)
	}
	return users, nil
}
