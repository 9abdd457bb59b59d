package service

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// UserPatch holds the profile fields changed by an update.
type UserPatch struct {
	Name           *string
	Email          *string
	Password       *string
	TelegramChatID *int64
	ClearTelegram  bool
}

// UserService lets users read, change and close their own account.
type UserService struct {
	tx     *repository.Transactor
	users  *repository.UserRepository
	tokens *repository.TokenRepository
	clock  Clock
}

func NewUserService(tx *repository.Transactor, users *repository.UserRepository, tokens *repository.TokenRepository, clock Clock) *UserService {
	return &UserService{tx: tx, users: users, tokens: tokens, clock: clockOrSystem(clock)}
}

// Get returns the account with the given id. Only the account itself may
// read it; anything else looks like a missing user.
func (s *UserService) Get(ctx context.Context, actor *model.User, id uint) (*model.User, error) {
	if actor.ID != id {
		return nil, fmt.Errorf("user: %w", ErrNotFound)
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, actor *model.User, id uint, patch UserPatch) (*model.User, error) {
	user, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		patch.Name = &trimmed
		checkName(verr, "name", trimmed, 255)
	}
	if patch.Email != nil {
		normalized := normalizeEmail(*patch.Email)
		patch.Email = &normalized
		checkEmail(verr, normalized)
	}
	if patch.Password != nil {
		checkPassword(verr, *patch.Password)
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	if patch.Email != nil && *patch.Email != user.Email {
		taken, err := s.users.EmailTaken(ctx, *patch.Email, user.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, conflict("email", "has already been taken")
		}
		user.Email = *patch.Email
	}
	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Password != nil {
		hash, err := hashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	switch {
	case patch.ClearTelegram:
		user.TelegramChatID = nil
	case patch.TelegramChatID != nil:
		chatID := *patch.TelegramChatID
		user.TelegramChatID = &chatID
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, duplicate(err, "email")
	}
	return user, nil
}

// Delete closes the account: the user row is tombstoned, the email is
// released and every token is revoked. Log entries keep the actor id and
// render it as UnknownUserName.
func (s *UserService) Delete(ctx context.Context, actor *model.User, id uint) error {
	user, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.tokens.WithTx(tx).DeleteByUser(ctx, user.ID); err != nil {
			return err
		}
		return s.users.WithTx(tx).SoftDelete(ctx, user, s.clock.Now())
	})
}
