package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// RegisterInput is the data needed to open an account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Session is an issued bearer token.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// AuthService issues and resolves opaque bearer tokens.
type AuthService struct {
	tx         *repository.Transactor
	users      *repository.UserRepository
	tokens     *repository.TokenRepository
	statuses   *repository.StatusRepository
	categories *repository.CategoryRepository
	ttl        time.Duration
	clock      Clock
}

func NewAuthService(
	tx *repository.Transactor,
	users *repository.UserRepository,
	tokens *repository.TokenRepository,
	statuses *repository.StatusRepository,
	categories *repository.CategoryRepository,
	ttl time.Duration,
	clock Clock,
) *AuthService {
	return &AuthService{
		tx:         tx,
		users:      users,
		tokens:     tokens,
		statuses:   statuses,
		categories: categories,
		ttl:        ttl,
		clock:      clockOrSystem(clock),
	}
}

// Register creates the user with the default statuses and categories and
// signs them in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)
	verr := &ValidationError{}
	checkName(verr, "name", input.Name, 255)
	checkEmail(verr, input.Email)
	checkPassword(verr, input.Password)
	if err := verr.Err(); err != nil {
		return nil, err
	}

	taken, err := s.users.EmailTaken(ctx, input.Email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, conflict("email", "has already been taken")
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := model.User{Name: input.Name, Email: input.Email, PasswordHash: hash}
	var session *Session
	err = s.tx.InTx(ctx, func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).Create(ctx, &user); err != nil {
			return duplicate(err, "email")
		}
		if err := s.statuses.WithTx(tx).CreateBatch(ctx, model.DefaultStatuses(user.ID)); err != nil {
			return err
		}
		if err := s.categories.WithTx(tx).CreateBatch(ctx, model.DefaultCategories(user.ID)); err != nil {
			return err
		}
		var err error
		session, err = s.issue(ctx, s.tokens.WithTx(tx), &user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Login checks the credentials and issues a new token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("login: %w", ErrUnauthorized)
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("login: %w", ErrUnauthorized)
	}
	return s.issue(ctx, s.tokens, user)
}

// Logout revokes every token of the user.
func (s *AuthService) Logout(ctx context.Context, user *model.User) error {
	_, err := s.tokens.DeleteByUser(ctx, user.ID)
	return err
}

// Authenticate resolves a bearer token to its active user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthorized
	}
	found, err := s.tokens.FindValid(ctx, hashToken(token), s.clock.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return found.User, nil
}

// PurgeExpired deletes tokens past their expiry.
func (s *AuthService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.tokens.PurgeExpired(ctx, s.clock.Now())
}

func (s *AuthService) issue(ctx context.Context, tokens *repository.TokenRepository, user *model.User) (*Session, error) {
	raw := uuid.NewString()
	expires := s.clock.Now().Add(s.ttl)
	record := model.AccessToken{UserID: user.ID, TokenHash: hashToken(raw), ExpiresAt: expires}
	if err := tokens.Create(ctx, &record); err != nil {
		return nil, err
	}
	return &Session{Token: raw, ExpiresAt: expires, User: user}, nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkEmail(verr *ValidationError, email string) {
	if email == "" {
		verr.Add("email", "is required")
		return
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		verr.Add("email", "must be a valid email address")
	}
	checkMaxLen(verr, "email", email, 255)
}

func checkPassword(verr *ValidationError, password string) {
	if len(password) < 8 {
		verr.Add("password", "must be at least 8 characters")
	}
	if len(password) > 72 {
		verr.Add("password", "may not be greater than 72 characters")
	}
}
