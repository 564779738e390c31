// Package auth handles staff accounts: sign-in with bcrypt-hashed passwords,
// HS256 session tokens and invitations of new staff members.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStaffExists        = errors.New("staff account already exists")
)

const (
	invitePasswordLen = 8
	inviteSendTimeout = 10 * time.Second
)

// Store returns nil, nil from FindByLogin when no account matches.
type Store interface {
	FindByLogin(ctx context.Context, login string) (*domain.StaffAccount, error)
	Create(ctx context.Context, account *domain.StaffAccount) error
}

type InvitationSender interface {
	SendStaffInvitation(ctx context.Context, to, username, password string) error
}

type Invitation struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	EmailSent bool   `json:"email_sent"`
}

type Service struct {
	primary  Store
	fallback Store
	tokens   *TokenIssuer
	mailer   InvitationSender
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(primary, fallback Store, tokens *TokenIssuer, mailer InvitationSender, logger *slog.Logger) *Service {
	return &Service{
		primary:  primary,
		fallback: fallback,
		tokens:   tokens,
		mailer:   mailer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type Session struct {
	Token     string               `json:"token"`
	ExpiresAt time.Time            `json:"expires_at"`
	Account   *domain.StaffAccount `json:"account"`
}

// SignIn accepts either the email or the username as login.
func (s *Service) SignIn(ctx context.Context, login, password string) (*Session, error) {
	account, err := s.find(ctx, strings.TrimSpace(login))
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(account)
	if err != nil {
		return nil, err
	}

	s.logger.Info("staff signed in", "staff_id", account.ID)
	return &Session{Token: token, ExpiresAt: expiresAt, Account: account}, nil
}

// Invite creates an account with a generated password. The credentials are
// always returned, whether or not the invitation email went out.
func (s *Service) Invite(ctx context.Context, email string) (*Invitation, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username, _, ok := strings.Cut(email, "@")
	if !ok || username == "" {
		return nil, &domain.ValidationError{Field: "email", Message: "a valid staff email is required"}
	}

	password := rand.Text()[:invitePasswordLen]
	account, err := s.create(ctx, email, username, password)
	if err != nil {
		return nil, err
	}

	inv := &Invitation{AccountID: account.ID, Email: email, Username: username, Password: password}

	if s.mailer != nil {
		sendCtx, cancel := context.WithTimeout(ctx, inviteSendTimeout)
		defer cancel()
		if err := s.mailer.SendStaffInvitation(sendCtx, email, username, password); err != nil {
			s.logger.Warn("staff invitation email not sent", "error", err, "staff_id", account.ID)
		} else {
			inv.EmailSent = true
		}
	}

	s.logger.Info("staff invited", "staff_id", account.ID, "email_sent", inv.EmailSent)
	return inv, nil
}

// EnsureOwner creates the bootstrap account unless it already exists.
func (s *Service) EnsureOwner(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	existing, err := s.find(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	username, _, _ := strings.Cut(email, "@")
	if _, err := s.create(ctx, email, username, password); err != nil && !errors.Is(err, ErrStaffExists) {
		return err
	}

	s.logger.Info("bootstrap staff account created", "email", email)
	return nil
}

func (s *Service) create(ctx context.Context, email, username, password string) (*domain.StaffAccount, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &domain.StaffAccount{
		ID:           domain.NewStaffID(),
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}

	err = s.primary.Create(ctx, account)
	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, ErrStaffExists):
		return nil, err
	}

	s.logger.Warn("primary staff store unavailable, saving to fallback", "error", err, "staff_id", account.ID)
	if localErr := s.fallback.Create(ctx, account); localErr != nil {
		if errors.Is(localErr, ErrStaffExists) {
			return nil, localErr
		}
		return nil, fmt.Errorf("create staff account: %w", errors.Join(err, localErr))
	}
	return account, nil
}

func (s *Service) find(ctx context.Context, login string) (*domain.StaffAccount, error) {
	account, err := s.primary.FindByLogin(ctx, login)
	if err == nil && account != nil {
		return account, nil
	}
	if err != nil {
		s.logger.Warn("primary staff store unavailable, reading fallback", "error", err)
	}

	local, localErr := s.fallback.FindByLogin(ctx, login)
	if localErr != nil {
		if err != nil {
			return nil, fmt.Errorf("find staff account: %w", errors.Join(err, localErr))
		}
		s.logger.Warn("fallback staff store unavailable", "error", localErr)
		return nil, nil
	}
	return local, nil
}
