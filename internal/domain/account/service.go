package account

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/mediscribe/mediscribe/internal/platform/apperr"
	"github.com/mediscribe/mediscribe/internal/platform/auth"
)

// ErrInvalidCredentials is returned on a failed login. It is deliberately the
// same for an unknown email and a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

type Service struct {
	repo   Repository
	issuer *auth.TokenIssuer
}

func NewService(repo Repository, issuer *auth.TokenIssuer) *Service {
	return &Service{repo: repo, issuer: issuer}
}

// Register creates a login account. Doctor and patient accounts are normally
// created through their intake flows; this path exists for admins and for
// standalone accounts.
func (s *Service) Register(ctx context.Context, u *User) error {
	if err := validateNewUser(u); err != nil {
		return err
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return s.repo.Create(ctx, u)
}

// Login checks credentials and returns a signed token with the user.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if u.Password != password {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func validateNewUser(u *User) error {
	if strings.TrimSpace(u.Email) == "" {
		return apperr.Validation("email is required")
	}
	if !strings.Contains(u.Email, "@") {
		return apperr.Validation("invalid email address")
	}
	if u.Password == "" {
		return apperr.Validation("password is required")
	}
	if u.Role == "" {
		u.Role = "patient"
	}
	if !validRoles[u.Role] {
		return apperr.Validation("invalid role: %s", u.Role)
	}
	return nil
}
