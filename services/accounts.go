package services

import (
	"context"
	"strings"

	"kavyalok/auth"
	"kavyalok/models"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type SignupInput struct {
	Email    string
	Password string
	Username string
	Name     string
}

// Session is what a successful local signup or login returns.
type Session struct {
	Token string          `json:"token"`
	User  *models.Profile `json:"user"`
}

// AccountService is the local email and password provider. It is only wired
// when AUTH_PROVIDER=local.
type AccountService struct {
	users  *UserService
	issuer *auth.Issuer
}

func NewAccountService(users *UserService, issuer *auth.Issuer) *AccountService {
	return &AccountService{users: users, issuer: issuer}
}

func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !strings.Contains(email, "@") {
		return nil, Validationf("a valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, Validationf("password must be at least %d characters", minPasswordLength)
	}

	user, err := s.users.newUser(email, RegisterInput{Username: in.Username, Name: in.Name})
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	hashed := string(hash)
	user.PasswordHash = &hashed
	user.AuthProvider = "local"

	if err := s.users.create(ctx, user); err != nil {
		return nil, err
	}
	return s.session(user)
}

// Login checks the password. Unknown emails and wrong passwords both fail
// with the same unauthorized error.
func (s *AccountService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.users.GetUserByEmail(ctx, email)
	if err != nil {
		if isStoreNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "load user")
	}
	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(user)
}

func (s *AccountService) session(user *models.User) (*Session, error) {
	token, err := s.issuer.Issue(user.ID.Hex(), user.Email)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user.ToProfile()}, nil
}
