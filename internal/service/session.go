package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/iliyamo/agritrace/internal/model"
	"github.com/iliyamo/agritrace/internal/repository"
	"github.com/iliyamo/agritrace/internal/utils"
)

// Identity is the verified subject of a session token.
type Identity struct {
	UserID   string
	Username string
	Email    string
	Role     model.Role
}

// SignupInput is the signup form as submitted.
type SignupInput struct {
	Username string
	Email    string
	Password string
	Role     string
	Number   string
	Address  string
}

// Session is an issued token and the user it belongs to.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// SessionService registers accounts and issues and verifies session
// tokens.
type SessionService struct {
	users      repository.UserStore
	secret     string
	ttl        time.Duration
	bcryptCost int
}

func NewSessionService(users repository.UserStore, secret string, ttl time.Duration, bcryptCost int) *SessionService {
	return &SessionService{users: users, secret: secret, ttl: ttl, bcryptCost: bcryptCost}
}

// Signup creates a user with a fresh id and a bcrypt password hash.
func (s *SessionService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	ctx, span := tracer.Start(ctx, "Session.Service.Signup")
	defer span.End()

	var f fieldSet
	username := f.text("username", in.Username, maxUsername)
	email := f.text("email", in.Email, maxText)
	if in.Password == "" {
		f.bad = append(f.bad, "password")
	}
	roleText := f.text("role", in.Role, maxRole)
	number := f.text("number", in.Number, maxPhone)
	address := f.text("address", in.Address, maxAddress)
	if err := f.err(); err != nil {
		return nil, err
	}
	role, err := model.ParseRole(roleText)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Message: err.Error(), Fields: []string{"role"}}
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return nil, &Error{Kind: KindValidation, Message: err.Error(), Fields: []string{"password"}}
	}
	if err != nil {
		span.RecordError(err)
		return nil, internalError(errors.Wrap(err, "hash password"))
	}
	u := &model.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Number:       number,
		Address:      address,
	}
	switch err := s.users.CreateUser(ctx, u); {
	case err == nil:
		return u, nil
	case errors.Is(err, repository.ErrEmailExists):
		return nil, newError(KindConflict, "user already exists")
	case errors.Is(err, repository.ErrUsernameExists):
		return nil, newError(KindConflict, "username already taken")
	default:
		span.RecordError(err)
		return nil, internalError(errors.Wrap(err, "create user"))
	}
}

// Issue checks the credentials and signs a session token for the user.
func (s *SessionService) Issue(ctx context.Context, email, password string) (*Session, error) {
	ctx, span := tracer.Start(ctx, "Session.Service.Issue")
	defer span.End()

	var f fieldSet
	email = f.text("email", email, maxText)
	if password == "" {
		f.bad = append(f.bad, "password")
	}
	if err := f.err(); err != nil {
		return nil, err
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, "user does not exist")
		}
		span.RecordError(err)
		return nil, internalError(errors.Wrap(err, "get user by email"))
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, newError(KindInvalidCredentials, "invalid password")
	}

	tok, err := utils.NewSessionToken(s.secret, u.ID, u.Username, u.Email, string(u.Role), s.ttl)
	if err != nil {
		span.RecordError(err)
		return nil, internalError(errors.Wrap(err, "sign token"))
	}
	return &Session{Token: tok.Token, ExpiresAt: tok.Exp, User: u}, nil
}

// Verify validates a raw token and returns its identity.
func (s *SessionService) Verify(raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, newError(KindUnauthorized, "missing session token")
	}
	claims, err := utils.ParseSessionToken(s.secret, raw)
	if err != nil {
		return Identity{}, newError(KindUnauthorized, "invalid or expired session token")
	}
	role, err := model.ParseRole(claims.Role)
	if err != nil {
		return Identity{}, newError(KindUnauthorized, "invalid session role")
	}
	return Identity{
		UserID:   claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     role,
	}, nil
}

// Me returns the stored account behind id.
func (s *SessionService) Me(ctx context.Context, id Identity) (*model.User, error) {
	ctx, span := tracer.Start(ctx, "Session.Service.Me")
	defer span.End()

	if id.UserID == "" {
		return nil, newError(KindUnauthorized, "missing session")
	}
	u, err := s.users.GetUserByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, "user not found")
		}
		span.RecordError(err)
		return nil, internalError(errors.Wrap(err, "get user by id"))
	}
	return u, nil
}
