package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/oops"

	"github.com/mrlokans/session-auth/internal/database/users"
	"github.com/mrlokans/session-auth/internal/entities"
)

// dummyPassword is hashed once at startup; unknown usernames are compared
// against it so a failed lookup costs as much as a wrong password.
const dummyPassword = "session-auth-timing-equalizer"

// UserStore is the persistence the service needs.
type UserStore interface {
	UserFinder
	CreateUser(ctx context.Context, username, passwordHash string) (*entities.User, error)
	GetUserByUsername(ctx context.Context, username string) (*entities.User, error)
}

// Service implements signup, login, autologin and logout on top of a
// UserStore, a PasswordHasher and the request's Session.
type Service struct {
	users     UserStore
	hasher    PasswordHasher
	metrics   OutcomeRecorder
	dummyHash string
}

// NewService creates the service. A nil metrics recorder disables counting.
func NewService(store UserStore, hasher PasswordHasher, metrics OutcomeRecorder) (*Service, error) {
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, oops.Code("HASHER_INIT_FAILED").Wrapf(err, "hash dummy password")
	}
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return &Service{
		users:     store,
		hasher:    hasher,
		metrics:   metrics,
		dummyHash: dummyHash,
	}, nil
}

// Signup creates a user and authenticates the session as that user. On
// validation failure the session is left untouched.
func (s *Service) Signup(ctx context.Context, sess Session, username, password string) Result {
	res := s.signup(ctx, sess, username, password)
	s.record(OpSignup, res)
	return res
}

func (s *Service) signup(ctx context.Context, sess Session, username, password string) Result {
	user, res := s.register(ctx, username, password)
	if user == nil {
		return res
	}
	if err := sess.SetUserID(user.ID); err != nil {
		return errorResult(ErrInternal, err)
	}
	return res
}

// Register creates a user without touching any session. Validation behaves
// exactly as in Signup.
func (s *Service) Register(ctx context.Context, username, password string) Result {
	_, res := s.register(ctx, username, password)
	return res
}

func (s *Service) register(ctx context.Context, username, password string) (*entities.User, Result) {
	messages := users.ValidateUsername(username)
	messages = append(messages, validatePassword(password)...)
	if len(messages) > 0 {
		return nil, errorResult(ErrValidationFailed, nil, messages...)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, errorResult(ErrInternal, err)
	}

	user, err := s.users.CreateUser(ctx, username, hash)
	if err != nil {
		var verr *users.ValidationError
		if errors.As(err, &verr) {
			return nil, errorResult(ErrValidationFailed, err, verr.Messages...)
		}
		return nil, errorResult(ErrInternal, err)
	}
	return user, userResult(user)
}

// Login authenticates the session when the credentials match. Unknown users
// and wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, sess Session, username, password string) Result {
	res := s.login(ctx, sess, username, password)
	s.record(OpLogin, res)
	return res
}

func (s *Service) login(ctx context.Context, sess Session, username, password string) Result {
	user, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, users.ErrNotFound) {
		_, _ = s.hasher.Verify(password, s.dummyHash)
		return errorResult(ErrInvalidCredentials, err, MsgInvalidCredentials)
	}
	if err != nil {
		return errorResult(ErrInternal, err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return errorResult(ErrInternal, oops.
			Code("PASSWORD_VERIFY_FAILED").
			With("user_id", user.ID).
			Wrapf(err, "verify password"))
	}
	if !ok {
		return errorResult(ErrInvalidCredentials, nil, MsgInvalidCredentials)
	}

	if err := sess.SetUserID(user.ID); err != nil {
		return errorResult(ErrInternal, err)
	}
	return userResult(user)
}

// Autologin returns the current user. With no current user the result is
// empty; the gate normally rejects such requests before they get here.
func (s *Service) Autologin(current *entities.User) Result {
	if current == nil {
		s.metrics.Record(OpAutologin, "empty")
		return Result{}
	}
	res := userResult(current)
	s.record(OpAutologin, res)
	return res
}

// Logout clears the session's user id. Logging out an anonymous session
// succeeds.
func (s *Service) Logout(sess Session) Result {
	res := messageResult(MsgLoggedOut)
	if err := sess.ClearUserID(); err != nil {
		res = errorResult(ErrInternal, err)
	}
	s.record(OpLogout, res)
	return res
}

func (s *Service) record(op Operation, res Result) {
	s.metrics.Record(op, outcome(res))
}

func outcome(res Result) string {
	if res.Err == nil {
		return "success"
	}
	return strings.ToLower(string(res.Err.Kind))
}

func validatePassword(password string) []string {
	switch {
	case password == "":
		return []string{users.MsgPasswordBlank}
	case len(password) > MaxPasswordBytes:
		return []string{MsgPasswordTooLong}
	default:
		return nil
	}
}
