package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/session-auth/internal/entities"
)

// ErrorKind classifies a failed operation. Every kind is terminal and
// user-visible; none is retried.
type ErrorKind string

const (
	ErrValidationFailed   ErrorKind = "VALIDATION_FAILED"
	ErrInvalidCredentials ErrorKind = "INVALID_CREDENTIALS"
	ErrUnauthorized       ErrorKind = "UNAUTHORIZED"
	ErrRateLimited        ErrorKind = "RATE_LIMITED"
	ErrInternal           ErrorKind = "INTERNAL"
)

// Client-facing messages.
const (
	MsgInvalidCredentials = "Invalid username or password"
	MsgPleaseLogIn        = "Please log in"
	MsgLoggedOut          = "Logged out"
	MsgPasswordTooLong    = "Password is too long (maximum is 72 bytes)"
	MsgTooManyAttempts    = "Too many login attempts. Please try again later."
	MsgInvalidBody        = "Invalid request body"
	internalErrorMessage  = "internal error"
)

// Error is the failure half of a Result.
type Error struct {
	Kind     ErrorKind
	Messages []string
	// Cause is kept for logging and never rendered.
	Cause error
}

func (e *Error) Error() string {
	if len(e.Messages) == 0 {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Messages[0]
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Status maps the error kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case ErrValidationFailed, ErrInvalidCredentials:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Body is the JSON response body for the error. Validation failures list
// every message; the others carry a single string.
func (e *Error) Body() gin.H {
	switch e.Kind {
	case ErrUnauthorized:
		return gin.H{"message": MsgPleaseLogIn}
	case ErrValidationFailed:
		return gin.H{"errors": e.Messages}
	case ErrInternal:
		return gin.H{"errors": internalErrorMessage}
	default:
		msg := string(e.Kind)
		if len(e.Messages) > 0 {
			msg = e.Messages[0]
		}
		return gin.H{"errors": msg}
	}
}

// Result is returned by every Service operation: a public user, a message,
// an error, or nothing at all.
type Result struct {
	User    *entities.PublicUser
	Message string
	Err     *Error
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Empty reports whether the result carries no body.
func (r Result) Empty() bool {
	return r.User == nil && r.Message == "" && r.Err == nil
}

func userResult(u *entities.User) Result {
	pub := u.Public()
	return Result{User: &pub}
}

func messageResult(msg string) Result {
	return Result{Message: msg}
}

func errorResult(kind ErrorKind, cause error, messages ...string) Result {
	return Result{Err: &Error{Kind: kind, Messages: messages, Cause: cause}}
}

// Render writes the result as the HTTP response.
func (r Result) Render(c *gin.Context) {
	if r.Empty() {
		c.Status(http.StatusNoContent)
		return
	}
	switch {
	case r.Err != nil:
		c.JSON(r.Err.Status(), r.Err.Body())
	case r.User != nil:
		c.JSON(http.StatusOK, r.User)
	default:
		c.JSON(http.StatusOK, gin.H{"message": r.Message})
	}
}
