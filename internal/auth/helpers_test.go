package auth

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/session-auth/internal/database"
	"github.com/mrlokans/session-auth/internal/database/users"
	"github.com/mrlokans/session-auth/internal/entities"
)

// memSession is an in-process Session.
type memSession struct {
	userID  uint
	set     bool
	renewed int
	failSet error
}

func (s *memSession) UserID() (uint, bool) { return s.userID, s.set }

func (s *memSession) SetUserID(id uint) error {
	if s.failSet != nil {
		return s.failSet
	}
	s.userID, s.set = id, true
	s.renewed++
	return nil
}

func (s *memSession) ClearUserID() error {
	s.userID, s.set = 0, false
	s.renewed++
	return nil
}

// staticProvider hands out the same session for every request.
type staticProvider struct{ sess Session }

func (p staticProvider) ForRequest(*http.Request) Session { return p.sess }

// failingStore fails every lookup with an infrastructure error.
type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) GetUserByID(context.Context, uint) (*entities.User, error) {
	return nil, errStoreDown
}

func (failingStore) GetUserByUsername(context.Context, string) (*entities.User, error) {
	return nil, errStoreDown
}

func (failingStore) CreateUser(context.Context, string, string) (*entities.User, error) {
	return nil, errStoreDown
}

func setupTestDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func setupTestService(t *testing.T) (*Service, *users.Repository) {
	t.Helper()
	repo := users.NewRepository(setupTestDB(t).DB)
	svc, err := NewService(repo, NewBcryptHasher(bcrypt.MinCost), nil)
	require.NoError(t, err)
	return svc, repo
}
