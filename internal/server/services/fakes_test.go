package services

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/quicklyway/internal/common"
	"github.com/dmitrijs2005/quicklyway/internal/dbx"
	"github.com/dmitrijs2005/quicklyway/internal/server/models"
	"github.com/dmitrijs2005/quicklyway/internal/server/notify"
	usersrepo "github.com/dmitrijs2005/quicklyway/internal/server/repositories/users"
)

// memUsers is an in-memory users.Repository. errOn forces an error from the
// named method.
type memUsers struct {
	mu    sync.Mutex
	byID  map[string]models.User
	errOn map[string]error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]models.User{}, errOn: map[string]error{}}
}

func (m *memUsers) fail(method string) error {
	return m.errOn[method]
}

func (m *memUsers) findEmail(email string) (models.User, bool) {
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return models.User{}, false
}

func (m *memUsers) Create(ctx context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Create"); err != nil {
		return nil, err
	}
	if _, ok := m.findEmail(user.Email); ok {
		return nil, common.ErrDuplicateEmail
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	m.byID[user.ID] = *user
	return user, nil
}

func (m *memUsers) get(id string) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetByID"); err != nil {
		return nil, err
	}
	return m.get(id)
}

func (m *memUsers) GetByIDForUpdate(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetByIDForUpdate"); err != nil {
		return nil, err
	}
	return m.get(id)
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetByEmail"); err != nil {
		return nil, err
	}
	u, ok := m.findEmail(email)
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (m *memUsers) ExistsEmailExcept(ctx context.Context, email, exceptID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ExistsEmailExcept"); err != nil {
		return false, err
	}
	u, ok := m.findEmail(email)
	return ok && u.ID != exceptID, nil
}

func (m *memUsers) update(id string, fn func(u *models.User)) error {
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now()
	m.byID[id] = u
	return nil
}

func (m *memUsers) SetRefreshToken(ctx context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SetRefreshToken"); err != nil {
		return err
	}
	return m.update(id, func(u *models.User) { u.RefreshToken = token })
}

func (m *memUsers) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SetResetToken"); err != nil {
		return err
	}
	return m.update(id, func(u *models.User) {
		u.ResetPasswordToken = token
		u.ResetPasswordExpire = &expires
	})
}

func (m *memUsers) ResetPassword(ctx context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ResetPassword"); err != nil {
		return err
	}
	return m.update(id, func(u *models.User) {
		u.PasswordHash = passwordHash
		u.ResetPasswordToken = ""
		u.ResetPasswordExpire = nil
	})
}

func (m *memUsers) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdatePassword"); err != nil {
		return err
	}
	return m.update(id, func(u *models.User) { u.PasswordHash = passwordHash })
}

func (m *memUsers) UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateProfile"); err != nil {
		return nil, err
	}
	err := m.update(id, func(u *models.User) {
		if patch.Name != nil {
			u.Name = *patch.Name
		}
		if patch.Email != nil {
			u.Email = *patch.Email
		}
	})
	if err != nil {
		return nil, err
	}
	return m.get(id)
}

func (m *memUsers) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, u := range m.byID {
		if u.ResetPasswordToken != "" && u.ResetPasswordExpire != nil && !u.ResetPasswordExpire.After(now) {
			u.ResetPasswordToken = ""
			u.ResetPasswordExpire = nil
			m.byID[id] = u
			n++
		}
	}
	return n, nil
}

// snapshot returns a copy of the stored record.
func (m *memUsers) snapshot(id string) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

func (m *memUsers) delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

type fakeRepoManager struct {
	u *memUsers
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }

type fakeMailer struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (f *fakeMailer) Dispatch(ctx context.Context, msg notify.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
}

func (f *fakeMailer) messages() []notify.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Message(nil), f.sent...)
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
