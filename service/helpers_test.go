package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ariebrainware/telemed-api/model"
	"github.com/ariebrainware/telemed-api/util"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupServiceDB opens a fresh in-memory database with every model migrated
// and the default registry seeded.
func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service_%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.AllModels()...))
	require.NoError(t, model.SeedBmdcRegistry(db))
	return db
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recordingMailer keeps every message and fails when err is set.
type recordingMailer struct {
	mu   sync.Mutex
	sent []util.Email
	err  error
}

func (m *recordingMailer) Send(_ context.Context, e util.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, e)
	return nil
}

func (m *recordingMailer) Sent() []util.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]util.Email(nil), m.sent...)
}

var errMailDown = errors.New("mail provider unavailable")

func newStore(db *gorm.DB, clock *fakeClock) *CredentialStore {
	return &CredentialStore{
		DB:    db,
		Now:   clock.Now,
		Stats: &Statistics{DB: db, Cache: NewStatisticsCache()},
	}
}

func registerTestPatient(t *testing.T, s *CredentialStore, username, email string) *model.Patient {
	t.Helper()
	p, err := s.RegisterPatient(PatientRegistration{
		Username:    username,
		Email:       email,
		Password:    "secret1",
		FullName:    "Ann Rahman",
		DateOfBirth: "1990-04-12",
		Gender:      "Female",
	})
	require.NoError(t, err)
	return p
}

func registerTestDoctor(t *testing.T, s *CredentialStore, username, email, bmdc, name string) *model.Doctor {
	t.Helper()
	d, err := s.RegisterDoctor(DoctorRegistration{
		Username:        username,
		Email:           email,
		BmdcNumber:      bmdc,
		Password:        "secret1",
		FullName:        name,
		Specialization:  "Cardiology",
		ConsultationFee: 500,
	})
	require.NoError(t, err)
	return d
}
