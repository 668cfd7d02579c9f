package store

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaccine-tracker-server/internal/ids"
	"vaccine-tracker-server/internal/models"
)

var errDown = errors.New("dial tcp: connection refused")

// downStore simulates an unreachable authoritative store. Only the methods
// the tests touch are implemented; anything else panics loudly.
type downStore struct{ Store }

func (downStore) CreateAppointment(context.Context, *models.Appointment) error { return errDown }
func (downStore) GetAppointment(context.Context, ids.ID) (*models.Appointment, error) {
	return nil, errDown
}
func (downStore) ListAppointments(context.Context, AppointmentFilter) ([]models.AppointmentView, error) {
	return nil, errDown
}
func (downStore) UpdateAppointmentFrom(context.Context, *models.Appointment, ...models.AppointmentStatus) error {
	return errDown
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func putAppointment(t *testing.T, s Store, id ids.ID, status models.AppointmentStatus) {
	t.Helper()
	apt := &models.Appointment{
		BaseModel: models.BaseModel{ID: id},
		ParentID:  "parent-1",
		ChildID:   "child-1",
		DoctorID:  "doctor-1",
		Time:      "10:00",
		Reason:    "checkup",
		Status:    status,
	}
	require.NoError(t, s.CreateAppointment(context.Background(), apt))
}

func TestListMergeAuthoritativeWins(t *testing.T) {
	ctx := context.Background()
	primary := NewMemory()
	cache := NewMemory()
	fb := NewFallback(primary, cache, quietLogger())

	// Same identity on both sides with diverged status, plus a cache-only row
	// written while the authoritative store was unreachable.
	putAppointment(t, primary, "1", models.StatusConfirmed)
	putAppointment(t, cache, "1", models.StatusPending)
	putAppointment(t, cache, "2", models.StatusPending)

	views, err := fb.ListAppointments(ctx, AppointmentFilter{})
	require.NoError(t, err)
	require.Len(t, views, 2)

	byID := make(map[ids.ID]models.AppointmentView, len(views))
	for _, v := range views {
		byID[ids.Norm(v.ID)] = v
	}
	assert.Equal(t, models.StatusConfirmed, byID["1"].Status, "authoritative copy wins on conflict")
	assert.Equal(t, models.StatusPending, byID["2"].Status, "cache-only entry surfaces")
}

func TestListServedFromCacheWhenPrimaryDown(t *testing.T) {
	ctx := context.Background()
	cache := NewMemory()
	fb := NewFallback(downStore{}, cache, quietLogger())

	putAppointment(t, cache, "1", models.StatusPending)

	views, err := fb.ListAppointments(ctx, AppointmentFilter{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, ids.Equal("1", views[0].ID))
}

func TestGetFallsBackToCache(t *testing.T) {
	ctx := context.Background()

	// Primary reachable but missing the row: the cached copy serves.
	primary := NewMemory()
	cache := NewMemory()
	fb := NewFallback(primary, cache, quietLogger())
	putAppointment(t, cache, "5", models.StatusPending)

	apt, err := fb.GetAppointment(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, apt.Status)

	// Primary unreachable entirely.
	fb = NewFallback(downStore{}, cache, quietLogger())
	apt, err = fb.GetAppointment(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, apt.Status)

	// Missing everywhere stays a not-found.
	_, err = NewFallback(primary, NewMemory(), quietLogger()).GetAppointment(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWriteThroughSwallowsConnectivityFailure(t *testing.T) {
	ctx := context.Background()
	cache := NewMemory()
	fb := NewFallback(downStore{}, cache, quietLogger())

	apt := &models.Appointment{
		ParentID: "parent-1",
		ChildID:  "child-1",
		DoctorID: "doctor-1",
		Time:     "09:00",
		Reason:   "checkup",
		Status:   models.StatusPending,
	}
	require.NoError(t, fb.CreateAppointment(ctx, apt), "authoritative failure must not surface")
	require.False(t, apt.ID.IsZero())

	// The optimistic cache copy is readable through the decorator.
	got, err := fb.GetAppointment(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestBusinessVerdictsPropagate(t *testing.T) {
	ctx := context.Background()
	primary := NewMemory()
	cache := NewMemory()
	fb := NewFallback(primary, cache, quietLogger())

	putAppointment(t, primary, "9", models.StatusCompleted)

	apt, err := primary.GetAppointment(ctx, "9")
	require.NoError(t, err)
	apt.Status = models.StatusConfirmed

	// A stale status is a store verdict, not a connectivity failure.
	err = fb.UpdateAppointmentFrom(ctx, apt, models.StatusPending)
	assert.ErrorIs(t, err, ErrStale)

	missing := &models.Appointment{BaseModel: models.BaseModel{ID: "missing"}, Status: models.StatusConfirmed}
	err = fb.UpdateAppointmentFrom(ctx, missing, models.StatusPending)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFilterNormalizesIDTypes(t *testing.T) {
	ctx := context.Background()
	primary := NewMemory()
	fb := NewFallback(primary, NewMemory(), quietLogger())

	apt := &models.Appointment{
		ParentID: "parent-1",
		ChildID:  "2",
		DoctorID: "doctor-1",
		Time:     "10:00",
		Reason:   "checkup",
		Status:   models.StatusPending,
	}
	require.NoError(t, fb.CreateAppointment(ctx, apt))

	// A numeric filter value matches the string-typed stored id.
	views, err := fb.ListAppointments(ctx, AppointmentFilter{ChildID: ids.Norm(2)})
	require.NoError(t, err)
	assert.Len(t, views, 1)
}
