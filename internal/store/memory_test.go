package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaccine-tracker-server/internal/models"
)

func TestMemoryTransactRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	putAppointment(t, mem, "1", models.StatusConfirmed)

	boom := errors.New("derivation failed")
	err := mem.Transact(ctx, func(tx Store) error {
		apt, err := tx.GetAppointment(ctx, "1")
		require.NoError(t, err)
		apt.Status = models.StatusCompleted
		if err := tx.UpdateAppointmentFrom(ctx, apt, models.StatusConfirmed); err != nil {
			return err
		}
		if err := tx.CreateRecord(ctx, &models.VaccinationRecord{
			ChildID:   "child-1",
			VaccineID: "vaccine-1",
			DoctorID:  "doctor-1",
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Every write inside the failed transaction is undone.
	apt, err := mem.GetAppointment(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, apt.Status)

	records, err := mem.ListRecords(ctx, "child-1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMemoryConditionalUpdateVerdicts(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	putAppointment(t, mem, "1", models.StatusCancelled)

	apt, err := mem.GetAppointment(ctx, "1")
	require.NoError(t, err)
	apt.Status = models.StatusConfirmed

	assert.ErrorIs(t, mem.UpdateAppointmentFrom(ctx, apt, models.StatusPending, models.StatusRescheduled), ErrStale)

	apt.ID = "ghost"
	assert.ErrorIs(t, mem.UpdateAppointmentFrom(ctx, apt, models.StatusPending), ErrNotFound)
}
