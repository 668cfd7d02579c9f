package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"vaccine-tracker-server/internal/ids"
	"vaccine-tracker-server/internal/models"
)

func day(y int, m time.Month, d int) datatypes.Date {
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func sameDay(t *testing.T, want, got datatypes.Date) {
	t.Helper()
	assert.Equal(t, time.Time(want).Format("2006-01-02"), time.Time(got).Format("2006-01-02"))
}

func completeAppointment(t *testing.T, svc *Service, aptID ids.ID, in CompleteInput) *CompletionResult {
	t.Helper()
	ctx := context.Background()
	_, err := svc.Accept(ctx, doctorActor, aptID)
	require.NoError(t, err)
	result, err := svc.Complete(ctx, doctorActor, aptID, in)
	require.NoError(t, err)
	return result
}

func TestDeriveDoseSequencing(t *testing.T) {
	svc, mem, child := newTestService(t)
	ctx := context.Background()

	vaccine, err := mem.GetVaccineByName(ctx, "Hepatitis B")
	require.NoError(t, err)

	// The child already received dose 1.
	require.NoError(t, mem.CreateRecord(ctx, &models.VaccinationRecord{
		ChildID:         child.ID,
		VaccineID:       vaccine.ID,
		DoctorID:        testDoctorID,
		DoseNumber:      1,
		VaccinationDate: day(2026, 1, 10),
	}))

	apt := bookAppointment(t, svc, child, "Hepatitis B")
	result := completeAppointment(t, svc, apt.ID, CompleteInput{CompletedDate: day(2026, 3, 10)})

	require.NotNil(t, result.Record)
	assert.Equal(t, 2, result.Record.DoseNumber)
	require.NotNil(t, result.NextDose)
	assert.Equal(t, 3, result.NextDose.DoseNumber)
}

func TestDeriveFinalDoseEndsRegimen(t *testing.T) {
	svc, mem, child := newTestService(t)
	ctx := context.Background()

	vaccine, err := mem.GetVaccineByName(ctx, "Hepatitis B")
	require.NoError(t, err)
	for dose := 1; dose <= 2; dose++ {
		require.NoError(t, mem.CreateRecord(ctx, &models.VaccinationRecord{
			ChildID:         child.ID,
			VaccineID:       vaccine.ID,
			DoctorID:        testDoctorID,
			DoseNumber:      dose,
			VaccinationDate: day(2026, time.Month(dose), 10),
		}))
	}

	apt := bookAppointment(t, svc, child, "Hepatitis B")
	result := completeAppointment(t, svc, apt.ID, CompleteInput{CompletedDate: day(2026, 5, 10)})

	require.NotNil(t, result.Record)
	assert.Equal(t, 3, result.Record.DoseNumber)
	assert.Nil(t, result.NextDose)
	assert.Nil(t, result.Record.NextDueDate)
}

func TestDeriveDefaultNextDueDate(t *testing.T) {
	svc, _, child := newTestService(t)

	apt := bookAppointment(t, svc, child, "Hepatitis B")
	completed := day(2026, 3, 10)
	result := completeAppointment(t, svc, apt.ID, CompleteInput{CompletedDate: completed})

	// No explicit due date from the doctor: a fixed two month offset applies.
	require.NotNil(t, result.NextDose)
	sameDay(t, day(2026, 5, 10), result.NextDose.ScheduledDate)
	require.NotNil(t, result.Record.NextDueDate)
	sameDay(t, day(2026, 5, 10), *result.Record.NextDueDate)
}

func TestDeriveExplicitNextDueDateWins(t *testing.T) {
	svc, _, child := newTestService(t)

	apt := bookAppointment(t, svc, child, "Hepatitis B")
	due := day(2026, 6, 1)
	result := completeAppointment(t, svc, apt.ID, CompleteInput{
		CompletedDate: day(2026, 3, 10),
		NextDueDate:   &due,
	})

	require.NotNil(t, result.NextDose)
	sameDay(t, due, result.NextDose.ScheduledDate)
}

func TestDeriveConfigurableOffset(t *testing.T) {
	_, mem, child := newTestService(t)
	svc := NewService(mem, testLogger(), 6)

	apt := bookAppointment(t, svc, child, "Hepatitis B")
	result := completeAppointment(t, svc, apt.ID, CompleteInput{CompletedDate: day(2026, 1, 15)})

	require.NotNil(t, result.NextDose)
	sameDay(t, day(2026, 7, 15), result.NextDose.ScheduledDate)
}

func TestDeriveVaccinelessCompletion(t *testing.T) {
	svc, mem, child := newTestService(t)
	ctx := context.Background()

	apt := bookAppointment(t, svc, child, "")
	result := completeAppointment(t, svc, apt.ID, CompleteInput{CompletedDate: day(2026, 3, 10)})

	assert.Equal(t, models.StatusCompleted, result.Appointment.Status)
	assert.Nil(t, result.Record)

	records, err := mem.ListRecords(ctx, child.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDeriveUnknownVaccineSkipsNextDose(t *testing.T) {
	svc, mem, child := newTestService(t)
	ctx := context.Background()

	// A planned dose referencing a vaccine that is not in the catalogue.
	entry := &models.VaccinationSchedule{
		ChildID:       child.ID,
		VaccineID:     "ghost-vaccine",
		DoseNumber:    1,
		ScheduledDate: day(2026, 3, 10),
		Status:        models.SchedulePending,
	}
	require.NoError(t, mem.CreateSchedule(ctx, entry))

	apt := &models.Appointment{
		ParentID:   testParentID,
		ChildID:    child.ID,
		DoctorID:   testDoctorID,
		Date:       day(2026, 3, 10),
		Time:       "10:00",
		Reason:     "Immunization",
		ScheduleID: &entry.ID,
		Status:     models.StatusPending,
	}
	require.NoError(t, mem.CreateAppointment(ctx, apt))

	result := completeAppointment(t, svc, apt.ID, CompleteInput{CompletedDate: day(2026, 3, 10)})

	// The record still lands; only the follow-up scheduling is skipped.
	require.NotNil(t, result.Record)
	assert.True(t, ids.Equal("ghost-vaccine", result.Record.VaccineID))
	assert.Nil(t, result.NextDose)
}

func TestDeriveClosesOpenDoseFromEarlierBooking(t *testing.T) {
	svc, mem, child := newTestService(t)
	ctx := context.Background()

	// Both bookings link the dose-1 entry; by the time the second completes,
	// that link is stale and the open entry is dose 2.
	first := bookAppointment(t, svc, child, "Hepatitis B")
	second := bookAppointment(t, svc, child, "Hepatitis B")

	completeAppointment(t, svc, first.ID, CompleteInput{CompletedDate: day(2026, 3, 10)})
	result := completeAppointment(t, svc, second.ID, CompleteInput{CompletedDate: day(2026, 5, 10)})

	require.NotNil(t, result.Record)
	assert.Equal(t, 2, result.Record.DoseNumber)

	entries, err := mem.ListSchedules(ctx, child.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byDose := make(map[int]models.ScheduleStatus, len(entries))
	for _, e := range entries {
		byDose[e.DoseNumber] = e.Status
	}
	assert.Equal(t, models.ScheduleCompleted, byDose[1])
	assert.Equal(t, models.ScheduleCompleted, byDose[2], "an administered dose must not stay planned")
	assert.Equal(t, models.SchedulePending, byDose[3])
}

func TestDeriveLinksPlannedDose(t *testing.T) {
	svc, mem, child := newTestService(t)
	ctx := context.Background()

	// Booking the same vaccine twice reuses the open planned dose instead of
	// stacking duplicates.
	first := bookAppointment(t, svc, child, "Hepatitis B")
	second := bookAppointment(t, svc, child, "Hepatitis B")
	require.NotNil(t, first.ScheduleID)
	require.NotNil(t, second.ScheduleID)
	assert.True(t, ids.Equal(*first.ScheduleID, *second.ScheduleID))

	entries, err := mem.ListSchedules(ctx, child.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
