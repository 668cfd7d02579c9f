package scheduling

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"vaccine-tracker-server/internal/ids"
	"vaccine-tracker-server/internal/models"
	"vaccine-tracker-server/internal/store"
)

const (
	testParentID ids.ID = "parent-1"
	testDoctorID ids.ID = "doctor-1"
)

var (
	parentActor = Actor{ID: testParentID, Role: models.RoleParent}
	doctorActor = Actor{ID: testDoctorID, Role: models.RoleDoctor}
	adminActor  = Actor{ID: "admin-1", Role: models.RoleAdmin}
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func futureDate(days int) datatypes.Date {
	return datatypes.Date(time.Now().AddDate(0, 0, days))
}

// newTestService wires a service against the in-memory store with one parent,
// one child, the doctor and a three-dose vaccine.
func newTestService(t *testing.T) (*Service, *store.Memory, *models.Child) {
	t.Helper()
	mem := store.NewMemory()
	mem.PutDoctor(models.Doctor{
		BaseModel:      models.BaseModel{ID: testDoctorID},
		FirstName:      "Arun",
		LastName:       "Patel",
		Specialization: "Pediatrics",
		Email:          "arun.patel@example.com",
	})

	child := &models.Child{
		ParentID:    testParentID,
		FirstName:   "Asha",
		LastName:    "Rao",
		DateOfBirth: datatypes.Date(time.Now().AddDate(-1, 0, 0)),
		Gender:      models.GenderFemale,
	}
	require.NoError(t, mem.CreateChild(context.Background(), child))

	require.NoError(t, mem.CreateVaccine(context.Background(), &models.Vaccine{
		Name:          "Hepatitis B",
		DosesRequired: 3,
	}))

	return NewService(mem, testLogger(), 2), mem, child
}

func bookAppointment(t *testing.T, svc *Service, child *models.Child, vaccine string) *models.Appointment {
	t.Helper()
	apt, err := svc.Create(context.Background(), parentActor, CreateInput{
		ChildID:  child.ID,
		DoctorID: testDoctorID,
		Date:     futureDate(7),
		Time:     "10:00",
		Reason:   "Routine immunization",
		Vaccine:  vaccine,
	})
	require.NoError(t, err)
	return apt
}

func TestCreateValidation(t *testing.T) {
	svc, _, child := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateInput
	}{
		{"missing child", CreateInput{DoctorID: testDoctorID, Date: futureDate(1), Time: "10:00", Reason: "checkup"}},
		{"missing doctor", CreateInput{ChildID: child.ID, Date: futureDate(1), Time: "10:00", Reason: "checkup"}},
		{"missing reason", CreateInput{ChildID: child.ID, DoctorID: testDoctorID, Date: futureDate(1), Time: "10:00"}},
		{"missing time", CreateInput{ChildID: child.ID, DoctorID: testDoctorID, Date: futureDate(1), Reason: "checkup"}},
		{"past date", CreateInput{ChildID: child.ID, DoctorID: testDoctorID, Date: datatypes.Date(time.Now().AddDate(0, 0, -3)), Time: "10:00", Reason: "checkup"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, parentActor, tt.in)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestCreateUnknownReferences(t *testing.T) {
	svc, _, child := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, parentActor, CreateInput{
		ChildID: "no-such-child", DoctorID: testDoctorID,
		Date: futureDate(1), Time: "10:00", Reason: "checkup",
	})
	var nfe *NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, "child", nfe.Resource)

	_, err = svc.Create(ctx, parentActor, CreateInput{
		ChildID: child.ID, DoctorID: "no-such-doctor",
		Date: futureDate(1), Time: "10:00", Reason: "checkup",
	})
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, "doctor", nfe.Resource)
}

func TestCreateOwnership(t *testing.T) {
	svc, mem, _ := newTestService(t)
	ctx := context.Background()

	other := &models.Child{ParentID: "parent-2", FirstName: "Ravi", LastName: "Kumar", Gender: models.GenderMale}
	require.NoError(t, mem.CreateChild(ctx, other))

	_, err := svc.Create(ctx, parentActor, CreateInput{
		ChildID: other.ID, DoctorID: testDoctorID,
		Date: futureDate(1), Time: "10:00", Reason: "checkup",
	})
	var oerr *OwnershipError
	assert.ErrorAs(t, err, &oerr)

	// Doctors cannot book on behalf of parents.
	_, err = svc.Create(ctx, doctorActor, CreateInput{
		ChildID: other.ID, DoctorID: testDoctorID,
		Date: futureDate(1), Time: "10:00", Reason: "checkup",
	})
	assert.ErrorAs(t, err, &oerr)
}

func TestAcceptAndReject(t *testing.T) {
	svc, _, child := newTestService(t)
	ctx := context.Background()

	apt := bookAppointment(t, svc, child, "")
	assert.Equal(t, models.StatusPending, apt.Status)

	confirmed, err := svc.Accept(ctx, doctorActor, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)

	// Accept is not valid a second time.
	_, err = svc.Accept(ctx, doctorActor, apt.ID)
	var terr *InvalidTransitionError
	assert.ErrorAs(t, err, &terr)

	// Rejection needs a reason and a pending appointment.
	other := bookAppointment(t, svc, child, "")
	_, err = svc.Reject(ctx, doctorActor, other.ID, "  ")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	rejected, err := svc.Reject(ctx, doctorActor, other.ID, "slot no longer available")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Equal(t, "slot no longer available", rejected.RejectionReason)

	_, err = svc.Reject(ctx, doctorActor, confirmed.ID, "too late")
	assert.ErrorAs(t, err, &terr)
}

func TestDoctorScopedTransitions(t *testing.T) {
	svc, mem, child := newTestService(t)
	ctx := context.Background()
	apt := bookAppointment(t, svc, child, "")

	mem.PutDoctor(models.Doctor{BaseModel: models.BaseModel{ID: "doctor-2"}, FirstName: "Priya", LastName: "Sharma", Email: "priya.sharma@example.com"})
	otherDoctor := Actor{ID: "doctor-2", Role: models.RoleDoctor}

	_, err := svc.Accept(ctx, otherDoctor, apt.ID)
	var oerr *OwnershipError
	assert.ErrorAs(t, err, &oerr)

	_, err = svc.Accept(ctx, parentActor, apt.ID)
	assert.ErrorAs(t, err, &oerr)

	// Admin may act on any appointment.
	_, err = svc.Accept(ctx, adminActor, apt.ID)
	assert.NoError(t, err)
}

func TestCancel(t *testing.T) {
	svc, _, child := newTestService(t)
	ctx := context.Background()

	apt := bookAppointment(t, svc, child, "")
	otherParent := Actor{ID: "parent-2", Role: models.RoleParent}
	_, err := svc.Cancel(ctx, otherParent, apt.ID)
	var oerr *OwnershipError
	assert.ErrorAs(t, err, &oerr)

	cancelled, err := svc.Cancel(ctx, parentActor, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	// Terminal states stay terminal.
	_, err = svc.Cancel(ctx, parentActor, apt.ID)
	var terr *InvalidTransitionError
	assert.ErrorAs(t, err, &terr)
	_, err = svc.Reschedule(ctx, parentActor, apt.ID, RescheduleInput{Date: futureDate(3)})
	assert.ErrorAs(t, err, &terr)
}

func TestRescheduleReentersPending(t *testing.T) {
	svc, _, child := newTestService(t)
	ctx := context.Background()

	apt := bookAppointment(t, svc, child, "")
	_, err := svc.Accept(ctx, doctorActor, apt.ID)
	require.NoError(t, err)

	moved, err := svc.Reschedule(ctx, parentActor, apt.ID, RescheduleInput{
		Date: futureDate(14),
		Time: "14:30",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRescheduled, moved.Status)
	assert.Equal(t, "14:30", moved.Time)

	// A rescheduled appointment is pending again: the doctor re-confirms it.
	confirmed, err := svc.Accept(ctx, doctorActor, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)
}

func TestRescheduleValidation(t *testing.T) {
	svc, _, child := newTestService(t)
	ctx := context.Background()
	apt := bookAppointment(t, svc, child, "")

	_, err := svc.Reschedule(ctx, parentActor, apt.ID, RescheduleInput{})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Reschedule(ctx, parentActor, apt.ID, RescheduleInput{Date: datatypes.Date(time.Now().AddDate(0, 0, -1))})
	assert.ErrorAs(t, err, &verr)
}

func TestCompleteFlow(t *testing.T) {
	svc, mem, child := newTestService(t)
	ctx := context.Background()

	apt := bookAppointment(t, svc, child, "Hepatitis B")
	require.NotNil(t, apt.ScheduleID)
	_, err := svc.Accept(ctx, doctorActor, apt.ID)
	require.NoError(t, err)

	completedDate := datatypes.Date(time.Now())
	result, err := svc.Complete(ctx, doctorActor, apt.ID, CompleteInput{
		CompletedDate: completedDate,
		BatchNumber:   "B100",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, result.Appointment.Status)

	require.NotNil(t, result.Record)
	assert.Equal(t, 1, result.Record.DoseNumber)
	assert.Equal(t, "B100", result.Record.BatchNumber)
	require.NotNil(t, result.Record.AppointmentID)
	assert.True(t, ids.Equal(*result.Record.AppointmentID, apt.ID))

	// Dose 1 of 3: a follow-up entry is planned.
	require.NotNil(t, result.NextDose)
	assert.Equal(t, 2, result.NextDose.DoseNumber)

	// The fulfilled planned dose is closed out.
	entry, err := mem.GetSchedule(ctx, *apt.ScheduleID)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleCompleted, entry.Status)
	require.NotNil(t, entry.CompletedDate)
}

func TestCompleteIdempotent(t *testing.T) {
	svc, mem, child := newTestService(t)
	ctx := context.Background()

	apt := bookAppointment(t, svc, child, "Hepatitis B")
	_, err := svc.Accept(ctx, doctorActor, apt.ID)
	require.NoError(t, err)

	in := CompleteInput{CompletedDate: datatypes.Date(time.Now()), BatchNumber: "B100"}
	first, err := svc.Complete(ctx, doctorActor, apt.ID, in)
	require.NoError(t, err)
	require.NotNil(t, first.Record)

	// Retrying a completed appointment is a no-op returning the same record.
	second, err := svc.Complete(ctx, doctorActor, apt.ID, in)
	require.NoError(t, err)
	require.NotNil(t, second.Record)
	assert.True(t, ids.Equal(first.Record.ID, second.Record.ID))

	records, err := mem.ListRecords(ctx, child.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCompleteGuards(t *testing.T) {
	svc, _, child := newTestService(t)
	ctx := context.Background()
	apt := bookAppointment(t, svc, child, "")

	// Pending appointments cannot be completed.
	_, err := svc.Complete(ctx, doctorActor, apt.ID, CompleteInput{CompletedDate: datatypes.Date(time.Now())})
	var terr *InvalidTransitionError
	assert.ErrorAs(t, err, &terr)

	_, err = svc.Accept(ctx, doctorActor, apt.ID)
	require.NoError(t, err)

	// Completion date is mandatory.
	_, err = svc.Complete(ctx, doctorActor, apt.ID, CompleteInput{})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	// Only the assigned doctor (or an admin) completes.
	_, err = svc.Complete(ctx, parentActor, apt.ID, CompleteInput{CompletedDate: datatypes.Date(time.Now())})
	var oerr *OwnershipError
	assert.ErrorAs(t, err, &oerr)

	_, err = svc.Complete(ctx, doctorActor, "no-such-appointment", CompleteInput{CompletedDate: datatypes.Date(time.Now())})
	var nfe *NotFoundError
	assert.ErrorAs(t, err, &nfe)
}
