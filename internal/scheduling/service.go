// Package scheduling implements the appointment state machine and the
// vaccination record deriver. Transitions are always evaluated against the
// currently persisted status via conditional updates, never against a
// client-supplied previous value.
package scheduling

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"vaccine-tracker-server/internal/ids"
	"vaccine-tracker-server/internal/models"
	"vaccine-tracker-server/internal/store"
)

// Actor is the authenticated identity performing an operation, supplied by
// the auth boundary and trusted here.
type Actor struct {
	ID   ids.ID
	Role models.Role
}

// Service drives appointment lifecycle transitions and their side effects.
type Service struct {
	store                store.Store
	log                  *logrus.Entry
	nextDoseOffsetMonths int
}

// NewService creates the scheduling service. nextDoseOffsetMonths is the
// default spacing applied when a completing doctor supplies no next due date.
func NewService(st store.Store, log *logrus.Entry, nextDoseOffsetMonths int) *Service {
	if nextDoseOffsetMonths <= 0 {
		nextDoseOffsetMonths = 2
	}
	return &Service{store: st, log: log, nextDoseOffsetMonths: nextDoseOffsetMonths}
}

// Allowed source states per transition. A rescheduled appointment re-enters
// pending semantics for accept/reject/complete eligibility.
var (
	acceptableFrom    = []models.AppointmentStatus{models.StatusPending, models.StatusRescheduled}
	completableFrom   = []models.AppointmentStatus{models.StatusConfirmed}
	cancellableFrom   = []models.AppointmentStatus{models.StatusPending, models.StatusRescheduled, models.StatusConfirmed}
	reschedulableFrom = []models.AppointmentStatus{models.StatusPending, models.StatusRescheduled, models.StatusConfirmed}
)

func statusIn(status models.AppointmentStatus, set []models.AppointmentStatus) bool {
	for _, s := range set {
		if status == s {
			return true
		}
	}
	return false
}

// CreateInput carries the parent's booking request.
type CreateInput struct {
	ChildID  ids.ID
	DoctorID ids.ID
	Date     datatypes.Date
	Time     string
	Reason   string
	Notes    string
	Vaccine  string
}

// Create books a new appointment in pending status. The child must belong to
// the acting parent, the doctor must be on the roster, and the date must not
// be in the past. When the request names a catalogue vaccine, an advisory
// schedule entry is linked for tracking.
func (s *Service) Create(ctx context.Context, actor Actor, in CreateInput) (*models.Appointment, error) {
	if actor.Role != models.RoleParent && actor.Role != models.RoleAdmin {
		return nil, &OwnershipError{Msg: "only parents can book appointments"}
	}
	if in.ChildID.IsZero() {
		return nil, validationf("child_id is required")
	}
	if in.DoctorID.IsZero() {
		return nil, validationf("doctor_id is required")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, validationf("reason is required")
	}
	if strings.TrimSpace(in.Time) == "" {
		return nil, validationf("time is required")
	}
	if time.Time(in.Date).IsZero() {
		return nil, validationf("date is required")
	}
	if dateInPast(in.Date) {
		return nil, validationf("appointment date must not be in the past")
	}

	child, err := s.store.GetChild(ctx, in.ChildID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &NotFoundError{Resource: "child"}
		}
		return nil, err
	}
	if actor.Role == models.RoleParent && !ids.Equal(child.ParentID, actor.ID) {
		return nil, &OwnershipError{Msg: "child does not belong to this parent"}
	}

	if _, err := s.store.GetDoctor(ctx, in.DoctorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &NotFoundError{Resource: "doctor"}
		}
		return nil, err
	}

	apt := &models.Appointment{
		ParentID:    child.ParentID,
		ChildID:     child.ID,
		DoctorID:    in.DoctorID,
		Date:        in.Date,
		Time:        in.Time,
		Reason:      in.Reason,
		Notes:       in.Notes,
		VaccineName: in.Vaccine,
		Status:      models.StatusPending,
	}

	// Advisory tracking entry; booking succeeds regardless.
	if in.Vaccine != "" {
		if scheduleID, err := s.linkSchedule(ctx, child.ID, in.Vaccine, in.Date); err != nil {
			s.log.WithError(err).WithField("vaccine", in.Vaccine).Debug("skipping advisory schedule entry")
		} else if scheduleID != nil {
			apt.ScheduleID = scheduleID
		}
	}

	if err := s.store.CreateAppointment(ctx, apt); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"appointment_id": apt.ID,
		"child_id":       apt.ChildID,
		"doctor_id":      apt.DoctorID,
	}).Info("appointment created")
	return apt, nil
}

// linkSchedule finds the open planned dose for (child, vaccine), creating one
// when none exists yet, and returns its id.
func (s *Service) linkSchedule(ctx context.Context, childID ids.ID, vaccineName string, date datatypes.Date) (*ids.ID, error) {
	vaccine, err := s.store.GetVaccineByName(ctx, vaccineName)
	if err != nil {
		return nil, err
	}

	entries, err := s.store.ListSchedules(ctx, childID)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if ids.Equal(entries[i].VaccineID, vaccine.ID) && entries[i].Status != models.ScheduleCompleted {
			id := entries[i].ID
			return &id, nil
		}
	}

	highest, err := s.store.HighestDose(ctx, childID, vaccine.ID)
	if err != nil {
		return nil, err
	}
	entry := &models.VaccinationSchedule{
		ChildID:       childID,
		VaccineID:     vaccine.ID,
		DoseNumber:    highest + 1,
		ScheduledDate: date,
		Status:        models.SchedulePending,
	}
	if err := s.store.CreateSchedule(ctx, entry); err != nil {
		return nil, err
	}
	return &entry.ID, nil
}

// Accept confirms a pending appointment. Doctor action.
func (s *Service) Accept(ctx context.Context, actor Actor, id ids.ID) (*models.Appointment, error) {
	apt, err := s.loadForDoctor(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !statusIn(apt.Status, acceptableFrom) {
		return nil, &InvalidTransitionError{Op: "accept", From: apt.Status}
	}

	apt.Status = models.StatusConfirmed
	if err := s.conditionalUpdate(ctx, s.store, apt, "accept", acceptableFrom); err != nil {
		return nil, err
	}
	s.log.WithField("appointment_id", apt.ID).Info("appointment confirmed")
	return apt, nil
}

// Reject declines a pending appointment with a reason shown to the parent.
// Doctor action; a blank reason is a validation error.
func (s *Service) Reject(ctx context.Context, actor Actor, id ids.ID, reason string) (*models.Appointment, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, validationf("rejection reason is required")
	}
	apt, err := s.loadForDoctor(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !statusIn(apt.Status, acceptableFrom) {
		return nil, &InvalidTransitionError{Op: "reject", From: apt.Status}
	}

	apt.Status = models.StatusRejected
	apt.RejectionReason = reason
	if err := s.conditionalUpdate(ctx, s.store, apt, "reject", acceptableFrom); err != nil {
		return nil, err
	}
	s.log.WithField("appointment_id", apt.ID).Info("appointment rejected")
	return apt, nil
}

// Cancel withdraws an appointment. Parent action on their own booking; the
// record stays as terminal history, never deleted.
func (s *Service) Cancel(ctx context.Context, actor Actor, id ids.ID) (*models.Appointment, error) {
	apt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleParent:
		if !ids.Equal(apt.ParentID, actor.ID) {
			return nil, &OwnershipError{Msg: "appointment not found or not authorized"}
		}
	default:
		return nil, &OwnershipError{Msg: "only the booking parent can cancel"}
	}
	if !statusIn(apt.Status, cancellableFrom) {
		return nil, &InvalidTransitionError{Op: "cancel", From: apt.Status}
	}

	apt.Status = models.StatusCancelled
	if err := s.conditionalUpdate(ctx, s.store, apt, "cancel", cancellableFrom); err != nil {
		return nil, err
	}
	s.log.WithField("appointment_id", apt.ID).Info("appointment cancelled")
	return apt, nil
}

// RescheduleInput carries a new slot for an existing appointment.
type RescheduleInput struct {
	Date   datatypes.Date
	Time   string
	Reason string
}

// Reschedule moves an appointment to a new slot. A parent may reschedule
// their own appointment, a doctor any appointment assigned to them. The
// appointment re-enters pending semantics.
func (s *Service) Reschedule(ctx context.Context, actor Actor, id ids.ID, in RescheduleInput) (*models.Appointment, error) {
	if time.Time(in.Date).IsZero() {
		return nil, validationf("new date is required")
	}
	if dateInPast(in.Date) {
		return nil, validationf("new appointment date must not be in the past")
	}

	apt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleParent:
		if !ids.Equal(apt.ParentID, actor.ID) {
			return nil, &OwnershipError{Msg: "appointment not found or not authorized"}
		}
	case models.RoleDoctor:
		if !ids.Equal(apt.DoctorID, actor.ID) {
			return nil, &OwnershipError{Msg: "appointment not found or not authorized"}
		}
	default:
		return nil, &OwnershipError{Msg: "role not permitted to reschedule"}
	}
	if !statusIn(apt.Status, reschedulableFrom) {
		return nil, &InvalidTransitionError{Op: "reschedule", From: apt.Status}
	}

	apt.Date = in.Date
	if in.Time != "" {
		apt.Time = in.Time
	}
	if in.Reason != "" {
		apt.Notes = in.Reason
	}
	apt.Status = models.StatusRescheduled
	if err := s.conditionalUpdate(ctx, s.store, apt, "reschedule", reschedulableFrom); err != nil {
		return nil, err
	}
	s.log.WithField("appointment_id", apt.ID).Info("appointment rescheduled")
	return apt, nil
}

// CompleteInput carries the doctor's completion details.
type CompleteInput struct {
	CompletedDate datatypes.Date
	BatchNumber   string
	NextDueDate   *datatypes.Date
	Notes         string
}

// CompletionResult is the outcome of a completion: the terminal appointment,
// the derived vaccination record (nil for a vaccine-less visit) and the next
// planned dose when the regimen needs more.
type CompletionResult struct {
	Appointment *models.Appointment        `json:"appointment"`
	Record      *models.VaccinationRecord  `json:"record,omitempty"`
	NextDose    *models.VaccinationSchedule `json:"nextDose,omitempty"`
}

// Complete marks a confirmed appointment as completed and derives its
// vaccination record in the same transaction. If derivation fails the status
// transition rolls back and the appointment stays confirmed, so the call is
// safely retryable. Retrying an already-completed appointment is an
// idempotent no-op returning the existing record.
func (s *Service) Complete(ctx context.Context, actor Actor, id ids.ID, in CompleteInput) (*CompletionResult, error) {
	apt, err := s.loadForDoctor(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if apt.Status == models.StatusCompleted {
		result := &CompletionResult{Appointment: apt}
		if rec, err := s.store.GetRecordByAppointment(ctx, apt.ID); err == nil {
			result.Record = rec
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return result, nil
	}
	if !statusIn(apt.Status, completableFrom) {
		return nil, &InvalidTransitionError{Op: "complete", From: apt.Status}
	}
	if time.Time(in.CompletedDate).IsZero() {
		return nil, validationf("completed_date is required")
	}

	var result *CompletionResult
	err = s.store.Transact(ctx, func(tx store.Store) error {
		apt.Status = models.StatusCompleted
		if in.Notes != "" {
			apt.Notes = in.Notes
		}
		if err := s.conditionalUpdate(ctx, tx, apt, "complete", completableFrom); err != nil {
			return err
		}

		rec, next, err := s.derive(ctx, tx, apt, in)
		if err != nil {
			return &DerivationError{Err: err}
		}
		result = &CompletionResult{Appointment: apt, Record: rec, NextDose: next}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"appointment_id": apt.ID,
		"derived_record": result.Record != nil,
	}).Info("appointment completed")
	return result, nil
}

func (s *Service) load(ctx context.Context, id ids.ID) (*models.Appointment, error) {
	apt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &NotFoundError{Resource: "appointment"}
		}
		return nil, err
	}
	return apt, nil
}

// loadForDoctor resolves the appointment and enforces that the actor is the
// assigned doctor (or an admin).
func (s *Service) loadForDoctor(ctx context.Context, actor Actor, id ids.ID) (*models.Appointment, error) {
	if actor.Role != models.RoleDoctor && actor.Role != models.RoleAdmin {
		return nil, &OwnershipError{Msg: "only a doctor can perform this action"}
	}
	apt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleDoctor && !ids.Equal(apt.DoctorID, actor.ID) {
		return nil, &OwnershipError{Msg: "appointment not found or not authorized"}
	}
	return apt, nil
}

// conditionalUpdate writes the transition, translating store verdicts back
// into the taxonomy: a stale row means another actor already moved it.
func (s *Service) conditionalUpdate(ctx context.Context, st store.Store, apt *models.Appointment, op string, from []models.AppointmentStatus) error {
	err := st.UpdateAppointmentFrom(ctx, apt, from...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrStale):
		current, getErr := st.GetAppointment(ctx, apt.ID)
		if getErr != nil {
			return &InvalidTransitionError{Op: op, From: apt.Status}
		}
		return &InvalidTransitionError{Op: op, From: current.Status}
	case errors.Is(err, store.ErrNotFound):
		return &NotFoundError{Resource: "appointment"}
	default:
		return err
	}
}

// dateInPast reports whether the calendar date lies before today.
func dateInPast(d datatypes.Date) bool {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	t := time.Time(d)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location()).Before(today)
}
