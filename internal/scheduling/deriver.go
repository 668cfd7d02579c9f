package scheduling

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"

	"vaccine-tracker-server/internal/ids"
	"vaccine-tracker-server/internal/models"
	"vaccine-tracker-server/internal/store"
)

// derive turns a completed appointment into its vaccination record and, for
// multi-dose vaccines, the next planned dose. Runs inside the completion
// transaction: any store error here rolls the whole completion back.
//
// Not every completed appointment yields a record: a visit with no resolvable
// vaccine (a general checkup) completes without one.
func (s *Service) derive(ctx context.Context, tx store.Store, apt *models.Appointment, in CompleteInput) (*models.VaccinationRecord, *models.VaccinationSchedule, error) {
	// Idempotence: a retried completion must not duplicate the record.
	if existing, err := tx.GetRecordByAppointment(ctx, apt.ID); err == nil {
		return existing, nil, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, nil, err
	}

	vaccineID, ok, err := s.resolveVaccine(ctx, tx, apt)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		s.log.WithField("appointment_id", apt.ID).Debug("no vaccine resolvable, completing without a record")
		return nil, nil, nil
	}

	highest, err := tx.HighestDose(ctx, apt.ChildID, vaccineID)
	if err != nil {
		return nil, nil, err
	}
	dose := highest + 1

	appointmentID := apt.ID
	rec := &models.VaccinationRecord{
		ChildID:         apt.ChildID,
		VaccineID:       vaccineID,
		DoctorID:        apt.DoctorID,
		DoseNumber:      dose,
		VaccinationDate: in.CompletedDate,
		BatchNumber:     in.BatchNumber,
		NextDueDate:     in.NextDueDate,
		Notes:           in.Notes,
		AppointmentID:   &appointmentID,
	}

	// The fulfilled planned dose becomes completed history. The appointment's
	// own schedule link can be stale: a second booking made before the first
	// completion still points at the already-closed dose-1 entry, so resolve
	// the open entry for (child, vaccine) instead of trusting the link.
	entries, err := tx.ListSchedules(ctx, apt.ChildID)
	if err != nil {
		return nil, nil, err
	}
	var open *models.VaccinationSchedule
	for i := range entries {
		if !ids.Equal(entries[i].VaccineID, vaccineID) || entries[i].Status == models.ScheduleCompleted {
			continue
		}
		if open == nil || entries[i].DoseNumber < open.DoseNumber {
			e := entries[i].VaccinationSchedule
			open = &e
		}
	}
	if open != nil {
		completed := in.CompletedDate
		open.Status = models.ScheduleCompleted
		open.CompletedDate = &completed
		if in.Notes != "" {
			open.Notes = in.Notes
		}
		if err := tx.UpdateSchedule(ctx, open); err != nil {
			return nil, nil, err
		}
	}

	// Regimen lookup decides whether a follow-up dose is planned. An unknown
	// vaccine id must not abort the derivation: the record still lands, only
	// the next-dose scheduling is skipped.
	vaccine, err := tx.GetVaccine(ctx, vaccineID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, nil, err
		}
		s.log.WithFields(map[string]interface{}{
			"appointment_id": apt.ID,
			"vaccine_id":     vaccineID,
		}).Warn("vaccine not in catalogue, skipping next-dose scheduling")
		if err := tx.CreateRecord(ctx, rec); err != nil {
			return nil, nil, err
		}
		return rec, nil, nil
	}

	var next *models.VaccinationSchedule
	if dose < vaccine.DosesRequired {
		nextDate := in.NextDueDate
		if nextDate == nil {
			computed := defaultNextDue(in.CompletedDate, s.nextDoseOffsetMonths)
			nextDate = &computed
		}
		rec.NextDueDate = nextDate
		next = &models.VaccinationSchedule{
			ChildID:       apt.ChildID,
			VaccineID:     vaccineID,
			DoseNumber:    dose + 1,
			ScheduledDate: *nextDate,
			Status:        models.SchedulePending,
		}
	}

	if err := tx.CreateRecord(ctx, rec); err != nil {
		return nil, nil, err
	}
	if next != nil {
		if err := tx.CreateSchedule(ctx, next); err != nil {
			return nil, nil, err
		}
	}
	return rec, next, nil
}

// resolveVaccine finds the vaccine the appointment administers: the named
// catalogue entry first, then the planned dose the appointment fulfills.
func (s *Service) resolveVaccine(ctx context.Context, tx store.Store, apt *models.Appointment) (ids.ID, bool, error) {
	if apt.VaccineName != "" {
		vaccine, err := tx.GetVaccineByName(ctx, apt.VaccineName)
		if err == nil {
			return vaccine.ID, true, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return "", false, err
		}
	}
	if apt.ScheduleID != nil {
		entry, err := tx.GetSchedule(ctx, *apt.ScheduleID)
		if err == nil {
			return entry.VaccineID, true, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return "", false, err
		}
	}
	return "", false, nil
}

// defaultNextDue computes the deterministic fallback due date: a fixed
// month offset from the administered dose's date.
func defaultNextDue(completed datatypes.Date, offsetMonths int) datatypes.Date {
	return datatypes.Date(time.Time(completed).AddDate(0, offsetMonths, 0))
}
