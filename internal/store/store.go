// Package store is the persistence abstraction shared by the authoritative
// relational database, the local key-indexed fallback cache, and the
// reconciling decorator that merges the two.
package store

import (
	"context"
	"errors"

	"vaccine-tracker-server/internal/ids"
	"vaccine-tracker-server/internal/models"
)

var (
	// ErrNotFound is returned when an id does not resolve.
	ErrNotFound = errors.New("store: not found")
	// ErrStale is returned by conditional appointment updates when the
	// persisted status is no longer one of the expected source states.
	ErrStale = errors.New("store: stale appointment status")
)

// AppointmentFilter narrows appointment listings. Zero-value fields are
// ignored. Matching is by normalized identifier.
type AppointmentFilter struct {
	ParentID ids.ID
	DoctorID ids.ID
	ChildID  ids.ID
}

// Store is the entity store consumed by the scheduling core and the read
// side. Implementations: Gorm (authoritative MySQL), Memory (key-indexed
// in-process cache, also the test double), Cache (Redis mirror) and Fallback
// (reconciling decorator over an authoritative store and a cache).
type Store interface {
	// Children
	CreateChild(ctx context.Context, child *models.Child) error
	GetChild(ctx context.Context, id ids.ID) (*models.Child, error)
	ListChildren(ctx context.Context, parentID ids.ID) ([]models.Child, error)
	UpdateChild(ctx context.Context, child *models.Child) error
	DeleteChild(ctx context.Context, id ids.ID) error

	// Doctors (read-only roster)
	GetDoctor(ctx context.Context, id ids.ID) (*models.Doctor, error)
	ListDoctors(ctx context.Context) ([]models.Doctor, error)

	// Vaccines
	CreateVaccine(ctx context.Context, vaccine *models.Vaccine) error
	GetVaccine(ctx context.Context, id ids.ID) (*models.Vaccine, error)
	GetVaccineByName(ctx context.Context, name string) (*models.Vaccine, error)
	ListVaccines(ctx context.Context) ([]models.Vaccine, error)
	UpdateVaccine(ctx context.Context, vaccine *models.Vaccine) error
	DeleteVaccine(ctx context.Context, id ids.ID) error

	// Appointments
	CreateAppointment(ctx context.Context, apt *models.Appointment) error
	GetAppointment(ctx context.Context, id ids.ID) (*models.Appointment, error)
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]models.AppointmentView, error)
	// UpdateAppointmentFrom persists the appointment's mutable fields only if
	// the stored status is one of the given source states: a conditional
	// check-current-then-write, never a blind overwrite.
	UpdateAppointmentFrom(ctx context.Context, apt *models.Appointment, from ...models.AppointmentStatus) error

	// Vaccination schedules
	CreateSchedule(ctx context.Context, entry *models.VaccinationSchedule) error
	GetSchedule(ctx context.Context, id ids.ID) (*models.VaccinationSchedule, error)
	ListSchedules(ctx context.Context, childID ids.ID) ([]models.ScheduleView, error)
	UpdateSchedule(ctx context.Context, entry *models.VaccinationSchedule) error

	// Vaccination records
	CreateRecord(ctx context.Context, rec *models.VaccinationRecord) error
	GetRecord(ctx context.Context, id ids.ID) (*models.VaccinationRecord, error)
	GetRecordByAppointment(ctx context.Context, appointmentID ids.ID) (*models.VaccinationRecord, error)
	ListRecords(ctx context.Context, childID ids.ID) ([]models.RecordView, error)
	UpdateRecord(ctx context.Context, rec *models.VaccinationRecord) error
	// HighestDose returns the highest administered dose number for the
	// (child, vaccine) pair, 0 when none exists.
	HighestDose(ctx context.Context, childID, vaccineID ids.ID) (int, error)

	// Transact runs fn atomically: either every write inside fn persists or
	// none do. Stores without transactional semantics document their
	// best-effort behavior.
	Transact(ctx context.Context, fn func(Store) error) error
}
