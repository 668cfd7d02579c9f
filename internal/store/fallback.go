package store

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"vaccine-tracker-server/internal/ids"
	"vaccine-tracker-server/internal/models"
)

// Fallback is the reconciling decorator over an authoritative store and a
// local cache. Reads consult both and merge by identity key with the
// authoritative source folded last, so authoritative data wins on conflicting
// fields; cache-only entries (not yet synced, or written while the
// authoritative store was unreachable) surface as-is. Writes go to the cache
// first, optimistically, then through to the authoritative store; a failed
// write-through is logged and swallowed, never surfaced to the caller.
type Fallback struct {
	primary Store
	cache   Store
	log     *logrus.Entry
}

// NewFallback creates the reconciling store.
func NewFallback(primary, cache Store, log *logrus.Entry) *Fallback {
	return &Fallback{primary: primary, cache: cache, log: log}
}

// businessError reports whether the error is a store-level verdict rather
// than a connectivity failure. Verdicts always propagate; only connectivity
// failures are absorbed by the write-through policy.
func businessError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrStale)
}

// writeThrough applies the write-through failure policy to the authoritative
// store's result after the cache write already succeeded.
func (s *Fallback) writeThrough(op string, err error) error {
	if err == nil || businessError(err) {
		return err
	}
	s.log.WithError(err).WithField("op", op).Warn("authoritative write failed, change kept in local cache for later sync")
	return nil
}

func (s *Fallback) cacheWrite(op string, err error) {
	if err != nil {
		s.log.WithError(err).WithField("op", op).Debug("local cache write failed")
	}
}

// mergeByID folds both sources into a map keyed by normalized id,
// left-to-right, authoritative last.
func mergeByID[T any](key func(T) ids.ID, local, authoritative []T) []T {
	merged := make(map[ids.ID]T, len(local)+len(authoritative))
	var order []ids.ID
	for _, batch := range [][]T{local, authoritative} {
		for _, item := range batch {
			k := ids.Norm(key(item))
			if _, seen := merged[k]; !seen {
				order = append(order, k)
			}
			merged[k] = item
		}
	}
	out := make([]T, 0, len(order))
	for _, k := range order {
		out = append(out, merged[k])
	}
	return out
}

// getMerged prefers the authoritative copy of a single entity and falls back
// to the cache when the authoritative store cannot produce it.
func getMerged[T any](s *Fallback, op string, fromPrimary, fromCache func() (*T, error)) (*T, error) {
	v, err := fromPrimary()
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrNotFound) {
		s.log.WithError(err).WithField("op", op).Warn("authoritative read failed, serving local cache")
	}
	if cached, cacheErr := fromCache(); cacheErr == nil {
		return cached, nil
	}
	return nil, err
}

func listMerged[T any](s *Fallback, op string, key func(T) ids.ID, fromPrimary, fromCache func() ([]T, error)) ([]T, error) {
	cached, cacheErr := fromCache()
	if cacheErr != nil {
		s.cacheWrite(op, cacheErr)
		cached = nil
	}
	authoritative, err := fromPrimary()
	if err != nil {
		s.log.WithError(err).WithField("op", op).Warn("authoritative read failed, serving local cache")
		return cached, nil
	}
	return mergeByID(key, cached, authoritative), nil
}

// Children

func (s *Fallback) CreateChild(ctx context.Context, child *models.Child) error {
	ensureID(&child.ID)
	s.cacheWrite("create_child", s.cache.CreateChild(ctx, child))
	return s.writeThrough("create_child", s.primary.CreateChild(ctx, child))
}

func (s *Fallback) GetChild(ctx context.Context, id ids.ID) (*models.Child, error) {
	return getMerged(s, "get_child",
		func() (*models.Child, error) { return s.primary.GetChild(ctx, id) },
		func() (*models.Child, error) { return s.cache.GetChild(ctx, id) })
}

func (s *Fallback) ListChildren(ctx context.Context, parentID ids.ID) ([]models.Child, error) {
	return listMerged(s, "list_children",
		func(c models.Child) ids.ID { return c.ID },
		func() ([]models.Child, error) { return s.primary.ListChildren(ctx, parentID) },
		func() ([]models.Child, error) { return s.cache.ListChildren(ctx, parentID) })
}

func (s *Fallback) UpdateChild(ctx context.Context, child *models.Child) error {
	s.cacheWrite("update_child", s.cache.UpdateChild(ctx, child))
	return s.writeThrough("update_child", s.primary.UpdateChild(ctx, child))
}

func (s *Fallback) DeleteChild(ctx context.Context, id ids.ID) error {
	s.cacheWrite("delete_child", s.cache.DeleteChild(ctx, id))
	return s.writeThrough("delete_child", s.primary.DeleteChild(ctx, id))
}

// Doctors

func (s *Fallback) GetDoctor(ctx context.Context, id ids.ID) (*models.Doctor, error) {
	return getMerged(s, "get_doctor",
		func() (*models.Doctor, error) { return s.primary.GetDoctor(ctx, id) },
		func() (*models.Doctor, error) { return s.cache.GetDoctor(ctx, id) })
}

func (s *Fallback) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	return listMerged(s, "list_doctors",
		func(d models.Doctor) ids.ID { return d.ID },
		func() ([]models.Doctor, error) { return s.primary.ListDoctors(ctx) },
		func() ([]models.Doctor, error) { return s.cache.ListDoctors(ctx) })
}

// Vaccines

func (s *Fallback) CreateVaccine(ctx context.Context, vaccine *models.Vaccine) error {
	ensureID(&vaccine.ID)
	s.cacheWrite("create_vaccine", s.cache.CreateVaccine(ctx, vaccine))
	return s.writeThrough("create_vaccine", s.primary.CreateVaccine(ctx, vaccine))
}

func (s *Fallback) GetVaccine(ctx context.Context, id ids.ID) (*models.Vaccine, error) {
	return getMerged(s, "get_vaccine",
		func() (*models.Vaccine, error) { return s.primary.GetVaccine(ctx, id) },
		func() (*models.Vaccine, error) { return s.cache.GetVaccine(ctx, id) })
}

func (s *Fallback) GetVaccineByName(ctx context.Context, name string) (*models.Vaccine, error) {
	return getMerged(s, "get_vaccine_by_name",
		func() (*models.Vaccine, error) { return s.primary.GetVaccineByName(ctx, name) },
		func() (*models.Vaccine, error) { return s.cache.GetVaccineByName(ctx, name) })
}

func (s *Fallback) ListVaccines(ctx context.Context) ([]models.Vaccine, error) {
	return listMerged(s, "list_vaccines",
		func(v models.Vaccine) ids.ID { return v.ID },
		func() ([]models.Vaccine, error) { return s.primary.ListVaccines(ctx) },
		func() ([]models.Vaccine, error) { return s.cache.ListVaccines(ctx) })
}

func (s *Fallback) UpdateVaccine(ctx context.Context, vaccine *models.Vaccine) error {
	s.cacheWrite("update_vaccine", s.cache.UpdateVaccine(ctx, vaccine))
	return s.writeThrough("update_vaccine", s.primary.UpdateVaccine(ctx, vaccine))
}

func (s *Fallback) DeleteVaccine(ctx context.Context, id ids.ID) error {
	s.cacheWrite("delete_vaccine", s.cache.DeleteVaccine(ctx, id))
	return s.writeThrough("delete_vaccine", s.primary.DeleteVaccine(ctx, id))
}

// Appointments

func (s *Fallback) CreateAppointment(ctx context.Context, apt *models.Appointment) error {
	ensureID(&apt.ID)
	s.cacheWrite("create_appointment", s.cache.CreateAppointment(ctx, apt))
	return s.writeThrough("create_appointment", s.primary.CreateAppointment(ctx, apt))
}

func (s *Fallback) GetAppointment(ctx context.Context, id ids.ID) (*models.Appointment, error) {
	return getMerged(s, "get_appointment",
		func() (*models.Appointment, error) { return s.primary.GetAppointment(ctx, id) },
		func() (*models.Appointment, error) { return s.cache.GetAppointment(ctx, id) })
}

func (s *Fallback) ListAppointments(ctx context.Context, filter AppointmentFilter) ([]models.AppointmentView, error) {
	return listMerged(s, "list_appointments",
		func(v models.AppointmentView) ids.ID { return v.ID },
		func() ([]models.AppointmentView, error) { return s.primary.ListAppointments(ctx, filter) },
		func() ([]models.AppointmentView, error) { return s.cache.ListAppointments(ctx, filter) })
}

func (s *Fallback) UpdateAppointmentFrom(ctx context.Context, apt *models.Appointment, from ...models.AppointmentStatus) error {
	s.cacheWrite("update_appointment", s.cache.UpdateAppointmentFrom(ctx, apt, from...))
	return s.writeThrough("update_appointment", s.primary.UpdateAppointmentFrom(ctx, apt, from...))
}

// Vaccination schedules

func (s *Fallback) CreateSchedule(ctx context.Context, entry *models.VaccinationSchedule) error {
	ensureID(&entry.ID)
	s.cacheWrite("create_schedule", s.cache.CreateSchedule(ctx, entry))
	return s.writeThrough("create_schedule", s.primary.CreateSchedule(ctx, entry))
}

func (s *Fallback) GetSchedule(ctx context.Context, id ids.ID) (*models.VaccinationSchedule, error) {
	return getMerged(s, "get_schedule",
		func() (*models.VaccinationSchedule, error) { return s.primary.GetSchedule(ctx, id) },
		func() (*models.VaccinationSchedule, error) { return s.cache.GetSchedule(ctx, id) })
}

func (s *Fallback) ListSchedules(ctx context.Context, childID ids.ID) ([]models.ScheduleView, error) {
	return listMerged(s, "list_schedules",
		func(v models.ScheduleView) ids.ID { return v.ID },
		func() ([]models.ScheduleView, error) { return s.primary.ListSchedules(ctx, childID) },
		func() ([]models.ScheduleView, error) { return s.cache.ListSchedules(ctx, childID) })
}

func (s *Fallback) UpdateSchedule(ctx context.Context, entry *models.VaccinationSchedule) error {
	s.cacheWrite("update_schedule", s.cache.UpdateSchedule(ctx, entry))
	return s.writeThrough("update_schedule", s.primary.UpdateSchedule(ctx, entry))
}

// Vaccination records

func (s *Fallback) CreateRecord(ctx context.Context, rec *models.VaccinationRecord) error {
	ensureID(&rec.ID)
	s.cacheWrite("create_record", s.cache.CreateRecord(ctx, rec))
	return s.writeThrough("create_record", s.primary.CreateRecord(ctx, rec))
}

func (s *Fallback) GetRecord(ctx context.Context, id ids.ID) (*models.VaccinationRecord, error) {
	return getMerged(s, "get_record",
		func() (*models.VaccinationRecord, error) { return s.primary.GetRecord(ctx, id) },
		func() (*models.VaccinationRecord, error) { return s.cache.GetRecord(ctx, id) })
}

func (s *Fallback) GetRecordByAppointment(ctx context.Context, appointmentID ids.ID) (*models.VaccinationRecord, error) {
	return getMerged(s, "get_record_by_appointment",
		func() (*models.VaccinationRecord, error) { return s.primary.GetRecordByAppointment(ctx, appointmentID) },
		func() (*models.VaccinationRecord, error) { return s.cache.GetRecordByAppointment(ctx, appointmentID) })
}

func (s *Fallback) ListRecords(ctx context.Context, childID ids.ID) ([]models.RecordView, error) {
	return listMerged(s, "list_records",
		func(v models.RecordView) ids.ID { return v.ID },
		func() ([]models.RecordView, error) { return s.primary.ListRecords(ctx, childID) },
		func() ([]models.RecordView, error) { return s.cache.ListRecords(ctx, childID) })
}

func (s *Fallback) UpdateRecord(ctx context.Context, rec *models.VaccinationRecord) error {
	s.cacheWrite("update_record", s.cache.UpdateRecord(ctx, rec))
	return s.writeThrough("update_record", s.primary.UpdateRecord(ctx, rec))
}

func (s *Fallback) HighestDose(ctx context.Context, childID, vaccineID ids.ID) (int, error) {
	highest, err := s.primary.HighestDose(ctx, childID, vaccineID)
	if err == nil {
		return highest, nil
	}
	s.log.WithError(err).Warn("authoritative dose lookup failed, serving local cache")
	return s.cache.HighestDose(ctx, childID, vaccineID)
}

// Transact delegates to the authoritative store: the completion sequence must
// be atomic there, and the cache reconverges through merged reads.
func (s *Fallback) Transact(ctx context.Context, fn func(Store) error) error {
	return s.primary.Transact(ctx, fn)
}
