package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"vaccine-tracker-server/internal/ids"
	"vaccine-tracker-server/internal/models"
)

// Redis hash keys, one per entity set.
const (
	cacheKeyChildren     = "cache:children"
	cacheKeyDoctors      = "cache:doctors"
	cacheKeyVaccines     = "cache:vaccines"
	cacheKeyAppointments = "cache:appointments"
	cacheKeySchedules    = "cache:schedules"
	cacheKeyRecords      = "cache:records"
)

// Cache is the local fallback mirror backed by Redis: one hash per entity
// set, keyed by normalized id, JSON-encoded values. It is best-effort by
// design; Transact carries no rollback and writes are never conditional.
type Cache struct {
	client *redis.Client
}

// NewCache creates a Redis-backed cache store.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func cachePut[T any](ctx context.Context, c *redis.Client, key string, id ids.ID, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: marshal %s/%s: %w", key, id, err)
	}
	return c.HSet(ctx, key, ids.Norm(id).String(), data).Err()
}

func cacheGet[T any](ctx context.Context, c *redis.Client, key string, id ids.ID) (*T, error) {
	data, err := c.HGet(ctx, key, ids.Norm(id).String()).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("cache: unmarshal %s/%s: %w", key, id, err)
	}
	return &v, nil
}

func cacheAll[T any](ctx context.Context, c *redis.Client, key string) ([]T, error) {
	raw, err := c.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for field, data := range raw {
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("cache: unmarshal %s/%s: %w", key, field, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func cacheDelete(ctx context.Context, c *redis.Client, key string, id ids.ID) error {
	removed, err := c.HDel(ctx, key, ids.Norm(id).String()).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}

// Children

func (s *Cache) CreateChild(ctx context.Context, child *models.Child) error {
	ensureID(&child.ID)
	if child.CreatedAt.IsZero() {
		child.CreatedAt = time.Now()
		child.UpdatedAt = child.CreatedAt
	}
	return cachePut(ctx, s.client, cacheKeyChildren, child.ID, child)
}

func (s *Cache) GetChild(ctx context.Context, id ids.ID) (*models.Child, error) {
	return cacheGet[models.Child](ctx, s.client, cacheKeyChildren, id)
}

func (s *Cache) ListChildren(ctx context.Context, parentID ids.ID) ([]models.Child, error) {
	all, err := cacheAll[models.Child](ctx, s.client, cacheKeyChildren)
	if err != nil {
		return nil, err
	}
	var out []models.Child
	for _, child := range all {
		if ids.Equal(child.ParentID, parentID) {
			out = append(out, child)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Cache) UpdateChild(ctx context.Context, child *models.Child) error {
	child.UpdatedAt = time.Now()
	return cachePut(ctx, s.client, cacheKeyChildren, child.ID, child)
}

func (s *Cache) DeleteChild(ctx context.Context, id ids.ID) error {
	return cacheDelete(ctx, s.client, cacheKeyChildren, id)
}

// Doctors

// PutDoctor mirrors a roster entry into the cache.
func (s *Cache) PutDoctor(ctx context.Context, doctor models.Doctor) error {
	return cachePut(ctx, s.client, cacheKeyDoctors, doctor.ID, doctor)
}

func (s *Cache) GetDoctor(ctx context.Context, id ids.ID) (*models.Doctor, error) {
	return cacheGet[models.Doctor](ctx, s.client, cacheKeyDoctors, id)
}

func (s *Cache) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	out, err := cacheAll[models.Doctor](ctx, s.client, cacheKeyDoctors)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastName < out[j].LastName })
	return out, nil
}

// Vaccines

func (s *Cache) CreateVaccine(ctx context.Context, vaccine *models.Vaccine) error {
	ensureID(&vaccine.ID)
	return cachePut(ctx, s.client, cacheKeyVaccines, vaccine.ID, vaccine)
}

func (s *Cache) GetVaccine(ctx context.Context, id ids.ID) (*models.Vaccine, error) {
	return cacheGet[models.Vaccine](ctx, s.client, cacheKeyVaccines, id)
}

func (s *Cache) GetVaccineByName(ctx context.Context, name string) (*models.Vaccine, error) {
	all, err := cacheAll[models.Vaccine](ctx, s.client, cacheKeyVaccines)
	if err != nil {
		return nil, err
	}
	for _, vaccine := range all {
		if strings.EqualFold(vaccine.Name, name) {
			v := vaccine
			return &v, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Cache) ListVaccines(ctx context.Context) ([]models.Vaccine, error) {
	out, err := cacheAll[models.Vaccine](ctx, s.client, cacheKeyVaccines)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Cache) UpdateVaccine(ctx context.Context, vaccine *models.Vaccine) error {
	return cachePut(ctx, s.client, cacheKeyVaccines, vaccine.ID, vaccine)
}

func (s *Cache) DeleteVaccine(ctx context.Context, id ids.ID) error {
	return cacheDelete(ctx, s.client, cacheKeyVaccines, id)
}

// Appointments

func (s *Cache) CreateAppointment(ctx context.Context, apt *models.Appointment) error {
	ensureID(&apt.ID)
	if apt.CreatedAt.IsZero() {
		apt.CreatedAt = time.Now()
		apt.UpdatedAt = apt.CreatedAt
	}
	return cachePut(ctx, s.client, cacheKeyAppointments, apt.ID, apt)
}

func (s *Cache) GetAppointment(ctx context.Context, id ids.ID) (*models.Appointment, error) {
	return cacheGet[models.Appointment](ctx, s.client, cacheKeyAppointments, id)
}

func (s *Cache) ListAppointments(ctx context.Context, filter AppointmentFilter) ([]models.AppointmentView, error) {
	all, err := cacheAll[models.Appointment](ctx, s.client, cacheKeyAppointments)
	if err != nil {
		return nil, err
	}
	var out []models.AppointmentView
	for _, apt := range all {
		if !filter.ParentID.IsZero() && !ids.Equal(apt.ParentID, filter.ParentID) {
			continue
		}
		if !filter.DoctorID.IsZero() && !ids.Equal(apt.DoctorID, filter.DoctorID) {
			continue
		}
		if !filter.ChildID.IsZero() && !ids.Equal(apt.ChildID, filter.ChildID) {
			continue
		}
		view := models.AppointmentView{Appointment: apt}
		if child, err := s.GetChild(ctx, apt.ChildID); err == nil {
			view.ChildName = child.FullName()
		}
		if doctor, err := s.GetDoctor(ctx, apt.DoctorID); err == nil {
			view.DoctorName = doctor.FullName()
		}
		out = append(out, view)
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := time.Time(out[i].Date), time.Time(out[j].Date)
		if di.Equal(dj) {
			return out[i].Time < out[j].Time
		}
		return di.Before(dj)
	})
	return out, nil
}

func (s *Cache) UpdateAppointmentFrom(ctx context.Context, apt *models.Appointment, from ...models.AppointmentStatus) error {
	// The cache mirrors intent; the authoritative store arbitrates races.
	// The source-state check still applies so a stale cached row cannot be
	// resurrected past a terminal status.
	existing, err := s.GetAppointment(ctx, apt.ID)
	if err == nil {
		allowed := false
		for _, status := range from {
			if existing.Status == status {
				allowed = true
				break
			}
		}
		if !allowed {
			return ErrStale
		}
	}
	apt.UpdatedAt = time.Now()
	return cachePut(ctx, s.client, cacheKeyAppointments, apt.ID, apt)
}

// Vaccination schedules

func (s *Cache) CreateSchedule(ctx context.Context, entry *models.VaccinationSchedule) error {
	ensureID(&entry.ID)
	return cachePut(ctx, s.client, cacheKeySchedules, entry.ID, entry)
}

func (s *Cache) GetSchedule(ctx context.Context, id ids.ID) (*models.VaccinationSchedule, error) {
	return cacheGet[models.VaccinationSchedule](ctx, s.client, cacheKeySchedules, id)
}

func (s *Cache) ListSchedules(ctx context.Context, childID ids.ID) ([]models.ScheduleView, error) {
	all, err := cacheAll[models.VaccinationSchedule](ctx, s.client, cacheKeySchedules)
	if err != nil {
		return nil, err
	}
	var out []models.ScheduleView
	for _, entry := range all {
		if !ids.Equal(entry.ChildID, childID) {
			continue
		}
		view := models.ScheduleView{VaccinationSchedule: entry}
		if child, err := s.GetChild(ctx, entry.ChildID); err == nil {
			view.ChildName = child.FullName()
		}
		if vaccine, err := s.GetVaccine(ctx, entry.VaccineID); err == nil {
			view.VaccineName = vaccine.Name
		}
		out = append(out, view)
	}
	sort.Slice(out, func(i, j int) bool {
		return time.Time(out[i].ScheduledDate).Before(time.Time(out[j].ScheduledDate))
	})
	return out, nil
}

func (s *Cache) UpdateSchedule(ctx context.Context, entry *models.VaccinationSchedule) error {
	return cachePut(ctx, s.client, cacheKeySchedules, entry.ID, entry)
}

// Vaccination records

func (s *Cache) CreateRecord(ctx context.Context, rec *models.VaccinationRecord) error {
	ensureID(&rec.ID)
	return cachePut(ctx, s.client, cacheKeyRecords, rec.ID, rec)
}

func (s *Cache) GetRecord(ctx context.Context, id ids.ID) (*models.VaccinationRecord, error) {
	return cacheGet[models.VaccinationRecord](ctx, s.client, cacheKeyRecords, id)
}

func (s *Cache) GetRecordByAppointment(ctx context.Context, appointmentID ids.ID) (*models.VaccinationRecord, error) {
	all, err := cacheAll[models.VaccinationRecord](ctx, s.client, cacheKeyRecords)
	if err != nil {
		return nil, err
	}
	for _, rec := range all {
		if rec.AppointmentID != nil && ids.Equal(*rec.AppointmentID, appointmentID) {
			r := rec
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Cache) ListRecords(ctx context.Context, childID ids.ID) ([]models.RecordView, error) {
	all, err := cacheAll[models.VaccinationRecord](ctx, s.client, cacheKeyRecords)
	if err != nil {
		return nil, err
	}
	var out []models.RecordView
	for _, rec := range all {
		if !ids.Equal(rec.ChildID, childID) {
			continue
		}
		view := models.RecordView{VaccinationRecord: rec}
		if child, err := s.GetChild(ctx, rec.ChildID); err == nil {
			view.ChildName = child.FullName()
		}
		if vaccine, err := s.GetVaccine(ctx, rec.VaccineID); err == nil {
			view.VaccineName = vaccine.Name
		}
		if doctor, err := s.GetDoctor(ctx, rec.DoctorID); err == nil {
			view.DoctorName = doctor.FullName()
		}
		out = append(out, view)
	}
	sort.Slice(out, func(i, j int) bool {
		return time.Time(out[i].VaccinationDate).Before(time.Time(out[j].VaccinationDate))
	})
	return out, nil
}

func (s *Cache) UpdateRecord(ctx context.Context, rec *models.VaccinationRecord) error {
	return cachePut(ctx, s.client, cacheKeyRecords, rec.ID, rec)
}

func (s *Cache) HighestDose(ctx context.Context, childID, vaccineID ids.ID) (int, error) {
	all, err := cacheAll[models.VaccinationRecord](ctx, s.client, cacheKeyRecords)
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, rec := range all {
		if ids.Equal(rec.ChildID, childID) && ids.Equal(rec.VaccineID, vaccineID) && rec.DoseNumber > highest {
			highest = rec.DoseNumber
		}
	}
	return highest, nil
}

// Transact runs fn directly. The cache offers no rollback; atomicity is the
// authoritative store's contract.
func (s *Cache) Transact(ctx context.Context, fn func(Store) error) error {
	return fn(s)
}
