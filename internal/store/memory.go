package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"vaccine-tracker-server/internal/ids"
	"vaccine-tracker-server/internal/models"
)

// Memory is the key-indexed local store: the in-process equivalent of the
// client's fallback cache. It backs demo mode and the test suite. All reads
// return copies and all identifier comparisons are normalized.
type Memory struct {
	mu          sync.RWMutex
	children    map[ids.ID]models.Child
	doctors     map[ids.ID]models.Doctor
	vaccines    map[ids.ID]models.Vaccine
	appointment map[ids.ID]models.Appointment
	schedules   map[ids.ID]models.VaccinationSchedule
	records     map[ids.ID]models.VaccinationRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		children:    make(map[ids.ID]models.Child),
		doctors:     make(map[ids.ID]models.Doctor),
		vaccines:    make(map[ids.ID]models.Vaccine),
		appointment: make(map[ids.ID]models.Appointment),
		schedules:   make(map[ids.ID]models.VaccinationSchedule),
		records:     make(map[ids.ID]models.VaccinationRecord),
	}
}

func ensureID(id *ids.ID) {
	if id.IsZero() {
		*id = ids.New()
	}
}

// PutDoctor seeds a roster entry. Doctors are reference data with no create
// operation on the Store interface.
func (s *Memory) PutDoctor(doctor models.Doctor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&doctor.ID)
	s.doctors[ids.Norm(doctor.ID)] = doctor
}

// Children

func (s *Memory) CreateChild(ctx context.Context, child *models.Child) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&child.ID)
	child.CreatedAt = time.Now()
	child.UpdatedAt = child.CreatedAt
	s.children[ids.Norm(child.ID)] = *child
	return nil
}

func (s *Memory) GetChild(ctx context.Context, id ids.ID) (*models.Child, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	child, ok := s.children[ids.Norm(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return &child, nil
}

func (s *Memory) ListChildren(ctx context.Context, parentID ids.ID) ([]models.Child, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Child
	for _, child := range s.children {
		if ids.Equal(child.ParentID, parentID) {
			out = append(out, child)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Memory) UpdateChild(ctx context.Context, child *models.Child) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ids.Norm(child.ID)
	existing, ok := s.children[key]
	if !ok {
		return ErrNotFound
	}
	existing.FirstName = child.FirstName
	existing.LastName = child.LastName
	existing.DateOfBirth = child.DateOfBirth
	existing.Gender = child.Gender
	existing.BloodGroup = child.BloodGroup
	existing.Allergies = child.Allergies
	existing.UpdatedAt = time.Now()
	s.children[key] = existing
	return nil
}

func (s *Memory) DeleteChild(ctx context.Context, id ids.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ids.Norm(id)
	if _, ok := s.children[key]; !ok {
		return ErrNotFound
	}
	delete(s.children, key)
	return nil
}

// Doctors

func (s *Memory) GetDoctor(ctx context.Context, id ids.ID) (*models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doctor, ok := s.doctors[ids.Norm(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return &doctor, nil
}

func (s *Memory) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Doctor, 0, len(s.doctors))
	for _, doctor := range s.doctors {
		out = append(out, doctor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastName < out[j].LastName })
	return out, nil
}

// Vaccines

func (s *Memory) CreateVaccine(ctx context.Context, vaccine *models.Vaccine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&vaccine.ID)
	vaccine.CreatedAt = time.Now()
	vaccine.UpdatedAt = vaccine.CreatedAt
	s.vaccines[ids.Norm(vaccine.ID)] = *vaccine
	return nil
}

func (s *Memory) GetVaccine(ctx context.Context, id ids.ID) (*models.Vaccine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vaccine, ok := s.vaccines[ids.Norm(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return &vaccine, nil
}

func (s *Memory) GetVaccineByName(ctx context.Context, name string) (*models.Vaccine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, vaccine := range s.vaccines {
		if strings.EqualFold(vaccine.Name, name) {
			v := vaccine
			return &v, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Memory) ListVaccines(ctx context.Context) ([]models.Vaccine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Vaccine, 0, len(s.vaccines))
	for _, vaccine := range s.vaccines {
		out = append(out, vaccine)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Memory) UpdateVaccine(ctx context.Context, vaccine *models.Vaccine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ids.Norm(vaccine.ID)
	if _, ok := s.vaccines[key]; !ok {
		return ErrNotFound
	}
	vaccine.UpdatedAt = time.Now()
	s.vaccines[key] = *vaccine
	return nil
}

func (s *Memory) DeleteVaccine(ctx context.Context, id ids.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ids.Norm(id)
	if _, ok := s.vaccines[key]; !ok {
		return ErrNotFound
	}
	delete(s.vaccines, key)
	return nil
}

// Appointments

func (s *Memory) CreateAppointment(ctx context.Context, apt *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&apt.ID)
	apt.CreatedAt = time.Now()
	apt.UpdatedAt = apt.CreatedAt
	s.appointment[ids.Norm(apt.ID)] = *apt
	return nil
}

func (s *Memory) GetAppointment(ctx context.Context, id ids.ID) (*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	apt, ok := s.appointment[ids.Norm(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return &apt, nil
}

func (s *Memory) ListAppointments(ctx context.Context, filter AppointmentFilter) ([]models.AppointmentView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.AppointmentView
	for _, apt := range s.appointment {
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
		if child, ok := s.children[ids.Norm(apt.ChildID)]; ok {
			view.ChildName = child.FullName()
		}
		if doctor, ok := s.doctors[ids.Norm(apt.DoctorID)]; ok {
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

func (s *Memory) UpdateAppointmentFrom(ctx context.Context, apt *models.Appointment, from ...models.AppointmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ids.Norm(apt.ID)
	existing, ok := s.appointment[key]
	if !ok {
		return ErrNotFound
	}
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
	existing.Status = apt.Status
	existing.Date = apt.Date
	existing.Time = apt.Time
	existing.Notes = apt.Notes
	existing.RejectionReason = apt.RejectionReason
	existing.UpdatedAt = time.Now()
	s.appointment[key] = existing
	return nil
}

// Vaccination schedules

func (s *Memory) CreateSchedule(ctx context.Context, entry *models.VaccinationSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&entry.ID)
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	s.schedules[ids.Norm(entry.ID)] = *entry
	return nil
}

func (s *Memory) GetSchedule(ctx context.Context, id ids.ID) (*models.VaccinationSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.schedules[ids.Norm(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return &entry, nil
}

func (s *Memory) ListSchedules(ctx context.Context, childID ids.ID) ([]models.ScheduleView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ScheduleView
	for _, entry := range s.schedules {
		if !ids.Equal(entry.ChildID, childID) {
			continue
		}
		view := models.ScheduleView{VaccinationSchedule: entry}
		if child, ok := s.children[ids.Norm(entry.ChildID)]; ok {
			view.ChildName = child.FullName()
		}
		if vaccine, ok := s.vaccines[ids.Norm(entry.VaccineID)]; ok {
			view.VaccineName = vaccine.Name
		}
		out = append(out, view)
	}
	sort.Slice(out, func(i, j int) bool {
		return time.Time(out[i].ScheduledDate).Before(time.Time(out[j].ScheduledDate))
	})
	return out, nil
}

func (s *Memory) UpdateSchedule(ctx context.Context, entry *models.VaccinationSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ids.Norm(entry.ID)
	existing, ok := s.schedules[key]
	if !ok {
		return ErrNotFound
	}
	existing.ScheduledDate = entry.ScheduledDate
	existing.Status = entry.Status
	existing.CompletedDate = entry.CompletedDate
	existing.Notes = entry.Notes
	existing.UpdatedAt = time.Now()
	s.schedules[key] = existing
	return nil
}

// Vaccination records

func (s *Memory) CreateRecord(ctx context.Context, rec *models.VaccinationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&rec.ID)
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	s.records[ids.Norm(rec.ID)] = *rec
	return nil
}

func (s *Memory) GetRecord(ctx context.Context, id ids.ID) (*models.VaccinationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[ids.Norm(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *Memory) GetRecordByAppointment(ctx context.Context, appointmentID ids.ID) (*models.VaccinationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.AppointmentID != nil && ids.Equal(*rec.AppointmentID, appointmentID) {
			r := rec
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Memory) ListRecords(ctx context.Context, childID ids.ID) ([]models.RecordView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.RecordView
	for _, rec := range s.records {
		if !ids.Equal(rec.ChildID, childID) {
			continue
		}
		view := models.RecordView{VaccinationRecord: rec}
		if child, ok := s.children[ids.Norm(rec.ChildID)]; ok {
			view.ChildName = child.FullName()
		}
		if vaccine, ok := s.vaccines[ids.Norm(rec.VaccineID)]; ok {
			view.VaccineName = vaccine.Name
		}
		if doctor, ok := s.doctors[ids.Norm(rec.DoctorID)]; ok {
			view.DoctorName = doctor.FullName()
		}
		out = append(out, view)
	}
	sort.Slice(out, func(i, j int) bool {
		return time.Time(out[i].VaccinationDate).Before(time.Time(out[j].VaccinationDate))
	})
	return out, nil
}

func (s *Memory) UpdateRecord(ctx context.Context, rec *models.VaccinationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ids.Norm(rec.ID)
	existing, ok := s.records[key]
	if !ok {
		return ErrNotFound
	}
	existing.BatchNumber = rec.BatchNumber
	existing.Notes = rec.Notes
	existing.UpdatedAt = time.Now()
	s.records[key] = existing
	return nil
}

func (s *Memory) HighestDose(ctx context.Context, childID, vaccineID ids.ID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	highest := 0
	for _, rec := range s.records {
		if ids.Equal(rec.ChildID, childID) && ids.Equal(rec.VaccineID, vaccineID) && rec.DoseNumber > highest {
			highest = rec.DoseNumber
		}
	}
	return highest, nil
}

// Transact snapshots the maps and restores them when fn fails, giving the
// same all-or-nothing contract as the relational store.
func (s *Memory) Transact(ctx context.Context, fn func(Store) error) error {
	s.mu.Lock()
	snapshot := struct {
		children    map[ids.ID]models.Child
		doctors     map[ids.ID]models.Doctor
		vaccines    map[ids.ID]models.Vaccine
		appointment map[ids.ID]models.Appointment
		schedules   map[ids.ID]models.VaccinationSchedule
		records     map[ids.ID]models.VaccinationRecord
	}{
		children:    cloneMap(s.children),
		doctors:     cloneMap(s.doctors),
		vaccines:    cloneMap(s.vaccines),
		appointment: cloneMap(s.appointment),
		schedules:   cloneMap(s.schedules),
		records:     cloneMap(s.records),
	}
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.children = snapshot.children
		s.doctors = snapshot.doctors
		s.vaccines = snapshot.vaccines
		s.appointment = snapshot.appointment
		s.schedules = snapshot.schedules
		s.records = snapshot.records
		s.mu.Unlock()
		return err
	}
	return nil
}

func cloneMap[T any](src map[ids.ID]T) map[ids.ID]T {
	dst := make(map[ids.ID]T, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
