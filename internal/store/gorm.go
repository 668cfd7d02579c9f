package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"vaccine-tracker-server/internal/ids"
	"vaccine-tracker-server/internal/models"
)

// Gorm is the authoritative store backed by the relational database.
type Gorm struct {
	db *gorm.DB
}

// NewGorm creates the authoritative store around an open gorm connection.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Children

func (s *Gorm) CreateChild(ctx context.Context, child *models.Child) error {
	return s.db.WithContext(ctx).Create(child).Error
}

func (s *Gorm) GetChild(ctx context.Context, id ids.ID) (*models.Child, error) {
	var child models.Child
	if err := s.db.WithContext(ctx).First(&child, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &child, nil
}

func (s *Gorm) ListChildren(ctx context.Context, parentID ids.ID) ([]models.Child, error) {
	var children []models.Child
	err := s.db.WithContext(ctx).Where("parent_id = ?", parentID).Order("created_at asc").Find(&children).Error
	return children, err
}

func (s *Gorm) UpdateChild(ctx context.Context, child *models.Child) error {
	res := s.db.WithContext(ctx).Model(&models.Child{}).Where("id = ?", child.ID).Updates(map[string]interface{}{
		"first_name":    child.FirstName,
		"last_name":     child.LastName,
		"date_of_birth": child.DateOfBirth,
		"gender":        child.Gender,
		"blood_group":   child.BloodGroup,
		"allergies":     child.Allergies,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Gorm) DeleteChild(ctx context.Context, id ids.ID) error {
	res := s.db.WithContext(ctx).Delete(&models.Child{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Doctors

func (s *Gorm) GetDoctor(ctx context.Context, id ids.ID) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := s.db.WithContext(ctx).First(&doctor, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &doctor, nil
}

func (s *Gorm) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	var doctors []models.Doctor
	err := s.db.WithContext(ctx).Order("last_name asc").Find(&doctors).Error
	return doctors, err
}

// Vaccines

func (s *Gorm) CreateVaccine(ctx context.Context, vaccine *models.Vaccine) error {
	return s.db.WithContext(ctx).Create(vaccine).Error
}

func (s *Gorm) GetVaccine(ctx context.Context, id ids.ID) (*models.Vaccine, error) {
	var vaccine models.Vaccine
	if err := s.db.WithContext(ctx).First(&vaccine, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &vaccine, nil
}

func (s *Gorm) GetVaccineByName(ctx context.Context, name string) (*models.Vaccine, error) {
	var vaccine models.Vaccine
	if err := s.db.WithContext(ctx).First(&vaccine, "name = ?", name).Error; err != nil {
		return nil, translate(err)
	}
	return &vaccine, nil
}

func (s *Gorm) ListVaccines(ctx context.Context) ([]models.Vaccine, error) {
	var vaccines []models.Vaccine
	err := s.db.WithContext(ctx).Order("name asc").Find(&vaccines).Error
	return vaccines, err
}

func (s *Gorm) UpdateVaccine(ctx context.Context, vaccine *models.Vaccine) error {
	res := s.db.WithContext(ctx).Model(&models.Vaccine{}).Where("id = ?", vaccine.ID).Updates(map[string]interface{}{
		"name":              vaccine.Name,
		"description":       vaccine.Description,
		"recommended_age":   vaccine.RecommendedAge,
		"doses_required":    vaccine.DosesRequired,
		"disease_prevented": vaccine.DiseasePrevented,
		"manufacturer":      vaccine.Manufacturer,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Gorm) DeleteVaccine(ctx context.Context, id ids.ID) error {
	res := s.db.WithContext(ctx).Delete(&models.Vaccine{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Appointments

func (s *Gorm) CreateAppointment(ctx context.Context, apt *models.Appointment) error {
	return s.db.WithContext(ctx).Create(apt).Error
}

func (s *Gorm) GetAppointment(ctx context.Context, id ids.ID) (*models.Appointment, error) {
	var apt models.Appointment
	if err := s.db.WithContext(ctx).First(&apt, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &apt, nil
}

func (s *Gorm) ListAppointments(ctx context.Context, filter AppointmentFilter) ([]models.AppointmentView, error) {
	query := s.db.WithContext(ctx).Preload("Child").Preload("Doctor").Order("date asc, time asc")
	if !filter.ParentID.IsZero() {
		query = query.Where("parent_id = ?", filter.ParentID)
	}
	if !filter.DoctorID.IsZero() {
		query = query.Where("doctor_id = ?", filter.DoctorID)
	}
	if !filter.ChildID.IsZero() {
		query = query.Where("child_id = ?", filter.ChildID)
	}

	var appointments []models.Appointment
	if err := query.Find(&appointments).Error; err != nil {
		return nil, err
	}

	views := make([]models.AppointmentView, 0, len(appointments))
	for i := range appointments {
		views = append(views, models.AppointmentView{
			Appointment: appointments[i],
			ChildName:   appointments[i].Child.FullName(),
			DoctorName:  appointments[i].Doctor.FullName(),
		})
	}
	return views, nil
}

func (s *Gorm) UpdateAppointmentFrom(ctx context.Context, apt *models.Appointment, from ...models.AppointmentStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND status IN ?", apt.ID, from).
		Updates(map[string]interface{}{
			"status":           apt.Status,
			"date":             apt.Date,
			"time":             apt.Time,
			"notes":            apt.Notes,
			"rejection_reason": apt.RejectionReason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish a vanished row from a lost transition race.
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Appointment{}).Where("id = ?", apt.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrStale
	}
	return nil
}

// Vaccination schedules

func (s *Gorm) CreateSchedule(ctx context.Context, entry *models.VaccinationSchedule) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *Gorm) GetSchedule(ctx context.Context, id ids.ID) (*models.VaccinationSchedule, error) {
	var entry models.VaccinationSchedule
	if err := s.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

func (s *Gorm) ListSchedules(ctx context.Context, childID ids.ID) ([]models.ScheduleView, error) {
	var entries []models.VaccinationSchedule
	err := s.db.WithContext(ctx).Preload("Child").Preload("Vaccine").
		Where("child_id = ?", childID).Order("scheduled_date asc").Find(&entries).Error
	if err != nil {
		return nil, err
	}

	views := make([]models.ScheduleView, 0, len(entries))
	for i := range entries {
		views = append(views, models.ScheduleView{
			VaccinationSchedule: entries[i],
			ChildName:           entries[i].Child.FullName(),
			VaccineName:         entries[i].Vaccine.Name,
		})
	}
	return views, nil
}

func (s *Gorm) UpdateSchedule(ctx context.Context, entry *models.VaccinationSchedule) error {
	res := s.db.WithContext(ctx).Model(&models.VaccinationSchedule{}).Where("id = ?", entry.ID).Updates(map[string]interface{}{
		"scheduled_date": entry.ScheduledDate,
		"status":         entry.Status,
		"completed_date": entry.CompletedDate,
		"notes":          entry.Notes,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Vaccination records

func (s *Gorm) CreateRecord(ctx context.Context, rec *models.VaccinationRecord) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *Gorm) GetRecord(ctx context.Context, id ids.ID) (*models.VaccinationRecord, error) {
	var rec models.VaccinationRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

func (s *Gorm) GetRecordByAppointment(ctx context.Context, appointmentID ids.ID) (*models.VaccinationRecord, error) {
	var rec models.VaccinationRecord
	if err := s.db.WithContext(ctx).First(&rec, "appointment_id = ?", appointmentID).Error; err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

func (s *Gorm) ListRecords(ctx context.Context, childID ids.ID) ([]models.RecordView, error) {
	var records []models.VaccinationRecord
	err := s.db.WithContext(ctx).Preload("Child").Preload("Vaccine").Preload("Doctor").
		Where("child_id = ?", childID).Order("vaccination_date asc").Find(&records).Error
	if err != nil {
		return nil, err
	}

	views := make([]models.RecordView, 0, len(records))
	for i := range records {
		views = append(views, models.RecordView{
			VaccinationRecord: records[i],
			ChildName:         records[i].Child.FullName(),
			VaccineName:       records[i].Vaccine.Name,
			DoctorName:        records[i].Doctor.FullName(),
		})
	}
	return views, nil
}

func (s *Gorm) UpdateRecord(ctx context.Context, rec *models.VaccinationRecord) error {
	res := s.db.WithContext(ctx).Model(&models.VaccinationRecord{}).Where("id = ?", rec.ID).Updates(map[string]interface{}{
		"batch_number": rec.BatchNumber,
		"notes":        rec.Notes,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Gorm) HighestDose(ctx context.Context, childID, vaccineID ids.ID) (int, error) {
	var highest int
	err := s.db.WithContext(ctx).Model(&models.VaccinationRecord{}).
		Where("child_id = ? AND vaccine_id = ?", childID, vaccineID).
		Select("COALESCE(MAX(dose_number), 0)").Scan(&highest).Error
	return highest, err
}

// Transact wraps fn in a database transaction; any error rolls back every
// write fn performed.
func (s *Gorm) Transact(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Gorm{db: tx})
	})
}
