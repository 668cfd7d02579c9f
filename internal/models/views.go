package models

// Read-side projections: entities joined with the denormalized child and
// doctor names the dashboards display.

// AppointmentView is an appointment together with display names.
type AppointmentView struct {
	Appointment
	ChildName  string `json:"childName,omitempty"`
	DoctorName string `json:"doctorName,omitempty"`
}

// ScheduleView is a planned dose together with display names.
type ScheduleView struct {
	VaccinationSchedule
	ChildName   string `json:"childName,omitempty"`
	VaccineName string `json:"vaccineName,omitempty"`
}

// RecordView is a vaccination record together with display names.
type RecordView struct {
	VaccinationRecord
	ChildName   string `json:"childName,omitempty"`
	VaccineName string `json:"vaccineName,omitempty"`
	DoctorName  string `json:"doctorName,omitempty"`
}
