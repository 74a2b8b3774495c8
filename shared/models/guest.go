package models

import (
	"strconv"
	"time"
)

// Attendance is a guest's answer to the invitation
type Attendance string

const (
	AttendanceYes   Attendance = "yes"
	AttendanceNo    Attendance = "no"
	AttendanceMaybe Attendance = "maybe"
)

// IsValid reports whether a is one of yes, no or maybe
func (a Attendance) IsValid() bool {
	switch a {
	case AttendanceYes, AttendanceNo, AttendanceMaybe:
		return true
	}
	return false
}

// GuestRecord is a single RSVP. IDs are unique within one tenant only.
type GuestRecord struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Relationship string     `json:"relationship"`
	Attendance   Attendance `json:"attendance"`
	Message      string     `json:"message"`
	SubmittedAt  time.Time  `json:"submittedAt"`
}

// MissingFields returns the json names of required fields that are empty.
// The id is skipped when requireID is false.
func (r *GuestRecord) MissingFields(requireID bool) []string {
	var missing []string
	if requireID && r.ID == "" {
		missing = append(missing, "id")
	}
	if r.Name == "" {
		missing = append(missing, "name")
	}
	if r.Relationship == "" {
		missing = append(missing, "relationship")
	}
	if r.Attendance == "" {
		missing = append(missing, "attendance")
	}
	if r.SubmittedAt.IsZero() {
		missing = append(missing, "submittedAt")
	}
	return missing
}

// Guest is the relational row for a GuestRecord
type Guest struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	TenantID     uint      `json:"tenant_id" gorm:"not null;index"`
	Name         string    `json:"name" gorm:"type:varchar(255);not null"`
	Relationship string    `json:"relationship" gorm:"type:varchar(255);not null"`
	Attendance   string    `json:"attendance" gorm:"type:varchar(5);not null;check:chk_guests_attendance,attendance IN ('yes','no','maybe')"`
	Message      string    `json:"message" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relationships
	Tenant *Tenant `json:"-" gorm:"foreignKey:TenantID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the table name for the Guest model
func (Guest) TableName() string {
	return "guests"
}

// ToRecord converts the row into a GuestRecord
func (g *Guest) ToRecord() GuestRecord {
	return GuestRecord{
		ID:           strconv.FormatUint(uint64(g.ID), 10),
		Name:         g.Name,
		Relationship: g.Relationship,
		Attendance:   Attendance(g.Attendance),
		Message:      g.Message,
		SubmittedAt:  g.CreatedAt.UTC(),
	}
}

// Summary counts records per attendance state
type Summary struct {
	Total int `json:"total"`
	Yes   int `json:"yes"`
	No    int `json:"no"`
	Maybe int `json:"maybe"`
}

// Summarize tallies records by attendance
func Summarize(records []GuestRecord) Summary {
	s := Summary{Total: len(records)}
	for _, r := range records {
		switch r.Attendance {
		case AttendanceYes:
			s.Yes++
		case AttendanceNo:
			s.No++
		case AttendanceMaybe:
			s.Maybe++
		}
	}
	return s
}
