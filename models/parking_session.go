package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultHourlyRate is the tariff charged per started hour
const DefaultHourlyRate = 2.0

// ParkingSession represents one stay of a vehicle in the car park.
// A session is open until ExitTime is set.
type ParkingSession struct {
	ID            uuid.UUID  `json:"sessionId" db:"id"`
	RegPlate      string     `json:"regPlate" db:"reg_plate"`
	EntryTime     time.Time  `json:"entryTime" db:"entry_time"`
	EntryPhoto    string     `json:"entryPhoto,omitempty" db:"entry_photo"`
	ExitTime      *time.Time `json:"exitTime,omitempty" db:"exit_time"`
	DurationHours *int       `json:"durationHours,omitempty" db:"duration_hours"`
	PaymentDue    *float64   `json:"paymentDue,omitempty" db:"payment_due"`
}

// TableName returns the table name for the ParkingSession model
func (ParkingSession) TableName() string {
	return "parking_sessions"
}

// NewParkingSession opens a session for a plate seen at the entry camera
func NewParkingSession(regPlate, photoKey string, entry time.Time) *ParkingSession {
	return &ParkingSession{
		ID:         uuid.New(),
		RegPlate:   regPlate,
		EntryTime:  entry.UTC(),
		EntryPhoto: photoKey,
	}
}

// IsOpen returns true if the vehicle has not left yet
func (s *ParkingSession) IsOpen() bool {
	return s.ExitTime == nil
}

// Close records the exit, the billed hours and the payment due
func (s *ParkingSession) Close(exit time.Time, hourlyRate float64) {
	hours := BillableHours(exit.Sub(s.EntryTime))
	payment := float64(hours) * hourlyRate
	exit = exit.UTC()

	s.ExitTime = &exit
	s.DurationHours = &hours
	s.PaymentDue = &payment
}

// BillableHours rounds a stay up to whole hours. Stays shorter than a
// second, including clock skew, bill nothing.
func BillableHours(d time.Duration) int {
	seconds := int64(d / time.Second)
	if seconds <= 0 {
		return 0
	}
	return int((seconds + 3599) / 3600)
}
