package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Notification is the payment-due message sent when a session closes
type Notification struct {
	Recipient       string    `json:"recipient"`
	Subject         string    `json:"subject"`
	SessionID       uuid.UUID `json:"sessionId"`
	CarRegistration string    `json:"carRegistration"`
	EntryTime       int64     `json:"entryTime"`
	ExitTime        int64     `json:"exitTime"`
	PaymentDue      float64   `json:"paymentDue"`
	Message         string    `json:"message"`
	SentAt          time.Time `json:"sentAt"`
}

// NewPaymentDueNotification builds the notification for a closed session
func NewPaymentDueNotification(recipient string, s *ParkingSession) *Notification {
	n := &Notification{
		Recipient:       recipient,
		Subject:         fmt.Sprintf("Parking Payment Due for %s", s.RegPlate),
		SessionID:       s.ID,
		CarRegistration: s.RegPlate,
		EntryTime:       s.EntryTime.Unix(),
		SentAt:          time.Now().UTC(),
	}
	if s.ExitTime != nil {
		n.ExitTime = s.ExitTime.Unix()
	}
	if s.PaymentDue != nil {
		n.PaymentDue = *s.PaymentDue
	}
	n.Message = fmt.Sprintf("Your parking session for %s has ended. Payment due: $%.2f", s.RegPlate, n.PaymentDue)
	return n
}
