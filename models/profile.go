package models

import (
	"strings"
	"time"
)

// Profile represents a driver's profile keyed by their Cognito subject
type Profile struct {
	UserID    string    `json:"userId" db:"user_id"` // Cognito sub
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	RegPlates []string  `json:"regPlates" db:"reg_plates"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// TableName returns the table name for the Profile model
func (Profile) TableName() string {
	return "profiles"
}

// NewProfile creates an empty profile for a freshly confirmed user
func NewProfile(userID, email string) *Profile {
	now := time.Now().UTC()
	return &Profile{
		UserID:    userID,
		Email:     email,
		RegPlates: []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// OwnsPlate reports whether the plate is registered on the profile
func (p *Profile) OwnsPlate(plate string) bool {
	plate = NormalizePlate(plate)
	for _, rp := range p.RegPlates {
		if rp == plate {
			return true
		}
	}
	return false
}

// NormalizePlate trims and upper-cases a registration plate
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// NormalizePlates normalizes every plate, dropping blanks and duplicates
func NormalizePlates(plates []string) []string {
	out := make([]string, 0, len(plates))
	seen := make(map[string]struct{}, len(plates))
	for _, p := range plates {
		p = NormalizePlate(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// ProfileUpdate carries the optional fields of a partial profile update.
// A nil field is left unchanged; a non-nil empty plate list clears the plates.
type ProfileUpdate struct {
	Name      *string
	RegPlates *[]string
}

// IsEmpty reports whether the update has no fields
func (u ProfileUpdate) IsEmpty() bool {
	return u.Name == nil && u.RegPlates == nil
}
