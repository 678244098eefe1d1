// Package subject holds the people a booking can be made for: patients,
// their family members, and medical representatives.
package subject

import (
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes how a subject relates to the account that books for it.
type Kind string

const (
	KindPatient        Kind = "patient"
	KindFamily         Kind = "family"
	KindRepresentative Kind = "representative"
)

var validKinds = map[Kind]bool{
	KindPatient: true, KindFamily: true, KindRepresentative: true,
}

// Subject maps to the subject table. Family members carry the owning
// patient's ID; patients and representatives stand alone.
type Subject struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Kind      Kind       `db:"kind" json:"kind"`
	Name      string     `db:"name" json:"name"`
	Phone     string     `db:"phone" json:"phone"`
	OwnerID   *uuid.UUID `db:"owner_id" json:"owner_id,omitempty"`
	Company   *string    `db:"company" json:"company,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}
