package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ActivationMessage struct {
	To             string `json:"to"`
	ActivationLink string `json:"activationLink"`
}

// PendingMail is an activation mail that could not be delivered on registration
// and waits in the outbox for another attempt.
type PendingMail struct {
	ID        uuid.UUID                             `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Message   datatypes.JSONType[ActivationMessage] `json:"message" gorm:"type:jsonb;not null"`
	Attempts  int                                   `json:"attempts" gorm:"not null;default:0"`
	LastError string                                `json:"lastError"`
	CreatedAt time.Time                             `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time                             `json:"updatedAt"`
}
