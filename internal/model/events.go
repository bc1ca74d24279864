package model

import "time"

// Event types published on the message broker
const (
	EventMedicineCreated = "medicine.created"
	EventUserRegistered  = "user.registered"
)

// Event is the envelope published for domain changes.
type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

// MedicineCreatedPayload describes a newly stored medicine record.
type MedicineCreatedPayload struct {
	ID             string `json:"id"`
	NormalizedName string `json:"normalizedName"`
	Source         string `json:"source"`
}

// UserRegisteredPayload describes a new account.
type UserRegisteredPayload struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
}
