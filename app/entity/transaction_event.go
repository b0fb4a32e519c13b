package entity

import "time"

type TransactionEvent struct {
	ID uint64

	TransactionID uint64

	EventType string

	OldState *string
	NewState string

	ProviderEventID *string
	PayloadJSON     *string

	CreatedAt time.Time
}
