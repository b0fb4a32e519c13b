package entity

import "time"

const (
	GatewayCallbackProcessed int32 = 10
	GatewayCallbackRejected  int32 = 20
)

type GatewayCallback struct {
	ID uint64

	TransactionID *uint64

	Provider    string
	Signature   string
	PayloadJSON string
	Status      int32
	Error       *string

	CreatedAt time.Time
}
