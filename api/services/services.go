package services

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
)

// Publisher delivers serialized events. The embedded NATS server
// implements it; a nil Publisher disables publishing.
type Publisher interface {
	PublishWithDedup(subject string, data []byte, msgID string) error
}

// timestampLayout is fixed width so stored timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
