package archive

import (
	"context"
)

// Archiver stores raw verified webhook payloads as an audit trail. Archival
// is best-effort: a failure is logged and never blocks event processing.
type Archiver interface {
	// Archive stores one verified webhook payload.
	Archive(ctx context.Context, eventID, eventType string, body []byte) error
}

// nopArchiver discards payloads. Used when archival is disabled.
type nopArchiver struct{}

// NewNopArchiver returns an archiver that discards everything.
func NewNopArchiver() Archiver {
	return nopArchiver{}
}

func (nopArchiver) Archive(ctx context.Context, eventID, eventType string, body []byte) error {
	return nil
}
