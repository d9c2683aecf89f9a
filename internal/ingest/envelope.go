package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/ahwatch/auction-data/internal/notify"
)

// Message types carried in the envelope.
const (
	TypeSweep   = "sweep"
	TypeProcess = "process"
	TypeNotify  = "notify"
)

// Envelope is the JSON frame every queue message carries.
type Envelope struct {
	Type   string `json:"type"`
	Region string `json:"region,omitempty"`
	Realm  string `json:"realm,omitempty"`

	// Events is set for TypeNotify.
	Events []notify.Event `json:"events,omitempty"`
}

// encodeEnvelope marshals an envelope for enqueueing.
func encodeEnvelope(env Envelope) ([]byte, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", env.Type, err)
	}
	return body, nil
}
