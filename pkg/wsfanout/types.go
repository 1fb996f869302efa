package wsfanout

import "encoding/json"

// MessageType enumerates the fan-out wire schema from spec.md §4.J.
type MessageType string

const (
	MsgProviderChanged   MessageType = "provider_changed"
	MsgSwitchProvider    MessageType = "switch_provider"
	MsgSwitchProviderAck MessageType = "switch_provider_ack"
	MsgServerStopping    MessageType = "server_stopping"
)

// Envelope is the single message shape exchanged over the fan-out socket.
type Envelope struct {
	Type MessageType `json:"type"`

	// ProviderChanged fields.
	ProviderID   string `json:"providerId,omitempty"`
	ProviderName string `json:"providerName,omitempty"`

	// SwitchProvider / SwitchProviderAck correlation.
	RequestID string `json:"requestId,omitempty"`
	Success   bool   `json:"success,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (e Envelope) encode() ([]byte, error) {
	return json.Marshal(e)
}
