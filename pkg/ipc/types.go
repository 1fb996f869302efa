package ipc

import "time"

// LockInfo is the ServerLockInfo record from spec.md §4.B: at most one
// active record exists in the lock server at any instant.
type LockInfo struct {
	InstanceID    string    `json:"instanceId"`
	PID           int       `json:"pid"`
	Port          int       `json:"port"`
	Host          string    `json:"host"`
	StartTime     time.Time `json:"startTime"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
}

// MessageType enumerates the line-delimited JSON protocol's message kinds.
type MessageType string

const (
	MsgQuery     MessageType = "query"
	MsgAcquire   MessageType = "acquire"
	MsgHeartbeat MessageType = "heartbeat"
	MsgRelease   MessageType = "release"
	MsgResponse  MessageType = "response"
	MsgError     MessageType = "error"
)

// Message is the single envelope shape exchanged over the lock socket.
// Only the fields relevant to Type are populated by the sender.
type Message struct {
	Type          MessageType `json:"type"`
	Lock          *LockInfo   `json:"lock,omitempty"`
	InstanceID    string      `json:"instanceId,omitempty"`
	LastHeartbeat time.Time   `json:"lastHeartbeat,omitempty"`
	Error         string      `json:"error,omitempty"`
}
