package audit

import "time"

// Action names the auth events this subsystem emits.
type Action string

const (
	ActionAuthenticated   Action = "authenticated"
	ActionAuthFailed      Action = "auth_failed"
	ActionTokenRefreshed  Action = "token_refreshed"
	ActionAccountResolved Action = "account_resolved"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out. The secret unique
// code is never part of an event.
type Event struct {
	Timestamp time.Time
	Action    Action
	NationID  string
	RulerName string
	AccountID int64
	RequestID string
	ClientIP  string
	Reason    string
}
