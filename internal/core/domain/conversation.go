package domain

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

type ChatTurn struct {
	Role Role   `json:"role"`
	Text string `json:"content"`
}

// Session is a point-in-time copy of one conversation's history.
type Session struct {
	ID        string     `json:"id"`
	Turns     []ChatTurn `json:"turns"`
	UpdatedAt time.Time  `json:"updated_at"`
}
