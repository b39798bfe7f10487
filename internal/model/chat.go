package model

import "time"

// Role identifies the author of a chat message.
type Role string

// Chat roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ChatScope selects which chat log a message belongs to.
type ChatScope string

// Chat scopes. Section chats hang off a step section, planning chats off an
// idea.
const (
	ScopeSection  ChatScope = "section"
	ScopePlanning ChatScope = "planning"
)

// ChatMessage is a row from either chat log. ParentID is the section id
// or the idea id depending on the scope.
type ChatMessage struct {
	ID        int64     `json:"id" db:"id"`
	ParentID  int64     `json:"parent_id" db:"parent_id"`
	Role      Role      `json:"role" db:"role"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
