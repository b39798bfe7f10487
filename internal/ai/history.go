package ai

import (
	"strconv"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/nhle/buildfast/internal/model"
)

// Prefixes used by older clients to encode the author inside the message
// text. They are only read, never written.
const (
	legacyAssistantPrefix = "AI: "
	legacyUserPrefix      = "User: "
)

// HistoryEntry is one chat message as returned to clients.
type HistoryEntry struct {
	ID        string     `json:"id"`
	Role      model.Role `json:"role"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"createdAt"`
}

// DecodeLegacy recovers role and text from a prefix-encoded message.
// The role is assistant iff raw starts with "AI: ". Any run of leading
// "AI: " / "User: " prefixes is removed, so decoding already-decoded text
// changes nothing.
func DecodeLegacy(raw string) (model.Role, string) {
	role := model.RoleUser
	if strings.HasPrefix(raw, legacyAssistantPrefix) {
		role = model.RoleAssistant
	}
	return role, StripPrefixes(raw)
}

// StripPrefixes removes every leading legacy role prefix.
func StripPrefixes(s string) string {
	for {
		switch {
		case strings.HasPrefix(s, legacyAssistantPrefix):
			s = s[len(legacyAssistantPrefix):]
		case strings.HasPrefix(s, legacyUserPrefix):
			s = s[len(legacyUserPrefix):]
		default:
			return s
		}
	}
}

// Reconstruct converts stored rows to history entries in the order given.
// Rows without a valid role were written by a legacy client and are
// decoded from their prefix.
func Reconstruct(rows []model.ChatMessage) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		role, content := row.Role, row.Message
		if !role.Valid() {
			role, content = DecodeLegacy(row.Message)
		}
		entries = append(entries, HistoryEntry{
			ID:        strconv.FormatInt(row.ID, 10),
			Role:      role,
			Content:   content,
			CreatedAt: row.CreatedAt,
		})
	}
	return entries
}

// Chronological reverses a newest-first slice in place and returns it.
func Chronological(entries []HistoryEntry) []HistoryEntry {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries
}

// Window returns the last n entries. n <= 0 returns all of them.
func Window(entries []HistoryEntry, n int) []HistoryEntry {
	if n <= 0 || len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}

// Conversation accumulates the messages sent to the model during one chat
// turn: the system prompt, replayed history, the new user message, and
// any assistant tool calls with their results.
type Conversation struct {
	messages []openai.ChatCompletionMessage
}

// NewConversation starts a conversation with the given system prompt.
func NewConversation(system string) *Conversation {
	return &Conversation{
		messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		}},
	}
}

// AddHistory appends prior entries as user/assistant messages. Blank
// entries are skipped.
func (c *Conversation) AddHistory(entries []HistoryEntry) {
	for _, e := range entries {
		if strings.TrimSpace(e.Content) == "" {
			continue
		}
		role := openai.ChatMessageRoleUser
		if e.Role == model.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		c.Add(openai.ChatCompletionMessage{Role: role, Content: e.Content})
	}
}

// Add appends a message.
func (c *Conversation) Add(msg openai.ChatCompletionMessage) {
	c.messages = append(c.messages, msg)
}

// Messages returns a copy of the current messages, system prompt first.
func (c *Conversation) Messages() []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages including the system prompt.
func (c *Conversation) Len() int {
	return len(c.messages)
}
