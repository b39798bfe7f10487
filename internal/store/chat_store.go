package store

import (
	"context"
	"fmt"
	"time"

	"github.com/nhle/buildfast/internal/model"
)

// chatTable maps a scope to its table and parent column.
func chatTable(scope model.ChatScope) (table, parent string, err error) {
	switch scope {
	case model.ScopeSection:
		return "step_section_chats", "section_id", nil
	case model.ScopePlanning:
		return "step_planning_chats", "idea_id", nil
	default:
		return "", "", fmt.Errorf("unknown chat scope %q", scope)
	}
}

// AppendChat appends a message to the scope's chat log.
func (s *SQLStore) AppendChat(
	ctx context.Context,
	scope model.ChatScope,
	parentID int64,
	role model.Role,
	message string,
) (*model.ChatMessage, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid chat role %q", role)
	}
	table, parent, err := chatTable(scope)
	if err != nil {
		return nil, err
	}

	msg := model.ChatMessage{
		ParentID:  parentID,
		Role:      role,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	id, err := s.insertReturningID(ctx,
		"INSERT INTO "+table+" ("+parent+", role, message, created_at) VALUES (?, ?, ?, ?)",
		msg.ParentID, string(msg.Role), msg.Message, msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("appending %s chat: %w", scope, err)
	}
	msg.ID = id
	return &msg, nil
}

// ListChats returns the whole log for parentID, oldest first.
func (s *SQLStore) ListChats(ctx context.Context, scope model.ChatScope, parentID int64) ([]model.ChatMessage, error) {
	table, parent, err := chatTable(scope)
	if err != nil {
		return nil, err
	}

	msgs := []model.ChatMessage{}
	err = s.selectAll(ctx, &msgs,
		"SELECT id, "+parent+" AS parent_id, role, message, created_at FROM "+table+
			" WHERE "+parent+" = ? ORDER BY created_at, id", parentID)
	if err != nil {
		return nil, fmt.Errorf("querying %s chats: %w", scope, err)
	}
	return msgs, nil
}

// RecentChats implements Store.
func (s *SQLStore) RecentChats(
	ctx context.Context,
	scope model.ChatScope,
	parentID int64,
	limit int,
) ([]model.ChatMessage, error) {
	table, parent, err := chatTable(scope)
	if err != nil {
		return nil, err
	}

	msgs := []model.ChatMessage{}
	err = s.selectAll(ctx, &msgs,
		"SELECT id, "+parent+" AS parent_id, role, message, created_at FROM "+table+
			fmt.Sprintf(" WHERE "+parent+" = ? ORDER BY created_at DESC, id DESC LIMIT %d", limit), parentID)
	if err != nil {
		return nil, fmt.Errorf("querying recent %s chats: %w", scope, err)
	}
	return msgs, nil
}
