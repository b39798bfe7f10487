package store

import (
	"context"
	"errors"

	"github.com/nhle/buildfast/internal/model"
)

// ErrNotFound is returned (wrapped) when a lookup matches no row, or when
// the row exists but belongs to another user.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for users, projects, ideas,
// step sections, step todos and both chat logs.
//
// Methods taking a userID only see rows reachable from a project owned by
// that user. Methods without one trust the caller to have checked
// ownership already.
type Store interface {
	// InTx runs fn against a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Store) error) error

	// === Users ===

	CreateUser(ctx context.Context, user model.User) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// === Projects ===

	CreateProject(ctx context.Context, project model.Project) (*model.Project, error)
	UpdateProject(ctx context.Context, project model.Project) (*model.Project, error)
	GetProject(ctx context.Context, userID string, id int64) (*model.Project, error)
	ListProjects(ctx context.Context, userID string) ([]model.Project, error)

	// === Ideas ===

	CreateIdea(ctx context.Context, idea model.Idea) (*model.Idea, error)
	UpdateIdea(ctx context.Context, idea model.Idea) (*model.Idea, error)
	GetIdea(ctx context.Context, userID string, id int64) (*model.Idea, error)
	ListIdeas(ctx context.Context, projectID int64) ([]model.Idea, error)

	// === Step sections ===

	CreateSection(ctx context.Context, section model.StepSection) (*model.StepSection, error)
	GetSection(ctx context.Context, userID string, id int64) (*model.SectionContext, error)
	GetSectionByID(ctx context.Context, id int64) (*model.StepSection, error)
	ListSections(ctx context.Context, ideaID int64) ([]model.StepSection, error)
	SetSectionCompleted(ctx context.Context, id int64, completed bool) error

	// === Step todos ===

	CreateTodo(ctx context.Context, todo model.StepTodo) (*model.StepTodo, error)
	GetTodo(ctx context.Context, id int64) (*model.StepTodo, error)
	GetOwnedTodo(ctx context.Context, userID string, id int64) (*model.StepTodo, error)
	ListTodos(ctx context.Context, sectionID int64) ([]model.StepTodo, error)
	UpdateTodo(ctx context.Context, id int64, patch model.TodoPatch) (*model.StepTodo, error)
	DeleteTodo(ctx context.Context, id int64) error
	SetTodosCompleted(ctx context.Context, sectionID int64, completed bool) (int64, error)
	TodoCompletion(ctx context.Context, sectionID int64) (total, done int, err error)

	// === Chat logs ===

	AppendChat(ctx context.Context, scope model.ChatScope, parentID int64, role model.Role, message string) (*model.ChatMessage, error)
	ListChats(ctx context.Context, scope model.ChatScope, parentID int64) ([]model.ChatMessage, error)
	// RecentChats returns at most limit messages, newest first.
	RecentChats(ctx context.Context, scope model.ChatScope, parentID int64, limit int) ([]model.ChatMessage, error)
}
