package testutil

import (
	"context"
	"testing"

	"github.com/nhle/buildfast/internal/model"
	"github.com/nhle/buildfast/internal/store"
)

// NewTestStore creates an in-memory SQLStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// Fixture is a user with one project, idea and section, the minimum needed
// to exercise todos and chats.
type Fixture struct {
	User    *model.User
	Project *model.Project
	Idea    *model.Idea
	Section *model.StepSection
}

// SeedUser inserts a user with the given email.
func SeedUser(t *testing.T, s store.Store, email string) *model.User {
	t.Helper()

	u, err := s.CreateUser(context.Background(), model.User{Email: email, Name: email})
	if err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return u
}

// SeedProject inserts a project owned by userID.
func SeedProject(t *testing.T, s store.Store, userID, name string) *model.Project {
	t.Helper()

	p, err := s.CreateProject(context.Background(), model.Project{UserID: userID, Name: name})
	if err != nil {
		t.Fatalf("seeding project: %v", err)
	}
	return p
}

// SeedIdea inserts an idea under projectID.
func SeedIdea(t *testing.T, s store.Store, projectID int64, title string) *model.Idea {
	t.Helper()

	idea, err := s.CreateIdea(context.Background(), model.Idea{ProjectID: projectID, Title: title})
	if err != nil {
		t.Fatalf("seeding idea: %v", err)
	}
	return idea
}

// SeedSection inserts a section under ideaID.
func SeedSection(t *testing.T, s store.Store, ideaID int64, title string) *model.StepSection {
	t.Helper()

	sec, err := s.CreateSection(context.Background(), model.StepSection{IdeaID: ideaID, Title: title})
	if err != nil {
		t.Fatalf("seeding section: %v", err)
	}
	return sec
}

// SeedFixture builds a full user → project → idea → section chain.
func SeedFixture(t *testing.T, s store.Store, email string) Fixture {
	t.Helper()

	u := SeedUser(t, s, email)
	p := SeedProject(t, s, u.ID, "Todo App")
	idea := SeedIdea(t, s, p.ID, "CLI todo manager")
	sec := SeedSection(t, s, idea.ID, "Persistence")
	return Fixture{User: u, Project: p, Idea: idea, Section: sec}
}
