package ai

import (
	"fmt"
	"strings"

	"github.com/nhle/buildfast/internal/model"
)

// TestChatSystemPrompt is used by the passthrough test chat.
const TestChatSystemPrompt = "You are a helpful assistant. Respond clearly to user messages."

// FormatTodoList renders todos as numbered, status-annotated lines:
// "{n}. {title}{ (description)} {✅|⏳}". withIDs appends the todo id so
// the model can address it in tool calls.
func FormatTodoList(todos []model.StepTodo, withIDs bool) string {
	lines := make([]string, 0, len(todos))
	for i, todo := range todos {
		var sb strings.Builder
		fmt.Fprintf(&sb, "%d. %s", i+1, todo.Title)
		if todo.Description != "" {
			fmt.Fprintf(&sb, " (%s)", todo.Description)
		}
		if todo.IsCompleted {
			sb.WriteString(" ✅")
		} else {
			sb.WriteString(" ⏳")
		}
		if withIDs {
			fmt.Fprintf(&sb, " [id %d]", todo.ID)
		}
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n")
}

// SectionSystemPrompt builds the system prompt for a section chat.
func SectionSystemPrompt(sc model.SectionContext, todos []model.StepTodo, toolsEnabled bool) string {
	var sb strings.Builder

	sb.WriteString("You are a helpful AI assistant for software development tasks.\n\n")

	sb.WriteString("Project Context:\n")
	fmt.Fprintf(&sb, "- Idea: %s\n", sc.Idea.Title)
	fmt.Fprintf(&sb, "- Section: %s\n", sc.Section.Title)
	if sc.Section.Description != "" {
		fmt.Fprintf(&sb, "- Section description: %s\n", sc.Section.Description)
	}
	sb.WriteString("\n")

	sb.WriteString("Current Tasks in this Section:\n")
	if len(todos) > 0 {
		sb.WriteString(FormatTodoList(todos, false))
	} else {
		sb.WriteString("No tasks have been created yet for this section.")
	}
	sb.WriteString("\n\n")

	sb.WriteString("Help the user with questions about this section, provide guidance, ")
	sb.WriteString("discuss implementation details, and offer suggestions for completing the tasks.")

	if toolsEnabled {
		sb.WriteString("\n\nYou can change the task list with these tools:\n")
		sb.WriteString("- createTodo: add a task\n")
		sb.WriteString("- updateTodo: edit a task or mark it complete\n")
		sb.WriteString("- deleteTodo: remove a task\n")
		sb.WriteString("- getCurrentTodos: list tasks with their ids\n")
		sb.WriteString("Call getCurrentTodos to look up a task's id before updating or deleting it ")
		sb.WriteString("unless the user gave the id. After using a tool, tell the user what changed.")
	}

	return sb.String()
}

// PlanningSystemPrompt builds the system prompt for an idea's planning
// chat. recent must already be in chronological order.
func PlanningSystemPrompt(idea model.Idea, sections []model.StepSection, recent []HistoryEntry) string {
	var sb strings.Builder

	sb.WriteString("You are a helpful AI assistant that helps developers plan the implementation of a project idea.\n\n")

	fmt.Fprintf(&sb, "Idea: %s\n", idea.Title)
	if idea.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", idea.Description)
	}
	if idea.Content != "" {
		fmt.Fprintf(&sb, "Details:\n%s\n", idea.Content)
	}
	sb.WriteString("\n")

	if len(sections) > 0 {
		sb.WriteString("Implementation steps so far:\n")
		for i, sec := range sections {
			status := "⏳"
			if sec.IsCompleted {
				status = "✅"
			}
			fmt.Fprintf(&sb, "%d. %s %s\n", i+1, sec.Title, status)
		}
		sb.WriteString("\n")
	}

	if len(recent) > 0 {
		sb.WriteString("Recent conversation:\n")
		sb.WriteString(JoinTranscript(recent))
		sb.WriteString("\n\n")
	}

	sb.WriteString("Help the user break the idea into clear, ordered implementation steps.")
	return sb.String()
}

// JoinTranscript renders entries as "User: ..." / "Assistant: ..." lines.
func JoinTranscript(entries []HistoryEntry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		speaker := "User"
		if e.Role == model.RoleAssistant {
			speaker = "Assistant"
		}
		lines = append(lines, speaker+": "+e.Content)
	}
	return strings.Join(lines, "\n")
}
