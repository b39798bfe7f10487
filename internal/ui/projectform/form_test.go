package projectform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/buildfast/internal/model"
)

func TestInput(t *testing.T) {
	tests := []struct {
		name         string
		values       Values
		wantDeadline string
		wantErr      string
	}{
		{"no deadline", Values{Name: " Todo App "}, "", ""},
		{"date", Values{Name: "x", Deadline: "2030-01-02"}, "2030-01-02T23:59:59Z", ""},
		{"timestamp", Values{Name: "x", Deadline: "2030-01-02T10:00:00Z"}, "2030-01-02T10:00:00Z", ""},
		{"bad deadline", Values{Name: "x", Deadline: "next week"}, "", "deadline must look like 2006-01-02"},
		{"blank name", Values{Name: "  "}, "", "name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := tt.values.Input()
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDeadline, in.TargetDeadline)
		})
	}

	in, err := (&Values{Name: " Todo App "}).Input()
	require.NoError(t, err)
	assert.Equal(t, "Todo App", in.Name)
}

func TestFromProject(t *testing.T) {
	v := FromProject(model.Project{
		Name:           "Todo App",
		TechStack:      "Go",
		TargetDeadline: time.Date(2030, 1, 2, 15, 0, 0, 0, time.UTC),
	})
	assert.Equal(t, "Todo App", v.Name)
	assert.Equal(t, "Go", v.TechStack)
	assert.Equal(t, "2030-01-02", v.Deadline)
	assert.NotNil(t, v.Form("Edit project"))
}
