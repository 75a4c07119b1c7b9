package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopHandler(ctx context.Context, sc *StepContext) (*StepResult, error) {
	return Complete(nil)
}

func TestGraphValidate(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Graph
		wantErr string
	}{
		{
			name: "valid linear graph",
			build: func() *Graph {
				return NewGraph("linear").
					AddStep("a", noopHandler).
					AddStep("b", noopHandler, "a").
					AddStep("c", noopHandler, "b")
			},
		},
		{
			name: "valid graph with loop group",
			build: func() *Graph {
				return NewGraph("looped").
					AddStep("setup", noopHandler).
					AddLoop("retry", 3).
					AddLoopStep("retry", "attempt", noopHandler, "setup").
					AddLoopStep("retry", "check", noopHandler, "attempt").
					AddStep("finish", noopHandler, "retry")
			},
		},
		{
			name:    "empty name",
			build:   func() *Graph { return NewGraph("").AddStep("a", noopHandler) },
			wantErr: "name cannot be empty",
		},
		{
			name:    "no steps",
			build:   func() *Graph { return NewGraph("empty") },
			wantErr: "at least one step",
		},
		{
			name: "nil handler",
			build: func() *Graph {
				return NewGraph("bad").AddStep("a", nil)
			},
			wantErr: "handler cannot be nil",
		},
		{
			name: "unknown dependency",
			build: func() *Graph {
				return NewGraph("bad").AddStep("a", noopHandler, "ghost")
			},
			wantErr: `unknown dependency "ghost"`,
		},
		{
			name: "self dependency",
			build: func() *Graph {
				return NewGraph("bad").AddStep("a", noopHandler, "a")
			},
			wantErr: "depends on itself",
		},
		{
			name: "dependency cycle",
			build: func() *Graph {
				return NewGraph("bad").
					AddStep("a", noopHandler, "b").
					AddStep("b", noopHandler, "a")
			},
			wantErr: "dependency cycle",
		},
		{
			name: "external step depends on loop member",
			build: func() *Graph {
				return NewGraph("bad").
					AddLoop("retry", 3).
					AddLoopStep("retry", "attempt", noopHandler).
					AddStep("finish", noopHandler, "attempt")
			},
			wantErr: "depend on loop group",
		},
		{
			name: "member depends on its own loop group",
			build: func() *Graph {
				return NewGraph("bad").
					AddLoop("retry", 3).
					AddLoopStep("retry", "attempt", noopHandler, "retry")
			},
			wantErr: "depends on its own loop group",
		},
		{
			name: "zero iteration ceiling",
			build: func() *Graph {
				return NewGraph("bad").
					AddLoop("retry", 0).
					AddLoopStep("retry", "attempt", noopHandler)
			},
			wantErr: "max iterations must be at least 1",
		},
		{
			name: "empty loop group",
			build: func() *Graph {
				return NewGraph("bad").
					AddLoop("retry", 3).
					AddStep("a", noopHandler)
			},
			wantErr: "loop group has no steps",
		},
		{
			name: "step id collides with loop group",
			build: func() *Graph {
				return NewGraph("bad").
					AddLoop("x", 3).
					AddLoopStep("x", "member", noopHandler).
					AddStep("x", noopHandler)
			},
			wantErr: "collides with a loop group",
		},
		{
			name: "intra-loop member cycle",
			build: func() *Graph {
				return NewGraph("bad").
					AddLoop("retry", 3).
					AddLoopStep("retry", "a", noopHandler, "b").
					AddLoopStep("retry", "b", noopHandler, "a")
			},
			wantErr: "cycle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build().Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, IsValidation(err), "expected a validation error, got %v", err)
		})
	}
}

func TestGraphUnits(t *testing.T) {
	g := NewGraph("units").
		AddStep("a", noopHandler).
		AddLoop("retry", 3).
		AddLoopStep("retry", "attempt", noopHandler, "a").
		AddStep("b", noopHandler, "retry")

	assert.Equal(t, []string{"a", "retry", "b"}, g.Units())

	members := g.LoopMembers("retry")
	require.Len(t, members, 1)
	assert.Equal(t, "attempt", members[0].ID)

	assert.Equal(t, []string{"a"}, g.ExternalDeps("retry"))
}
