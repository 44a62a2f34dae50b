package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState(t *testing.T) {
	tests := []struct {
		state     State
		name      string
		completed bool
	}{
		{state: StateInProgress, name: "in progress", completed: false},
		{state: StateCommitted, name: "committed", completed: true},
		{state: StateAborted, name: "aborted", completed: true},
		{state: State(42), name: "unknown", completed: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.state.String())
			assert.Equal(t, tt.completed, IsCompleted(tt.state))
		})
	}
}
