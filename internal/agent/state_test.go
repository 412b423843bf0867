package agent

import "testing"

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name  string
		state State
		event LoopEvent
		want  State
		legal bool
	}{
		{"start run", StateInit, EventStart, StateBuilding, true},
		{"initial prompt fails", StateInit, EventAgentError, StateAborted, true},
		{"build passes", StateBuilding, EventBuildOK, StateSucceeded, true},
		{"build fails", StateBuilding, EventBuildFailed, StateFailed, true},
		{"enter fixing", StateFailed, EventStart, StateFixing, true},
		{"out of attempts", StateFailed, EventAttemptsExhausted, StateExhausted, true},
		{"fix applied", StateFixing, EventFixApplied, StateBuilding, true},
		{"agent dies mid-fix", StateFixing, EventAgentError, StateAborted, true},
		{"no fixing from init", StateInit, EventFixApplied, StateInit, false},
		{"no building after success", StateSucceeded, EventStart, StateSucceeded, false},
		{"no revival after abort", StateAborted, EventBuildOK, StateAborted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.state, tt.event)
			if tt.legal && err != nil {
				t.Fatalf("Transition(%s, %s) unexpectedly illegal: %v", tt.state, tt.event, err)
			}
			if !tt.legal && err == nil {
				t.Fatalf("Transition(%s, %s) should be illegal", tt.state, tt.event)
			}
			if got != tt.want {
				t.Errorf("Transition(%s, %s) = %s, want %s", tt.state, tt.event, got, tt.want)
			}
		})
	}
}

func TestTerminalStates(t *testing.T) {
	terminals := map[State]bool{
		StateInit:      false,
		StateBuilding:  false,
		StateFailed:    false,
		StateFixing:    false,
		StateSucceeded: true,
		StateExhausted: true,
		StateAborted:   true,
	}
	for state, want := range terminals {
		if got := state.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", state, got, want)
		}
	}
}
