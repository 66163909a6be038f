package tools

import (
	"fmt"

	"github.com/LTKSK/go-coding-agent/interaction"
	"github.com/LTKSK/go-coding-agent/logging"
)

// State is a step in the life of a mutating tool call.
type State string

const (
	StateRequested            State = "requested"
	StateRefused              State = "refused"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateGranted              State = "granted"
	StateDenied               State = "denied"
	StateExecuted             State = "executed"
	StateRejected             State = "rejected"
	StateFailed               State = "failed"
)

// MutationResult is the result of a mutating tool.
type MutationResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Mutation describes one mutating tool call.
type Mutation struct {
	Tool string
	// Action completes "User denied permission to ...".
	Action string
	// Prepare runs before anything is asked. An error refuses the call without
	// prompting; otherwise it returns the question to show the human.
	Prepare func() (question string, err error)
	// Execute performs the effect and returns a success message.
	Execute func() (message string, err error)
}

// Gate asks for confirmation before a mutating tool takes effect:
//
//	REQUESTED -> AWAITING_CONFIRMATION -> GRANTED -> EXECUTED
//	                                   -> DENIED  -> REJECTED
//
// A failing Prepare short-circuits to REFUSED without a prompt.
type Gate struct {
	asker interaction.Asker
}

func NewGate(asker interaction.Asker) *Gate {
	if asker == nil {
		panic("tools: NewGate requires a confirmation channel")
	}
	return &Gate{asker: asker}
}

// Run drives m through the state machine and returns the JSON result for the model.
func (g *Gate) Run(m Mutation) string {
	result, state := g.run(m)
	logging.Debug().Str("tool", m.Tool).Str("state", string(state)).Bool("ok", result.OK).Msg("mutation finished")
	return resultJSON(result)
}

func (g *Gate) run(m Mutation) (MutationResult, State) {
	g.transition(m.Tool, StateRequested)

	question, err := m.Prepare()
	if err != nil {
		g.transition(m.Tool, StateRefused)
		return MutationResult{OK: false, Error: err.Error()}, StateRefused
	}

	g.transition(m.Tool, StateAwaitingConfirmation)
	if !g.asker.Ask(question) {
		g.transition(m.Tool, StateDenied)
		return MutationResult{OK: false, Error: fmt.Sprintf("User denied permission to %s", m.Action)}, StateRejected
	}

	g.transition(m.Tool, StateGranted)
	message, err := m.Execute()
	if err != nil {
		return MutationResult{OK: false, Error: err.Error()}, StateFailed
	}
	return MutationResult{OK: true, Message: message}, StateExecuted
}

func (g *Gate) transition(tool string, to State) {
	logging.Debug().Str("tool", tool).Str("state", string(to)).Msg("mutation state")
}
