// Copyright (C) 2026 ScyllaDB

// Package fsm provides a small generic state machine: states map to an
// action plus the set of events that action may emit, and emitting an
// event drives the machine to the next state and runs its action in
// turn. It is the substrate the connection actor (package conn) builds
// its Disconnected/Connected lifecycle on.
package fsm

import (
	"context"

	"github.com/pkg/errors"
)

// ErrEventRejected is returned when the state machine cannot process an
// event in the state it is currently in.
var ErrEventRejected = errors.New("event rejected")

// NoOp stops the machine's transition loop when emitted by an action.
const NoOp Event = "NoOp"

// State is an extensible state identifier.
type State string

// Event is an extensible event identifier.
type Event string

// Action runs while the machine is in a given state and returns the
// event that should drive the next transition.
type Action func(ctx context.Context) (Event, error)

// Events maps an event to the state it transitions into.
type Events map[Event]State

// Transition binds a state to its action and the events that action may
// emit.
type Transition struct {
	Action Action
	Events Events
}

// Hook runs on every transition, before the machine enters nextState.
// Returning an error aborts the transition.
type Hook func(ctx context.Context, currentState, nextState State, event Event) error

// StateTransitions maps every reachable state to its transition.
type StateTransitions map[State]Transition

// StateMachine drives Action/Events pairs from StateTransitions,
// starting at an initial state.
type StateMachine struct {
	current          State
	stateTransitions StateTransitions
	transitionHook   Hook
}

// New builds a StateMachine starting in state, using stateTransitions as
// its transition table and hook (optional) as its transition observer.
func New(state State, stateTransitions StateTransitions, hook Hook) *StateMachine {
	return &StateMachine{
		current:          state,
		stateTransitions: stateTransitions,
		transitionHook:   hook,
	}
}

func (s *StateMachine) nextState(event Event) (State, error) {
	transition, ok := s.stateTransitions[s.current]
	if ok && transition.Events != nil {
		if next, ok := transition.Events[event]; ok {
			return next, nil
		}
	}
	return s.current, ErrEventRejected
}

// Transition runs the current state's action, then follows whatever
// chain of events/actions it and subsequent states emit until one
// returns NoOp.
func (s *StateMachine) Transition(ctx context.Context) error {
	transition := s.stateTransitions[s.current]
	event, err := transition.Action(ctx)
	if err != nil {
		return err
	}
	if event == NoOp {
		return nil
	}

	for {
		next, err := s.nextState(event)
		if err != nil {
			return errors.Wrapf(ErrEventRejected, "event %q in state %q: %s", event, s.current, err)
		}

		nextTransition, ok := s.stateTransitions[next]
		if !ok || nextTransition.Action == nil {
			return errors.Wrapf(ErrEventRejected, "no action registered for state %q reached via event %q", next, event)
		}

		if s.transitionHook != nil {
			if err := s.transitionHook(ctx, s.current, next, event); err != nil {
				return err
			}
		}
		s.current = next

		nextEvent, err := nextTransition.Action(ctx)
		if err != nil {
			return err
		}
		if nextEvent == NoOp {
			return nil
		}
		event = nextEvent
	}
}

// Current reports the machine's current state.
func (s *StateMachine) Current() State {
	return s.current
}
