// Copyright (C) 2026 ScyllaDB

package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	stateOff State = "off"
	stateOn  State = "on"

	eventFlip Event = "flip"
	eventDie  Event = "die"
)

func TestTransitionWalksChainUntilNoOp(t *testing.T) {
	var flips int
	sm := New(stateOff, StateTransitions{
		stateOff: {
			Action: func(ctx context.Context) (Event, error) { return eventFlip, nil },
			Events: Events{eventFlip: stateOn},
		},
		stateOn: {
			Action: func(ctx context.Context) (Event, error) {
				flips++
				if flips >= 3 {
					return NoOp, nil
				}
				return eventFlip, nil
			},
			Events: Events{eventFlip: stateOff},
		},
	}, nil)

	require.NoError(t, sm.Transition(context.Background()))
	require.Equal(t, stateOn, sm.Current())
	require.Equal(t, 3, flips)
}

func TestTransitionRejectsUnknownEvent(t *testing.T) {
	sm := New(stateOff, StateTransitions{
		stateOff: {
			Action: func(ctx context.Context) (Event, error) { return eventDie, nil },
			Events: Events{eventFlip: stateOn},
		},
	}, nil)

	err := sm.Transition(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrEventRejected))
	require.Equal(t, stateOff, sm.Current())
}

func TestTransitionPropagatesActionError(t *testing.T) {
	boom := errors.New("boom")
	sm := New(stateOff, StateTransitions{
		stateOff: {
			Action: func(ctx context.Context) (Event, error) { return NoOp, boom },
		},
	}, nil)

	err := sm.Transition(context.Background())
	require.Equal(t, boom, err)
}

func TestTransitionHookRunsBeforeStateChangeAndCanAbort(t *testing.T) {
	var seen []string
	sm := New(stateOff, StateTransitions{
		stateOff: {
			Action: func(ctx context.Context) (Event, error) { return eventFlip, nil },
			Events: Events{eventFlip: stateOn},
		},
		stateOn: {
			Action: func(ctx context.Context) (Event, error) { return NoOp, nil },
		},
	}, func(ctx context.Context, current, next State, event Event) error {
		seen = append(seen, string(current)+"->"+string(next))
		return nil
	})

	require.NoError(t, sm.Transition(context.Background()))
	require.Equal(t, []string{"off->on"}, seen)
	require.Equal(t, stateOn, sm.Current())
}

func TestTransitionHookErrorAbortsBeforeEnteringNextState(t *testing.T) {
	hookErr := errors.New("hook refused")
	sm := New(stateOff, StateTransitions{
		stateOff: {
			Action: func(ctx context.Context) (Event, error) { return eventFlip, nil },
			Events: Events{eventFlip: stateOn},
		},
		stateOn: {
			Action: func(ctx context.Context) (Event, error) { return NoOp, nil },
		},
	}, func(ctx context.Context, current, next State, event Event) error {
		return hookErr
	})

	err := sm.Transition(context.Background())
	require.Equal(t, hookErr, err)
	require.Equal(t, stateOff, sm.Current())
}
