package attrs

import (
	"context"

	"github.com/looplab/fsm"
)

const (
	stateUninitialized = "uninitialized"
	stateInitializing  = "initializing"
	stateUnpersisted   = "unpersisted"
	statePersisted     = "persisted"

	eventBegin     = "begin"
	eventAbort     = "abort"
	eventReady     = "ready"
	eventRestore   = "restore"
	eventPersist   = "persist"
	eventUnpersist = "unpersist"
)

// lifecycle tracks Uninitialized -> Initializing -> Initialized, then the
// Unpersisted/Persisted cycle of an initialized registry.
type lifecycle struct {
	machine *fsm.FSM
}

func newLifecycle() *lifecycle {
	return &lifecycle{
		machine: fsm.NewFSM(
			stateUninitialized,
			fsm.Events{
				{Name: eventBegin, Src: []string{stateUninitialized}, Dst: stateInitializing},
				{Name: eventAbort, Src: []string{stateInitializing}, Dst: stateUninitialized},
				{Name: eventReady, Src: []string{stateInitializing}, Dst: stateUnpersisted},
				{Name: eventRestore, Src: []string{stateInitializing}, Dst: statePersisted},
				{Name: eventPersist, Src: []string{stateUnpersisted}, Dst: statePersisted},
				{Name: eventUnpersist, Src: []string{statePersisted}, Dst: stateUnpersisted},
			},
			fsm.Callbacks{},
		),
	}
}

func (l *lifecycle) fire(event string) error {
	return l.machine.Event(context.Background(), event)
}

func (l *lifecycle) current() string { return l.machine.Current() }

func (l *lifecycle) initializing() bool { return l.machine.Is(stateInitializing) }

func (l *lifecycle) initialized() bool {
	return l.machine.Is(stateUnpersisted) || l.machine.Is(statePersisted)
}

func (l *lifecycle) persisted() bool { return l.machine.Is(statePersisted) }
