package wallet

import "github.com/looplab/fsm"

// Lifecycle states. Every transaction walks assembling → built → signed
// and then terminates in exactly one of submitted or persisted-offline.
const (
	StateAssembling       = "assembling"
	StateBuilt            = "built"
	StateSigned           = "signed"
	StateSubmitted        = "submitted"
	StatePersistedOffline = "persisted-offline"
)

const (
	eventBuild   = "build"
	eventSign    = "sign"
	eventSubmit  = "submit"
	eventPersist = "persist"
)

// newLifecycle creates the per-transaction state machine. Transitions
// are strictly linear; an out-of-order event (submitting an unsigned
// draft, signing twice) is a programming error and surfaces as a
// transition failure.
func newLifecycle() *fsm.FSM {
	return fsm.NewFSM(
		StateAssembling,
		fsm.Events{
			{
				Name: eventBuild,
				Src:  []string{StateAssembling},
				Dst:  StateBuilt,
			},
			{
				Name: eventSign,
				Src:  []string{StateBuilt},
				Dst:  StateSigned,
			},
			{
				Name: eventSubmit,
				Src:  []string{StateSigned},
				Dst:  StateSubmitted,
			},
			{
				Name: eventPersist,
				Src:  []string{StateSigned},
				Dst:  StatePersistedOffline,
			},
		},
		fsm.Callbacks{},
	)
}
