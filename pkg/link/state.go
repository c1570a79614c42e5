// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"fmt"

	"github.com/Thermoquad/parhelion/pkg/afhds"
)

// State is the receiver's link state
type State uint8

// Link states
const (
	// StateBind listens on the bind channel and elects a transmitter.
	StateBind State = iota
	// StateHopping follows the bound transmitter's hop sequence.
	StateHopping
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateBind:
		return "BIND"
	case StateHopping:
		return "HOPPING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
	}
}

// EventKind identifies a link transition
type EventKind uint8

// Event kinds
const (
	EventEnteredBind EventKind = iota
	EventBound
	EventResumed
	EventSynced
	EventLinkLost
	EventLinkRecovered
	EventRebind
	EventSaveFailed
)

// String returns the event name
func (k EventKind) String() string {
	switch k {
	case EventEnteredBind:
		return "ENTERED_BIND"
	case EventBound:
		return "BOUND"
	case EventResumed:
		return "RESUMED"
	case EventSynced:
		return "SYNCED"
	case EventLinkLost:
		return "LINK_LOST"
	case EventLinkRecovered:
		return "LINK_RECOVERED"
	case EventRebind:
		return "REBIND"
	case EventSaveFailed:
		return "SAVE_FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(k))
	}
}

// Event describes one link transition
type Event struct {
	Kind   EventKind
	Tick   uint32
	ID     afhds.ID
	Missed uint16
}
