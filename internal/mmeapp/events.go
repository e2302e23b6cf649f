// Package mmeapp declares the narrow upward interface toward the
// MME-app/NAS collaborator (spec.md section 1/6): every decoded and
// validated S1AP or ESM event becomes a typed message delivered
// through this interface. This module does not implement the
// collaborator itself -- only the boundary and a channel-backed sink
// used by cmd/mme and by tests.
package mmeapp

import (
	"github.com/your-org/mme-s1ap-core/internal/enb"
	"github.com/your-org/mme-s1ap-core/internal/model"
	"github.com/your-org/mme-s1ap-core/internal/ue"
)

// EventKind discriminates the payload carried by an Event.
type EventKind int

const (
	EventInitialUEMessage EventKind = iota
	EventUEContextReleaseComplete
	EventUEContextReleaseRequest
	EventInitialContextSetupResponse
	EventInitialContextSetupFailure
	EventHandoverRequired
	EventHandoverCancel
	EventENBStatusTransfer
	EventHandoverFailure
	EventHandoverRequestAcknowledge
	EventHandoverNotify
	EventPathSwitchRequest
	EventErrorIndication
	EventPeerDeregistration
	EventResetRequired
	EventUECapabilityInfoIndication
	EventERABSetupOutcome
	EventERABReleaseOutcome
	EventERABReleaseIndication
	EventDedicatedBearerDeactivationComplete
)

// DeregisteredUE identifies one UE reference torn down by a batched
// EventPeerDeregistration (spec.md section 4.1's "iterate UEs in
// batches of N ... emit one deregistration event per batch").
type DeregisteredUE struct {
	MMEUEID    ue.MMEUEID
	HasMMEUEID bool
	ENBUEID    ue.ENBUEID
}

// Event is the envelope every northbound message travels in (spec.md
// section 6: "MME-UE-ID, eNB-UE-ID, eNodeB ID, association identifier,
// stream, and a procedure-specific payload").
type Event struct {
	Kind        EventKind
	MMEUEID     ue.MMEUEID
	HasMMEUEID  bool
	ENBUEID     ue.ENBUEID
	HasENBUEID  bool
	ENBID       model.ENBID
	Association enb.AssociationID
	Stream      uint16
	Payload     any
}

// Sink is the narrow collaborator interface the S1AP/ESM core sends
// events through. Delivery must not block the caller for long --
// spec.md section 5 requires the core never block on user code except
// mailbox enqueue; a ChannelSink backed by a sufficiently large
// buffered channel satisfies that in this implementation.
type Sink interface {
	Publish(Event)
}

// ChannelSink is a Sink backed by a buffered Go channel, the closest
// in-module analogue to the mailbox fabric spec.md section 1 excludes
// from this core's scope.
type ChannelSink struct {
	ch chan Event
}

// NewChannelSink creates a ChannelSink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan Event, buffer)}
}

// Publish enqueues an event, dropping it if the buffer is full rather
// than blocking the S1AP/ESM call path.
func (s *ChannelSink) Publish(e Event) {
	select {
	case s.ch <- e:
	default:
	}
}

// Events returns the receive side of the channel for a consumer loop.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}
