package transport

import (
	"errors"
	"sync"

	"github.com/your-org/mme-s1ap-core/internal/enb"
)

// sentPDU records one Send call, for assertions in tests.
type sentPDU struct {
	Stream  uint16
	Payload []byte
}

// FakeTransport is an in-memory StreamTransport used by tests and by
// cmd/mme when no real SCTP transport is wired up. It never actually
// round-trips bytes to a peer; it simply records what was sent.
type FakeTransport struct {
	mu     sync.Mutex
	sent   map[enb.AssociationID][]sentPDU
	closed map[enb.AssociationID]bool
}

// NewFakeTransport creates an empty FakeTransport.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		sent:   make(map[enb.AssociationID][]sentPDU),
		closed: make(map[enb.AssociationID]bool),
	}
}

// ErrAssociationClosed is returned by Send after Close.
var ErrAssociationClosed = errors.New("transport: association closed")

func (f *FakeTransport) Send(assoc enb.AssociationID, stream uint16, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed[assoc] {
		return ErrAssociationClosed
	}
	f.sent[assoc] = append(f.sent[assoc], sentPDU{Stream: stream, Payload: payload})
	return nil
}

func (f *FakeTransport) Close(assoc enb.AssociationID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed[assoc] = true
	return nil
}

// Sent returns every payload sent on the given association, in order.
func (f *FakeTransport) Sent(assoc enb.AssociationID) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent[assoc]))
	for i, p := range f.sent[assoc] {
		out[i] = p.Payload
	}
	return out
}

// LastStream returns the stream of the last PDU sent on assoc, or
// false if nothing was ever sent.
func (f *FakeTransport) LastStream(assoc enb.AssociationID) (uint16, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pdus := f.sent[assoc]
	if len(pdus) == 0 {
		return 0, false
	}
	return pdus[len(pdus)-1].Stream, true
}

// Count returns how many PDUs were sent on assoc.
func (f *FakeTransport) Count(assoc enb.AssociationID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent[assoc])
}

// FakeCodec is a pass-through Codec for tests: Encode/Decode simply
// box and unbox the PDU through a tiny self-describing envelope so
// round-trip tests can assert bit-exact reconstruction of the fields
// that matter (procedure code, direction, payload) without a real
// ASN.1 PER implementation.
type FakeCodec struct{}

func (FakeCodec) EncodePDU(pdu PDU) ([]byte, error) {
	return encodeEnvelope(pdu), nil
}

func (FakeCodec) DecodePDU(raw []byte) (PDU, error) {
	return decodeEnvelope(raw)
}
