// Package transport declares the narrow external-collaborator
// boundaries spec.md section 1 calls out as out of scope for this
// core: the ASN.1 PDU codec and the reliable multi-stream transport.
// Production implementations live outside this module; this package
// also ships an in-memory fake used by tests and local runs, grounded
// on the teacher's narrow-client pattern (nf/smf/internal/n4.PFCPClient
// is exactly this shape: a collaborator interface the service layer
// calls without knowing the wire format underneath).
package transport

import "github.com/your-org/mme-s1ap-core/internal/enb"

// StreamZero is the reserved stream for non-UE-associated signalling
// (spec.md section 4.1/6).
const StreamZero uint16 = 0

// StreamTransport is the reliable, ordered, multi-stream transport
// beneath S1AP (conceptually SCTP). Send enqueues a buffer for
// delivery and returns without blocking (spec.md section 5).
type StreamTransport interface {
	Send(assoc enb.AssociationID, stream uint16, payload []byte) error
	Close(assoc enb.AssociationID) error
}

// Codec encodes and decodes 3GPP S1AP PDUs. It is an external
// collaborator (spec.md section 1): this core never implements ASN.1
// PER encoding itself.
type Codec interface {
	EncodePDU(pdu PDU) ([]byte, error)
	DecodePDU(raw []byte) (PDU, error)
}

// Direction is the S1AP PDU outcome shape (spec.md section 6).
type Direction int

const (
	DirectionInitiating Direction = iota
	DirectionSuccessful
	DirectionUnsuccessful
)

func (d Direction) String() string {
	switch d {
	case DirectionInitiating:
		return "initiating"
	case DirectionSuccessful:
		return "successful"
	case DirectionUnsuccessful:
		return "unsuccessful"
	default:
		return "unknown"
	}
}

// PDU is a decoded S1AP message: a procedure code, a direction, and a
// procedure-specific payload. The payload is one of the IE structs
// declared in internal/s1ap/ies.go; PDU does not constrain its type so
// that internal/s1ap owns the full IE vocabulary without this package
// importing it back (avoiding an import cycle -- internal/s1ap imports
// transport, so transport cannot import internal/s1ap).
type PDU struct {
	ProcedureCode int
	Direction     Direction
	Payload       any
}
