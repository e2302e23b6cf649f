package transport

import (
	"bytes"
	"encoding/gob"
)

// gobEnvelope is the wire shape FakeCodec uses to round-trip a PDU
// through encoding/gob. Real deployments replace Codec entirely with
// an ASN.1 PER implementation; this envelope lets tests exercise
// encode-then-decode round trips (spec.md section 8), and cmd/mme run
// standalone, without one.
type gobEnvelope struct {
	ProcedureCode int
	Direction     Direction
	Payload       any
}

func encodeEnvelope(pdu PDU) []byte {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	env := gobEnvelope{ProcedureCode: pdu.ProcedureCode, Direction: pdu.Direction, Payload: pdu.Payload}
	if err := enc.Encode(&env); err != nil {
		// FakeCodec stands in for a real codec in tests and in
		// cmd/mme's standalone wiring; a payload type the caller forgot
		// to gob.Register is a programming error, not a runtime
		// condition production code must recover from.
		panic("transport: fake codec encode failed: " + err.Error())
	}
	return buf.Bytes()
}

func decodeEnvelope(raw []byte) (PDU, error) {
	var env gobEnvelope
	dec := gob.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&env); err != nil {
		return PDU{}, err
	}
	return PDU{ProcedureCode: env.ProcedureCode, Direction: env.Direction, Payload: env.Payload}, nil
}

// RegisterPayloadType registers a concrete payload type with gob so
// FakeCodec can round-trip PDUs carrying it. Call once per type, from
// an init() in the package that defines the type.
func RegisterPayloadType(v any) {
	gob.Register(v)
}
