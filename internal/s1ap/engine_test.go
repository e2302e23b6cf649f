package s1ap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/mme-s1ap-core/internal/config"
	"github.com/your-org/mme-s1ap-core/internal/enb"
	"github.com/your-org/mme-s1ap-core/internal/mmeapp"
	"github.com/your-org/mme-s1ap-core/internal/model"
	"github.com/your-org/mme-s1ap-core/internal/transport"
	"github.com/your-org/mme-s1ap-core/internal/ue"
)

func servedPLMN() model.PLMN { return model.PLMN{MCC: "001", MNC: "01"} }

func testCfg() *config.Config {
	cfg := config.Defaults()
	cfg.Served.PLMNs = []config.PLMN{{MCC: "001", MNC: "01"}}
	cfg.Served.GUMMEI = config.GUMMEIConfig{
		PLMN:       config.PLMN{MCC: "001", MNC: "01"},
		MMEGroupID: 1,
		MMECode:    1,
	}
	cfg.Limits.MaxENBs = 2
	return cfg
}

type testHarness struct {
	engine *Engine
	tp     *transport.FakeTransport
	codec  transport.FakeCodec
	sink   *mmeapp.ChannelSink
}

func newHarness(cfg *config.Config) *testHarness {
	tp := transport.NewFakeTransport()
	codec := transport.FakeCodec{}
	sink := mmeapp.NewChannelSink(64)
	engine := NewEngine(cfg, tp, codec, sink, zap.NewNop())
	return &testHarness{engine: engine, tp: tp, codec: codec, sink: sink}
}

func (h *testHarness) dispatch(t *testing.T, assoc enb.AssociationID, stream uint16, pdu transport.PDU) error {
	t.Helper()
	raw, err := h.codec.EncodePDU(pdu)
	require.NoError(t, err)
	return h.engine.Dispatch(context.Background(), assoc, stream, raw)
}

func (h *testHarness) lastSent(t *testing.T, assoc enb.AssociationID) transport.PDU {
	t.Helper()
	sent := h.tp.Sent(assoc)
	require.NotEmpty(t, sent)
	pdu, err := h.codec.DecodePDU(sent[len(sent)-1])
	require.NoError(t, err)
	return pdu
}

func testENBID(n uint32) model.ENBID {
	return model.ENBID{PLMN: servedPLMN(), Kind: model.ENBIDMacro, Value: n}
}

// setupENB drives a successful S1 Setup and returns the association.
func setupENB(t *testing.T, h *testHarness, assoc enb.AssociationID) {
	t.Helper()
	require.NoError(t, h.engine.OnPeerConnected(assoc, 4, 4))
	err := h.dispatch(t, assoc, transport.StreamZero, transport.PDU{
		ProcedureCode: int(ProcedureS1Setup),
		Direction:     transport.DirectionInitiating,
		Payload: S1SetupRequestIEs{
			ENBID:        testENBID(uint32(assoc)),
			ENBName:      "test-enb",
			DefaultDRX:   32,
			SupportedTAs: []model.TAI{{PLMN: servedPLMN(), TAC: 1}},
		},
	})
	require.NoError(t, err)
	pdu := h.lastSent(t, assoc)
	require.Equal(t, transport.DirectionSuccessful, pdu.Direction)
}

func TestS1SetupSuccess(t *testing.T) {
	h := newHarness(testCfg())
	setupENB(t, h, 1)

	d, ok := h.engine.Registry().Get(1)
	require.True(t, ok)
	assert.Equal(t, enb.StateReady, d.State)
	assert.Equal(t, "test-enb", d.Name)
}

func TestS1SetupRejectsUnservedPLMN(t *testing.T) {
	h := newHarness(testCfg())
	require.NoError(t, h.engine.OnPeerConnected(1, 4, 4))

	// The eNodeB's own Global-ID PLMN is served, but none of the
	// Supported-TAs it reports are -- the admission check runs against
	// Supported-TAs, not the Global-ID.
	unservedTA := model.TAI{PLMN: model.PLMN{MCC: "999", MNC: "99"}, TAC: 1}
	err := h.dispatch(t, 1, transport.StreamZero, transport.PDU{
		ProcedureCode: int(ProcedureS1Setup),
		Direction:     transport.DirectionInitiating,
		Payload: S1SetupRequestIEs{
			ENBID:        testENBID(1),
			ENBName:      "bad-plmn",
			SupportedTAs: []model.TAI{unservedTA},
		},
	})
	require.NoError(t, err)

	pdu := h.lastSent(t, 1)
	assert.Equal(t, transport.DirectionUnsuccessful, pdu.Direction)
	fail, ok := pdu.Payload.(S1SetupFailureIEs)
	require.True(t, ok)
	assert.Equal(t, model.CauseGroupMisc, fail.Cause.Group)
}

func TestS1SetupRejectsNonZeroStream(t *testing.T) {
	h := newHarness(testCfg())
	require.NoError(t, h.engine.OnPeerConnected(1, 4, 4))

	err := h.dispatch(t, 1, 1, transport.PDU{
		ProcedureCode: int(ProcedureS1Setup),
		Direction:     transport.DirectionInitiating,
		Payload: S1SetupRequestIEs{
			ENBID:        testENBID(1),
			ENBName:      "wrong-stream",
			SupportedTAs: []model.TAI{{PLMN: servedPLMN(), TAC: 1}},
		},
	})
	require.NoError(t, err)

	pdu := h.lastSent(t, 1)
	assert.Equal(t, transport.DirectionUnsuccessful, pdu.Direction)
	fail, ok := pdu.Payload.(S1SetupFailureIEs)
	require.True(t, ok)
	assert.Equal(t, model.CauseGroupProtocol, fail.Cause.Group)

	d, ok := h.engine.Registry().Get(1)
	require.True(t, ok)
	assert.Equal(t, enb.StateInit, d.State, "a rejected setup on the wrong stream must not touch descriptor state")
}

func TestS1SetupRejectsCapacityOverload(t *testing.T) {
	cfg := testCfg()
	cfg.Limits.MaxENBs = 1
	h := newHarness(cfg)

	setupENB(t, h, 1)

	require.NoError(t, h.engine.OnPeerConnected(2, 4, 4))
	err := h.dispatch(t, 2, transport.StreamZero, transport.PDU{
		ProcedureCode: int(ProcedureS1Setup),
		Direction:     transport.DirectionInitiating,
		Payload:       S1SetupRequestIEs{ENBID: testENBID(2), ENBName: "overflow"},
	})
	require.NoError(t, err)

	pdu := h.lastSent(t, 2)
	assert.Equal(t, transport.DirectionUnsuccessful, pdu.Direction)
}

func TestS1SetupRejectsDuplicateENBID(t *testing.T) {
	h := newHarness(testCfg())
	setupENB(t, h, 1)

	require.NoError(t, h.engine.OnPeerConnected(2, 4, 4))
	err := h.dispatch(t, 2, transport.StreamZero, transport.PDU{
		ProcedureCode: int(ProcedureS1Setup),
		Direction:     transport.DirectionInitiating,
		Payload:       S1SetupRequestIEs{ENBID: testENBID(1), ENBName: "dup"},
	})
	require.NoError(t, err)

	pdu := h.lastSent(t, 2)
	assert.Equal(t, transport.DirectionUnsuccessful, pdu.Direction)
}

func attachUE(t *testing.T, h *testHarness, assoc enb.AssociationID, enbUEID ue.ENBUEID, mmeUEID ue.MMEUEID) {
	t.Helper()
	err := h.dispatch(t, assoc, 1, transport.PDU{
		ProcedureCode: int(ProcedureInitialUEMessage),
		Direction:     transport.DirectionInitiating,
		Payload:       InitialUEMessageIEs{ENBUEID: enbUEID, NASPDU: []byte{0x01}},
	})
	require.NoError(t, err)

	ev := <-h.sink.Events()
	require.Equal(t, mmeapp.EventInitialUEMessage, ev.Kind)
	require.False(t, ev.HasMMEUEID)

	require.NoError(t, h.engine.AssignMMEUEID(assoc, enbUEID, mmeUEID))
}

func TestInitialUEMessageCreatesReference(t *testing.T) {
	h := newHarness(testCfg())
	setupENB(t, h, 1)
	attachUE(t, h, 1, 0x1234, 42)

	ref, ok := h.engine.UEStore().LookupByMMEUEID(42)
	require.True(t, ok)
	assert.Equal(t, ue.ENBUEID(0x1234), ref.ENBUEID)
	assert.NotEqual(t, uint16(0), ref.OutStream, "outbound stream must never be 0")

	d, ok := h.engine.Registry().Get(1)
	require.True(t, ok)
	assert.Equal(t, 1, d.UECount())
}

func TestInitialUEMessageRejectsDuplicateENBUEID(t *testing.T) {
	h := newHarness(testCfg())
	setupENB(t, h, 1)
	attachUE(t, h, 1, 0x1234, 42)

	err := h.dispatch(t, 1, 1, transport.PDU{
		ProcedureCode: int(ProcedureInitialUEMessage),
		Direction:     transport.DirectionInitiating,
		Payload:       InitialUEMessageIEs{ENBUEID: 0x1234},
	})
	var coreErr *CoreError
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, ErrorIdentityMismatch, coreErr.Kind)
}

func TestResetRequestPublishesEventWithoutTearingDownUEs(t *testing.T) {
	h := newHarness(testCfg())
	setupENB(t, h, 1)
	attachUE(t, h, 1, 1, 10)
	attachUE(t, h, 1, 2, 11)

	err := h.dispatch(t, 1, transport.StreamZero, transport.PDU{
		ProcedureCode: int(ProcedureReset),
		Direction:     transport.DirectionInitiating,
		Payload:       ResetIEs{Full: true},
	})
	require.NoError(t, err)

	// The request phase must not touch the UE store or reply yet -- it
	// only moves the descriptor to RESETTING and waits for the
	// MME-app's ack via Engine.CompleteReset.
	assert.Equal(t, 2, h.engine.UEStore().Count())
	d, ok := h.engine.Registry().Get(1)
	require.True(t, ok)
	assert.Equal(t, enb.StateResetting, d.State)

	ev := <-h.sink.Events()
	require.Equal(t, mmeapp.EventResetRequired, ev.Kind)
	payload, ok := ev.Payload.(ResetRequiredPayload)
	require.True(t, ok)
	assert.True(t, payload.Full)
}

func TestResetFullTearsDownAllUEs(t *testing.T) {
	h := newHarness(testCfg())
	setupENB(t, h, 1)
	attachUE(t, h, 1, 1, 10)
	attachUE(t, h, 1, 2, 11)

	err := h.dispatch(t, 1, transport.StreamZero, transport.PDU{
		ProcedureCode: int(ProcedureReset),
		Direction:     transport.DirectionInitiating,
		Payload:       ResetIEs{Full: true},
	})
	require.NoError(t, err)
	ev := <-h.sink.Events()
	require.Equal(t, mmeapp.EventResetRequired, ev.Kind)

	require.NoError(t, h.engine.CompleteReset(1, transport.StreamZero, true, nil))

	// A full reset's teardown is reported as a batch, not one event per UE.
	dereg := <-h.sink.Events()
	require.Equal(t, mmeapp.EventPeerDeregistration, dereg.Kind)
	batch, ok := dereg.Payload.([]mmeapp.DeregisteredUE)
	require.True(t, ok)
	assert.Len(t, batch, 2)

	assert.Equal(t, 0, h.engine.UEStore().Count())
	d, ok := h.engine.Registry().Get(1)
	require.True(t, ok)
	assert.Equal(t, enb.StateReady, d.State, "reset must return the descriptor to READY")
	assert.Equal(t, 0, d.UECount())

	pdu := h.lastSent(t, 1)
	assert.Equal(t, transport.DirectionSuccessful, pdu.Direction)
	_, ok = pdu.Payload.(ResetAcknowledgeIEs)
	assert.True(t, ok)
}

func TestResetFullBatchesDeregistrationEvents(t *testing.T) {
	cfg := testCfg()
	cfg.Limits.ResetBatchSize = 1
	h := newHarness(cfg)
	setupENB(t, h, 1)
	attachUE(t, h, 1, 1, 10)
	attachUE(t, h, 1, 2, 11)

	require.NoError(t, h.dispatch(t, 1, transport.StreamZero, transport.PDU{
		ProcedureCode: int(ProcedureReset),
		Direction:     transport.DirectionInitiating,
		Payload:       ResetIEs{Full: true},
	}))
	<-h.sink.Events() // EventResetRequired

	require.NoError(t, h.engine.CompleteReset(1, transport.StreamZero, true, nil))

	seen := 0
	for i := 0; i < 2; i++ {
		ev := <-h.sink.Events()
		require.Equal(t, mmeapp.EventPeerDeregistration, ev.Kind)
		batch, ok := ev.Payload.([]mmeapp.DeregisteredUE)
		require.True(t, ok)
		seen += len(batch)
		assert.Len(t, batch, 1, "with reset_batch_size=1, each event must carry exactly one UE")
	}
	assert.Equal(t, 2, seen)
}

func TestResetPartialOverCountRejected(t *testing.T) {
	h := newHarness(testCfg())
	setupENB(t, h, 1)
	attachUE(t, h, 1, 1, 10)

	err := h.dispatch(t, 1, transport.StreamZero, transport.PDU{
		ProcedureCode: int(ProcedureReset),
		Direction:     transport.DirectionInitiating,
		Payload: ResetIEs{Full: false, Partial: []ResetUEPair{
			{MMEUEID: 10, HasMMEUEID: true},
			{MMEUEID: 11, HasMMEUEID: true},
		}},
	})
	var coreErr *CoreError
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, ErrorProtocolViolation, coreErr.Kind)

	d, ok := h.engine.Registry().Get(1)
	require.True(t, ok)
	assert.Equal(t, enb.StateReady, d.State, "a rejected reset must not leave the descriptor stuck in RESETTING")
}

func TestUEContextReleaseCommandThenComplete(t *testing.T) {
	h := newHarness(testCfg())
	setupENB(t, h, 1)
	attachUE(t, h, 1, 1, 10)

	require.NoError(t, h.engine.ReleaseCommand(1, 10, model.UpwardCauseNASDetach))

	ref, ok := h.engine.UEStore().LookupByMMEUEID(10)
	require.True(t, ok)
	assert.Equal(t, ue.StateWaitingReleaseComplete, ref.State)
	assert.True(t, ref.ReleaseTimer.Active())

	err := h.dispatch(t, 1, ref.OutStream, transport.PDU{
		ProcedureCode: int(ProcedureUEContextRelease),
		Direction:     transport.DirectionSuccessful,
		Payload:       UEContextReleaseCompleteIEs{MMEUEID: 10, ENBUEID: ref.ENBUEID},
	})
	require.NoError(t, err)

	_, ok = h.engine.UEStore().LookupByMMEUEID(10)
	assert.False(t, ok)
	d, _ := h.engine.Registry().Get(1)
	assert.Equal(t, 0, d.UECount())
}

func TestUEContextReleaseImplicitRemovesImmediately(t *testing.T) {
	h := newHarness(testCfg())
	setupENB(t, h, 1)
	attachUE(t, h, 1, 1, 10)

	require.NoError(t, h.engine.ReleaseCommand(1, 10, model.UpwardCauseImplicitRelease))

	_, ok := h.engine.UEStore().LookupByMMEUEID(10)
	assert.False(t, ok)
	d, _ := h.engine.Registry().Get(1)
	assert.Equal(t, 0, d.UECount())
}

func TestUEContextReleaseCompleteIsNoOpWhenAlreadyRemoved(t *testing.T) {
	h := newHarness(testCfg())
	setupENB(t, h, 1)
	attachUE(t, h, 1, 1, 10)

	require.NoError(t, h.engine.ReleaseCommand(1, 10, model.UpwardCauseImplicitRelease))

	err := h.dispatch(t, 1, 1, transport.PDU{
		ProcedureCode: int(ProcedureUEContextRelease),
		Direction:     transport.DirectionSuccessful,
		Payload:       UEContextReleaseCompleteIEs{MMEUEID: 10, ENBUEID: 1},
	})
	assert.NoError(t, err)
}

func TestPathSwitchMovesUEToNewAssociation(t *testing.T) {
	h := newHarness(testCfg())
	setupENB(t, h, 1)
	setupENB(t, h, 2)
	attachUE(t, h, 1, 1, 10)

	err := h.dispatch(t, 2, 1, transport.PDU{
		ProcedureCode: int(ProcedurePathSwitchRequest),
		Direction:     transport.DirectionInitiating,
		Payload:       PathSwitchRequestIEs{SourceMMEUEID: 10, NewENBUEID: 5},
	})
	require.NoError(t, err)

	ref, ok := h.engine.UEStore().LookupByMMEUEID(10)
	require.True(t, ok)
	assert.Equal(t, enb.AssociationID(2), ref.Association)
	assert.Equal(t, ue.ENBUEID(5), ref.ENBUEID)
	assert.Equal(t, ue.StateConnected, ref.State)

	d1, _ := h.engine.Registry().Get(1)
	assert.Equal(t, 0, d1.UECount())
	d2, _ := h.engine.Registry().Get(2)
	assert.Equal(t, 1, d2.UECount())
}

func TestPathSwitchUnknownSourceSendsFailure(t *testing.T) {
	h := newHarness(testCfg())
	setupENB(t, h, 1)

	err := h.dispatch(t, 1, 1, transport.PDU{
		ProcedureCode: int(ProcedurePathSwitchRequest),
		Direction:     transport.DirectionInitiating,
		Payload:       PathSwitchRequestIEs{SourceMMEUEID: 99, NewENBUEID: 5},
	})
	require.NoError(t, err)

	pdu := h.lastSent(t, 1)
	assert.Equal(t, transport.DirectionUnsuccessful, pdu.Direction)
	_, ok := pdu.Payload.(PathSwitchRequestFailureIEs)
	assert.True(t, ok)
}

func TestHandoverRequestAcknowledgeAllocationFailureSendsHandoverFailure(t *testing.T) {
	h := newHarness(testCfg())
	setupENB(t, h, 1)

	// No descriptor registered for association 2 (the handover target),
	// so allocation must fail and an upward HandoverFailure synthesized.
	err := h.dispatch(t, 2, 1, transport.PDU{
		ProcedureCode: int(ProcedureHandoverResourceAllocation),
		Direction:     transport.DirectionSuccessful,
		Payload:       HandoverRequestAcknowledgeIEs{SourceMMEUEID: 10, TargetENBUEID: 7, AdmittedERABs: []ERAB{{ERABID: 5}}},
	})
	require.Error(t, err)

	ev := <-h.sink.Events()
	require.Equal(t, mmeapp.EventHandoverFailure, ev.Kind)
	assert.Equal(t, ue.MMEUEID(10), ev.MMEUEID)
}

func TestHandoverRequestAcknowledgeEmptyAdmittedListFails(t *testing.T) {
	h := newHarness(testCfg())
	setupENB(t, h, 2)

	err := h.dispatch(t, 2, 1, transport.PDU{
		ProcedureCode: int(ProcedureHandoverResourceAllocation),
		Direction:     transport.DirectionSuccessful,
		Payload:       HandoverRequestAcknowledgeIEs{SourceMMEUEID: 10, TargetENBUEID: 7},
	})
	require.Error(t, err)

	ev := <-h.sink.Events()
	assert.Equal(t, mmeapp.EventHandoverFailure, ev.Kind)
}

func TestHandoverRequestAcknowledgeSuccessArmsCompletionTimer(t *testing.T) {
	h := newHarness(testCfg())
	setupENB(t, h, 2)

	err := h.dispatch(t, 2, 1, transport.PDU{
		ProcedureCode: int(ProcedureHandoverResourceAllocation),
		Direction:     transport.DirectionSuccessful,
		Payload: HandoverRequestAcknowledgeIEs{
			SourceMMEUEID: 10,
			TargetENBUEID: 7,
			AdmittedERABs: []ERAB{{ERABID: 5}},
		},
	})
	require.NoError(t, err)

	ref, ok := h.engine.UEStore().LookupByENBUEID(2, 7)
	require.True(t, ok)
	assert.False(t, ref.HasMMEUEID, "target-side reference must not bind MME-UE-ID until HandoverNotify")
	assert.True(t, ref.HandoverTimer.Active())

	ev := <-h.sink.Events()
	assert.Equal(t, mmeapp.EventHandoverRequestAcknowledge, ev.Kind)
}

func TestHandoverNotifyBindsMMEUEID(t *testing.T) {
	h := newHarness(testCfg())
	setupENB(t, h, 2)

	require.NoError(t, h.dispatch(t, 2, 1, transport.PDU{
		ProcedureCode: int(ProcedureHandoverResourceAllocation),
		Direction:     transport.DirectionSuccessful,
		Payload: HandoverRequestAcknowledgeIEs{
			SourceMMEUEID: 10,
			TargetENBUEID: 7,
			AdmittedERABs: []ERAB{{ERABID: 5}},
		},
	}))
	<-h.sink.Events()

	require.NoError(t, h.dispatch(t, 2, 1, transport.PDU{
		ProcedureCode: int(ProcedureHandoverNotification),
		Direction:     transport.DirectionInitiating,
		Payload:       HandoverNotifyIEs{TargetENBUEID: 7},
	}))
	<-h.sink.Events()

	require.NoError(t, h.engine.BindTargetMMEUEID(2, 7, 10))
	ref, ok := h.engine.UEStore().LookupByMMEUEID(10)
	require.True(t, ok)
	assert.Equal(t, ue.ENBUEID(7), ref.ENBUEID)
}

func TestErrorIndicationUnknownUEIsDroppedSilently(t *testing.T) {
	h := newHarness(testCfg())
	setupENB(t, h, 1)

	err := h.dispatch(t, 1, transport.StreamZero, transport.PDU{
		ProcedureCode: int(ProcedureErrorIndication),
		Direction:     transport.DirectionInitiating,
		Payload:       ErrorIndicationIEs{HasMMEUEID: true, MMEUEID: 999, Cause: model.CauseMisc(model.CauseMiscUnspecified)},
	})
	assert.NoError(t, err)
}

func TestPeerDisconnectDeregistersAllUEs(t *testing.T) {
	h := newHarness(testCfg())
	setupENB(t, h, 1)
	attachUE(t, h, 1, 1, 10)

	h.engine.OnPeerDisconnected(1)

	ev := <-h.sink.Events()
	assert.Equal(t, mmeapp.EventPeerDeregistration, ev.Kind)

	_, ok := h.engine.Registry().Get(1)
	assert.False(t, ok)
	_, ok = h.engine.UEStore().LookupByMMEUEID(10)
	assert.False(t, ok)
}
