package s1ap

import (
	"github.com/your-org/mme-s1ap-core/internal/model"
	"github.com/your-org/mme-s1ap-core/internal/transport"
	"github.com/your-org/mme-s1ap-core/internal/ue"
)

// The structs below are the decoded-IE payloads this core exchanges
// with the Codec collaborator (spec.md section 6). Every top-level
// message payload type here (the *IEs structs) is registered with
// transport.RegisterPayloadType in init() so tests can
// round-trip them through transport.FakeCodec.

// S1SetupRequestIEs is the decoded initiating S1Setup message.
type S1SetupRequestIEs struct {
	ENBID          model.ENBID
	ENBName        string
	DefaultDRX     uint8
	SupportedTAs   []model.TAI
}

// S1SetupResponseIEs is the successful S1Setup outcome.
type S1SetupResponseIEs struct {
	ServedGUMMEIs    []model.GUMMEI
	RelativeCapacity uint8
}

// S1SetupFailureIEs is the unsuccessful S1Setup outcome.
type S1SetupFailureIEs struct {
	Cause      model.Cause
	TimeToWait int // seconds, 0 if absent
}

// InitialUEMessageIEs is the decoded initiating InitialUEMessage: the
// first message an eNodeB sends for a UE with no S1AP reference yet
// (spec.md §3/§4.2's "created on first initial-UE message"). It
// carries no MME-UE-ID -- the MME-app allocates and binds one via
// Engine.AssignMMEUEID after seeing the forwarded event.
type InitialUEMessageIEs struct {
	ENBUEID ue.ENBUEID
	NASPDU  []byte
	TAI     model.TAI
	ECGI    model.ECGI
}

// ResetIEs is the decoded initiating Reset message. Full is true for a
// reset of every UE of this eNodeB; otherwise Partial lists the
// MME-UE-ID/eNB-UE-ID pairs to reset.
type ResetIEs struct {
	Full    bool
	Partial []ResetUEPair
}

// ResetUEPair identifies one UE within a partial reset list. Either ID
// may be absent (spec.md section 9's Open Question).
type ResetUEPair struct {
	MMEUEID    ue.MMEUEID
	HasMMEUEID bool
	ENBUEID    ue.ENBUEID
	HasENBUEID bool
}

// ResetAcknowledgeIEs is the successful Reset outcome, echoing the
// pairs the upper layer actually acknowledged.
type ResetAcknowledgeIEs struct {
	Acknowledged []ResetUEPair
}

// ErrorIndicationIEs is the decoded ErrorIndication message.
type ErrorIndicationIEs struct {
	MMEUEID    ue.MMEUEID
	HasMMEUEID bool
	ENBUEID    ue.ENBUEID
	HasENBUEID bool
	Cause      model.Cause
}

// InitialContextSetupResponseIEs is the successful InitialContextSetup
// outcome.
type InitialContextSetupResponseIEs struct {
	MMEUEID      ue.MMEUEID
	ENBUEID      ue.ENBUEID
	AdmittedERABs []ERAB
}

// ERAB describes one admitted or released E-RAB (spec.md section 4.3).
type ERAB struct {
	ERABID               uint8
	GTPTEID              uint32 // network byte order at the wire boundary; host order here
	TransportLayerAddress []byte
	Cause                *model.Cause // set for release/failure outcomes
}

// InitialContextSetupFailureIEs is the unsuccessful InitialContextSetup
// outcome.
type InitialContextSetupFailureIEs struct {
	MMEUEID ue.MMEUEID
	ENBUEID ue.ENBUEID
	Cause   model.Cause
}

// UEContextReleaseRequestIEs is the peer-initiated release request.
type UEContextReleaseRequestIEs struct {
	MMEUEID ue.MMEUEID
	ENBUEID ue.ENBUEID
	Cause   model.Cause
}

// UEContextReleaseCommandIEs is the MME-originated release command.
type UEContextReleaseCommandIEs struct {
	MMEUEID ue.MMEUEID
	ENBUEID ue.ENBUEID
	Cause   model.Cause
}

// UEContextReleaseCompleteIEs is the peer's release-complete outcome.
type UEContextReleaseCompleteIEs struct {
	MMEUEID ue.MMEUEID
	ENBUEID ue.ENBUEID
}

// PathSwitchRequestIEs is the decoded initiating PathSwitchRequest.
type PathSwitchRequestIEs struct {
	SourceMMEUEID ue.MMEUEID
	NewENBUEID    ue.ENBUEID
	ERABsToSwitch []ERAB
	TAI           model.TAI
	ECGI          model.ECGI
}

// PathSwitchRequestFailureIEs is the unsuccessful PathSwitchRequest outcome.
type PathSwitchRequestFailureIEs struct {
	MMEUEID ue.MMEUEID
	Cause   model.Cause
}

// HandoverRequiredIEs is the decoded initiating HandoverPreparation
// message (source-side "HandoverRequired" in 3GPP naming).
type HandoverRequiredIEs struct {
	MMEUEID          ue.MMEUEID
	ENBUEID          ue.ENBUEID
	TargetID         model.ENBID
	SelectedTAI      model.TAI
	Cause            model.Cause
	SourceToTarget   []byte // opaque transparent container
}

// HandoverCancelIEs is the decoded initiating HandoverCancel message.
type HandoverCancelIEs struct {
	MMEUEID ue.MMEUEID
	ENBUEID ue.ENBUEID
	Cause   model.Cause
}

// StatusTransferBearer is one Bearers-Subject-To-Status-Transfer item.
type StatusTransferBearer struct {
	ERABID             uint8
	UplinkCOUNT        uint32 // HFN<<12 | SN, or similar packed form
	DownlinkCOUNT      uint32
	HasReceiveStatus   bool
	ReceiveStatusBitmap []byte
}

// ENBStatusTransferIEs is the decoded initiating eNBStatusTransfer message.
type ENBStatusTransferIEs struct {
	MMEUEID ue.MMEUEID
	ENBUEID ue.ENBUEID
	Bearers []StatusTransferBearer
}

// HandoverRequestAcknowledgeIEs is the successful
// HandoverResourceAllocation outcome at the target eNodeB.
type HandoverRequestAcknowledgeIEs struct {
	SourceMMEUEID  ue.MMEUEID
	TargetENBUEID  ue.ENBUEID
	AdmittedERABs  []ERAB
	TargetToSource []byte
}

// HandoverFailureIEs is the unsuccessful HandoverResourceAllocation
// outcome at the target eNodeB.
type HandoverFailureIEs struct {
	SourceMMEUEID ue.MMEUEID
	Cause         model.Cause
}

// HandoverNotifyIEs is the decoded initiating HandoverNotification message.
type HandoverNotifyIEs struct {
	TargetENBUEID ue.ENBUEID
	TAI           model.TAI
	ECGI          model.ECGI
}

// UECapabilityInfoIndicationIEs carries UE radio capability info,
// forwarded upward without any state change (spec.md section 11 of
// SPEC_FULL.md, grounded on the original source's
// s1ap_mme_handle_ue_cap_indication).
type UECapabilityInfoIndicationIEs struct {
	MMEUEID        ue.MMEUEID
	ENBUEID        ue.ENBUEID
	RadioCapability []byte
}

// ERABSetupResponseIEs / ERABSetupFailureIEs / ERABReleaseResponseIEs /
// ERABReleaseIndicationIEs carry the per-E-RAB setup/release outcomes
// the original source handles in s1ap_mme_handle_erab_setup_response
// et al. (SPEC_FULL.md section 11 supplement).
type ERABSetupResponseIEs struct {
	MMEUEID ue.MMEUEID
	ENBUEID ue.ENBUEID
	Setup   []ERAB
	Failed  []ERAB
}

type ERABSetupFailureIEs struct {
	MMEUEID ue.MMEUEID
	ENBUEID ue.ENBUEID
	Failed  []ERAB
}

type ERABReleaseResponseIEs struct {
	MMEUEID ue.MMEUEID
	ENBUEID ue.ENBUEID
	Released []ERAB
	Failed   []ERAB
}

type ERABReleaseIndicationIEs struct {
	MMEUEID  ue.MMEUEID
	ENBUEID  ue.ENBUEID
	Released []ERAB
}

func init() {
	for _, v := range []any{
		S1SetupRequestIEs{}, S1SetupResponseIEs{}, S1SetupFailureIEs{},
		InitialUEMessageIEs{},
		ResetIEs{}, ResetAcknowledgeIEs{}, ErrorIndicationIEs{},
		InitialContextSetupResponseIEs{}, InitialContextSetupFailureIEs{},
		UEContextReleaseRequestIEs{}, UEContextReleaseCommandIEs{}, UEContextReleaseCompleteIEs{},
		PathSwitchRequestIEs{}, PathSwitchRequestFailureIEs{},
		HandoverRequiredIEs{}, HandoverCancelIEs{}, ENBStatusTransferIEs{},
		HandoverRequestAcknowledgeIEs{}, HandoverFailureIEs{}, HandoverNotifyIEs{},
		UECapabilityInfoIndicationIEs{},
		ERABSetupResponseIEs{}, ERABSetupFailureIEs{}, ERABReleaseResponseIEs{}, ERABReleaseIndicationIEs{},
	} {
		transport.RegisterPayloadType(v)
	}
}
