package s1ap

import (
	"github.com/your-org/mme-s1ap-core/internal/enb"
	"github.com/your-org/mme-s1ap-core/internal/mmeapp"
	"github.com/your-org/mme-s1ap-core/internal/model"
	"github.com/your-org/mme-s1ap-core/internal/ue"
)

// removeAndPublishBatched tears down every UE reference attached to an
// association, publishing one EventPeerDeregistration per chunk of at
// most cfg.Limits.ResetBatchSize UEs rather than one event per UE
// (spec.md section 4.1: "iterate UEs in batches of N (default 256) and
// emit one deregistration event per batch"). Used by both
// Engine.OnPeerDisconnected and a full Reset's teardown.
func (e *Engine) removeAndPublishBatched(assoc enb.AssociationID) {
	refs := e.ues.ForAssociation(assoc)
	if len(refs) == 0 {
		return
	}

	batchSize := e.cfg.Limits.ResetBatchSize
	if batchSize <= 0 {
		batchSize = len(refs)
	}
	enbID := e.enbIDFor(assoc)

	for start := 0; start < len(refs); start += batchSize {
		end := start + batchSize
		if end > len(refs) {
			end = len(refs)
		}
		chunk := refs[start:end]

		batch := make([]mmeapp.DeregisteredUE, 0, len(chunk))
		for _, ref := range chunk {
			batch = append(batch, mmeapp.DeregisteredUE{
				MMEUEID:    ref.MMEUEID,
				HasMMEUEID: ref.HasMMEUEID,
				ENBUEID:    ref.ENBUEID,
			})
		}
		e.sink.Publish(mmeapp.Event{
			Kind:        mmeapp.EventPeerDeregistration,
			ENBID:       enbID,
			Association: assoc,
			Payload:     batch,
		})

		for _, ref := range chunk {
			e.ues.Remove(ref)
			e.enbs.DecUECount(assoc)
		}
	}
}

// enbIDFor returns the eNodeB ID owning an association, or the zero
// value if the descriptor has already been removed.
func (e *Engine) enbIDFor(assoc enb.AssociationID) model.ENBID {
	if d, ok := e.enbs.Get(assoc); ok {
		return d.ENBID
	}
	return model.ENBID{}
}

// publishPeerDeregistration reports a single UE reference dropped by a
// partial Reset's named pair list (spec.md section 4.1/4.3). Carries
// the same []mmeapp.DeregisteredUE payload shape as
// removeAndPublishBatched's batches, so a consumer of
// EventPeerDeregistration never needs to branch on how many UEs were
// torn down at once.
func (e *Engine) publishPeerDeregistration(assoc enb.AssociationID, ref *ue.Reference) {
	e.sink.Publish(mmeapp.Event{
		Kind:        mmeapp.EventPeerDeregistration,
		ENBID:       e.enbIDFor(assoc),
		Association: assoc,
		Payload: []mmeapp.DeregisteredUE{{
			MMEUEID:    ref.MMEUEID,
			HasMMEUEID: ref.HasMMEUEID,
			ENBUEID:    ref.ENBUEID,
		}},
	})
}
