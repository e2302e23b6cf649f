package admin

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/your-org/mme-s1ap-core/internal/ue"
)

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleListENBs handles GET /admin/enbs.
func (s *Server) handleListENBs(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.Registry().Snapshot())
}

// handleListUEs handles GET /admin/ues.
func (s *Server) handleListUEs(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.UEStore().Snapshot())
}

// handleGetUE handles GET /admin/ues/{mmeUeId}.
func (s *Server) handleGetUE(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "mmeUeId")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid mmeUeId", err)
		return
	}

	ref, ok := s.engine.UEStore().LookupByMMEUEID(ue.MMEUEID(id))
	if !ok {
		s.respondError(w, http.StatusNotFound, "no such MME-UE-ID", nil)
		return
	}
	s.respondJSON(w, http.StatusOK, ref)
}

// handleGetStats handles GET /admin/stats. Each response carries a
// fresh snapshot ID so a caller polling repeatedly can tell two
// responses apart even when the counters happen to match.
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"snapshot_id":         uuid.New().String(),
		"enb_count":           s.engine.Registry().Count(),
		"ue_count":            s.engine.UEStore().Count(),
		"esm_procedure_count": s.esm.Count(),
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode admin JSON response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"status": status,
		"title":  message,
	}
	if err != nil {
		response["detail"] = err.Error()
	}
	s.respondJSON(w, status, response)
}
