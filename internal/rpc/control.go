package rpc

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/flywheel-ml/flywheel/internal/domain"
	"github.com/flywheel-ml/flywheel/internal/dsl"
)

func toPipelineInfo(p *domain.Pipeline) pipelineInfo {
	return pipelineInfo{
		PipelineID: p.ID, Name: p.Name, Namespace: p.Namespace,
		Status: string(p.Status), SpecYAML: p.SpecYAML, SpecHash: p.SpecHash,
		CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

// createPipeline parses+validates spec, computes the content hash, and
// inserts a Pending pipeline (spec §4.8).
func (s *Server) createPipeline(w http.ResponseWriter, r *http.Request) {
	var req createPipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if req.Name == "" {
		badRequest(w, "pipeline name is required")
		return
	}
	if _, _, err := dsl.Parse(req.SpecYAML); err != nil {
		writeError(w, err)
		return
	}
	sum := sha256.Sum256([]byte(req.SpecYAML))

	p := &domain.Pipeline{
		Name: req.Name, Namespace: req.Namespace, SpecYAML: req.SpecYAML,
		SpecHash: hex.EncodeToString(sum[:]), Status: domain.PipelineStatusPending,
	}
	created, err := s.store.CreatePipeline(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPipelineInfo(created))
}

// updatePipeline re-parses and replaces a pipeline's spec, recomputing its
// hash; status is left untouched (only Enable/Disable change it).
func (s *Server) updatePipeline(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req createPipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	existing, err := s.store.GetPipeline(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, _, err := dsl.Parse(req.SpecYAML); err != nil {
		writeError(w, err)
		return
	}
	sum := sha256.Sum256([]byte(req.SpecYAML))
	existing.SpecYAML = req.SpecYAML
	existing.SpecHash = hex.EncodeToString(sum[:])

	// Persistence has no generic pipeline-update method beyond status; the
	// spec row is replaced by delete+recreate under the same name to keep
	// the store's surface minimal (create is the only writer of SpecYAML).
	if err := s.store.DeletePipeline(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	replacement := &domain.Pipeline{
		Name: existing.Name, Namespace: existing.Namespace, SpecYAML: existing.SpecYAML,
		SpecHash: existing.SpecHash, Status: existing.Status,
	}
	updated, err := s.store.CreatePipeline(r.Context(), replacement)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPipelineInfo(updated))
}

func (s *Server) deletePipeline(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.store.DeletePipeline(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) getPipeline(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, err := s.store.GetPipeline(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPipelineInfo(p))
}

// listPipelines lists every pipeline in an optional namespace. The result
// is not bounded: neither this handler nor the store applies a limit, and
// there is no cursor.
func (s *Server) listPipelines(w http.ResponseWriter, r *http.Request) {
	namespace := r.URL.Query().Get("namespace")
	pipelines, err := s.store.ListPipelines(r.Context(), namespace)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]pipelineInfo, len(pipelines))
	for i, p := range pipelines {
		out[i] = toPipelineInfo(p)
	}
	writeJSON(w, http.StatusOK, listPipelinesResponse{Pipelines: out})
}

func (s *Server) enablePipeline(w http.ResponseWriter, r *http.Request) {
	s.setPipelineStatus(w, r, domain.PipelineStatusRunning)
}

func (s *Server) disablePipeline(w http.ResponseWriter, r *http.Request) {
	s.setPipelineStatus(w, r, domain.PipelineStatusStopped)
}

func (s *Server) setPipelineStatus(w http.ResponseWriter, r *http.Request, status domain.PipelineStatus) {
	id := mux.Vars(r)["id"]
	if err := s.store.UpdatePipelineStatus(r.Context(), id, status); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, enableDisableResponse{Success: true, Status: string(status)})
}

func toModelInfo(m *domain.ModelVersion) modelInfo {
	info := modelInfo{
		ModelID: m.ModelID, Version: m.Version, Type: string(m.Type),
		Endpoint: m.Endpoint, Status: string(m.Status),
	}
	if m.Accuracy != nil {
		info.Accuracy = *m.Accuracy
	}
	if m.P99LatencyMs != nil {
		info.LatencyP99Ms = *m.P99LatencyMs
	}
	return info
}

func (s *Server) registerModel(w http.ResponseWriter, r *http.Request) {
	var req registerModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	if req.ModelID == "" {
		badRequest(w, "model id is required")
		return
	}
	mv := &domain.ModelVersion{
		ModelID: req.ModelID, Version: req.Version, Type: domain.ModelType(req.Type),
		Endpoint: req.Endpoint, Status: domain.ModelVersionStatusPending,
	}
	if err := s.store.CreateModelVersion(r.Context(), mv); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toModelInfo(mv))
}

// unregisterModel deactivates a model version rather than deleting it:
// predictions already recorded against it keep resolving to a real
// model_versions row when later read back.
func (s *Server) unregisterModel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	version := r.URL.Query().Get("version")
	if err := s.store.UpdateModelVersionStatus(r.Context(), id, version, domain.ModelVersionStatusDeprecated); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) getModel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	mv, err := s.store.GetActiveModelVersion(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toModelInfo(mv))
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("model_id")
	versions, err := s.store.ListModelVersions(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]modelInfo, len(versions))
	for i, mv := range versions {
		out[i] = toModelInfo(mv)
	}
	writeJSON(w, http.StatusOK, listModelsResponse{Models: out})
}
