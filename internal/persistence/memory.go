package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flywheel-ml/flywheel/internal/domain"
)

// MemoryStore is an in-memory Store for tests and standalone/local-mode
// runs, grounded on the teacher's core.MemoryStore: a single RWMutex
// guarding a handful of maps, no background eviction beyond what callers
// trigger explicitly.
type MemoryStore struct {
	mu sync.RWMutex

	pipelines     map[string]*domain.Pipeline
	pipelineRuns  map[string][]*domain.PipelineRun
	modelVersions map[string][]*domain.ModelVersion
	predictions   map[string]*domain.Prediction
	feedback      map[string]*domain.Feedback
	driftEvents   map[string]*domain.DriftEvent
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pipelines:     make(map[string]*domain.Pipeline),
		pipelineRuns:  make(map[string][]*domain.PipelineRun),
		modelVersions: make(map[string][]*domain.ModelVersion),
		predictions:   make(map[string]*domain.Prediction),
		feedback:      make(map[string]*domain.Feedback),
		driftEvents:   make(map[string]*domain.DriftEvent),
	}
}

func (m *MemoryStore) Close() error { return nil }

// Ping always succeeds: the in-memory store has no external connection.
func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

// --- PipelineStore ---

func (m *MemoryStore) CreatePipeline(ctx context.Context, p *domain.Pipeline) (*domain.Pipeline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.pipelines {
		if existing.Namespace == p.Namespace && existing.Name == p.Name {
			cp := *existing
			return &cp, nil
		}
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	m.pipelines[p.ID] = &cp
	out := cp
	return &out, nil
}

func (m *MemoryStore) GetPipeline(ctx context.Context, id string) (*domain.Pipeline, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pipelines[id]
	if !ok {
		return nil, domain.NewError("persistence.GetPipeline", "not_found", domain.ErrNotFound).WithID(id)
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) GetPipelineByName(ctx context.Context, namespace, name string) (*domain.Pipeline, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.pipelines {
		if p.Namespace == namespace && p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.NewError("persistence.GetPipelineByName", "not_found", domain.ErrNotFound).WithID(namespace + "/" + name)
}

func (m *MemoryStore) ListPipelines(ctx context.Context, namespace string) ([]*domain.Pipeline, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Pipeline, 0, len(m.pipelines))
	for _, p := range m.pipelines {
		if namespace == "" || p.Namespace == namespace {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) UpdatePipelineStatus(ctx context.Context, id string, status domain.PipelineStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pipelines[id]
	if !ok {
		return domain.NewError("persistence.UpdatePipelineStatus", "not_found", domain.ErrNotFound).WithID(id)
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) DeletePipeline(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pipelines[id]; !ok {
		return domain.NewError("persistence.DeletePipeline", "not_found", domain.ErrNotFound).WithID(id)
	}
	delete(m.pipelines, id)
	delete(m.pipelineRuns, id)
	for pid, p := range m.predictions {
		if p.PipelineID == id {
			delete(m.predictions, pid)
		}
	}
	for eid, e := range m.driftEvents {
		if e.PipelineID == id {
			delete(m.driftEvents, eid)
		}
	}
	return nil
}

func (m *MemoryStore) CreatePipelineRun(ctx context.Context, run *domain.PipelineRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	cp := *run
	m.pipelineRuns[run.PipelineID] = append(m.pipelineRuns[run.PipelineID], &cp)
	return nil
}

func (m *MemoryStore) UpdatePipelineRun(ctx context.Context, run *domain.PipelineRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	runs := m.pipelineRuns[run.PipelineID]
	for i, r := range runs {
		if r.ID == run.ID {
			cp := *run
			runs[i] = &cp
			return nil
		}
	}
	return domain.NewError("persistence.UpdatePipelineRun", "not_found", domain.ErrNotFound).WithID(run.ID)
}

func (m *MemoryStore) ListPipelineRuns(ctx context.Context, pipelineID string, limit int) ([]*domain.PipelineRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	runs := m.pipelineRuns[pipelineID]
	out := make([]*domain.PipelineRun, len(runs))
	copy(out, runs)
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- ModelStore ---

func (m *MemoryStore) CreateModelVersion(ctx context.Context, mv *domain.ModelVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *mv
	m.modelVersions[mv.ModelID] = append(m.modelVersions[mv.ModelID], &cp)
	return nil
}

func (m *MemoryStore) GetActiveModelVersion(ctx context.Context, modelID string) (*domain.ModelVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions := m.modelVersions[modelID]
	var latest *domain.ModelVersion
	for _, v := range versions {
		if v.Status != domain.ModelVersionStatusActive {
			continue
		}
		if latest == nil || (v.DeployedAt != nil && (latest.DeployedAt == nil || v.DeployedAt.After(*latest.DeployedAt))) {
			latest = v
		}
	}
	if latest == nil {
		return nil, domain.NewError("persistence.GetActiveModelVersion", "not_found", domain.ErrModelNotFound).WithID(modelID)
	}
	cp := *latest
	return &cp, nil
}

func (m *MemoryStore) ListModelVersions(ctx context.Context, modelID string) ([]*domain.ModelVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions := m.modelVersions[modelID]
	out := make([]*domain.ModelVersion, len(versions))
	copy(out, versions)
	return out, nil
}

func (m *MemoryStore) UpdateModelVersionStatus(ctx context.Context, modelID, version string, status domain.ModelVersionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.modelVersions[modelID] {
		if v.Version == version {
			v.Status = status
			return nil
		}
	}
	return domain.NewError("persistence.UpdateModelVersionStatus", "not_found", domain.ErrModelNotFound).WithID(modelID + "/" + version)
}

// --- PredictionStore ---

func (m *MemoryStore) CreatePrediction(ctx context.Context, p *domain.Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	cp := *p
	m.predictions[p.ID] = &cp
	return nil
}

func (m *MemoryStore) GetPrediction(ctx context.Context, id string) (*domain.Prediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.predictions[id]
	if !ok {
		return nil, domain.NewError("persistence.GetPrediction", "not_found", domain.ErrPredictionNotFound).WithID(id)
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) LinkFeedback(ctx context.Context, predictionID, feedbackID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.predictions[predictionID]
	if !ok {
		return domain.NewError("persistence.LinkFeedback", "not_found", domain.ErrPredictionNotFound).WithID(predictionID)
	}
	if p.FeedbackID != nil {
		return domain.NewError("persistence.LinkFeedback", "conflict", domain.ErrConflict).WithID(predictionID)
	}
	id := feedbackID
	p.FeedbackID = &id
	return nil
}

// --- FeedbackStore ---

func (m *MemoryStore) CreateFeedback(ctx context.Context, f *domain.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	cp := *f
	m.feedback[f.ID] = &cp
	return nil
}

func (m *MemoryStore) GetFeedback(ctx context.Context, id string) (*domain.Feedback, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.feedback[id]
	if !ok {
		return nil, domain.NewError("persistence.GetFeedback", "not_found", domain.ErrFeedbackNotFound).WithID(id)
	}
	cp := *f
	return &cp, nil
}

func (m *MemoryStore) ListUnexported(ctx context.Context, limit int) ([]*domain.Feedback, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Feedback, 0)
	for _, f := range m.feedback {
		if !f.Exported {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.Before(out[j].ReceivedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) MarkExported(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if f, ok := m.feedback[id]; ok {
			f.Exported = true
		}
	}
	return nil
}

// --- DriftStore ---

func (m *MemoryStore) CreateDriftEvent(ctx context.Context, e *domain.DriftEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	cp := *e
	m.driftEvents[e.ID] = &cp
	return nil
}

func (m *MemoryStore) GetOpenDriftEvent(ctx context.Context, pipelineID, modelID string) (*domain.DriftEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.driftEvents {
		if e.PipelineID == pipelineID && e.ModelID == modelID && e.IsOpen() {
			cp := *e
			return &cp, nil
		}
	}
	return nil, domain.NewError("persistence.GetOpenDriftEvent", "not_found", domain.ErrNotFound).WithID(pipelineID + "/" + modelID)
}

func (m *MemoryStore) ResolveDriftEvent(ctx context.Context, id string, resolvedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.driftEvents[id]
	if !ok {
		return domain.NewError("persistence.ResolveDriftEvent", "not_found", domain.ErrNotFound).WithID(id)
	}
	e.ResolvedAt = &resolvedAt
	return nil
}

func (m *MemoryStore) ListDriftEvents(ctx context.Context, pipelineID string, limit int) ([]*domain.DriftEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.DriftEvent, 0)
	for _, e := range m.driftEvents {
		if e.PipelineID == pipelineID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.After(out[j].DetectedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
