package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/flywheel-ml/flywheel/internal/domain"
)

// PostgresStore is the production Store, backed by Postgres through the
// pgx driver registered under database/sql and queried via sqlx, the way
// the pack's jackc/pgx + jmoiron/sqlx combination is used together in
// integration-test setup code (`sqlx.Connect("pgx", dsn)`).
type PostgresStore struct {
	db *sqlx.DB
}

// OpenPostgresStore connects to dsn and configures the pool.
func OpenPostgresStore(ctx context.Context, dsn string, maxOpenConns, maxIdleConns int) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, domain.NewError("persistence.OpenPostgresStore", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

// Ping checks the pool's backing connection is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return domain.NewError("persistence.Ping", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	return nil
}

// --- row models ---

type pipelineRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Namespace string    `db:"namespace"`
	SpecYAML  string    `db:"spec_yaml"`
	SpecHash  string    `db:"spec_hash"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r pipelineRow) toDomain() *domain.Pipeline {
	return &domain.Pipeline{
		ID: r.ID, Name: r.Name, Namespace: r.Namespace, SpecYAML: r.SpecYAML,
		SpecHash: r.SpecHash, Status: domain.PipelineStatus(r.Status),
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

// --- PipelineStore ---

func (s *PostgresStore) CreatePipeline(ctx context.Context, p *domain.Pipeline) (*domain.Pipeline, error) {
	const q = `
		INSERT INTO pipelines (id, name, namespace, spec_yaml, spec_hash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (namespace, name) DO UPDATE SET namespace = pipelines.namespace
		RETURNING id, name, namespace, spec_yaml, spec_hash, status, created_at, updated_at`

	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	var row pipelineRow
	if err := s.db.GetContext(ctx, &row, q, id, p.Name, p.Namespace, p.SpecYAML, p.SpecHash, string(p.Status)); err != nil {
		return nil, domain.NewError("persistence.CreatePipeline", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	return row.toDomain(), nil
}

func (s *PostgresStore) GetPipeline(ctx context.Context, id string) (*domain.Pipeline, error) {
	const q = `SELECT id, name, namespace, spec_yaml, spec_hash, status, created_at, updated_at FROM pipelines WHERE id = $1`
	var row pipelineRow
	if err := s.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, wrapNotFound("persistence.GetPipeline", domain.ErrNotFound, id, err)
	}
	return row.toDomain(), nil
}

func (s *PostgresStore) GetPipelineByName(ctx context.Context, namespace, name string) (*domain.Pipeline, error) {
	const q = `SELECT id, name, namespace, spec_yaml, spec_hash, status, created_at, updated_at FROM pipelines WHERE namespace = $1 AND name = $2`
	var row pipelineRow
	if err := s.db.GetContext(ctx, &row, q, namespace, name); err != nil {
		return nil, wrapNotFound("persistence.GetPipelineByName", domain.ErrNotFound, namespace+"/"+name, err)
	}
	return row.toDomain(), nil
}

func (s *PostgresStore) ListPipelines(ctx context.Context, namespace string) ([]*domain.Pipeline, error) {
	const q = `SELECT id, name, namespace, spec_yaml, spec_hash, status, created_at, updated_at FROM pipelines
		WHERE ($1 = '' OR namespace = $1) ORDER BY name`
	var rows []pipelineRow
	if err := s.db.SelectContext(ctx, &rows, q, namespace); err != nil {
		return nil, domain.NewError("persistence.ListPipelines", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	out := make([]*domain.Pipeline, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *PostgresStore) UpdatePipelineStatus(ctx context.Context, id string, status domain.PipelineStatus) error {
	const q = `UPDATE pipelines SET status = $2, updated_at = now() WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, id, string(status))
	if err != nil {
		return domain.NewError("persistence.UpdatePipelineStatus", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	return checkRowsAffected("persistence.UpdatePipelineStatus", domain.ErrNotFound, id, res)
}

func (s *PostgresStore) DeletePipeline(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pipelines WHERE id = $1`, id)
	if err != nil {
		return domain.NewError("persistence.DeletePipeline", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	return checkRowsAffected("persistence.DeletePipeline", domain.ErrNotFound, id, res)
}

func (s *PostgresStore) CreatePipelineRun(ctx context.Context, run *domain.PipelineRun) error {
	const q = `
		INSERT INTO pipeline_runs (id, pipeline_id, status, records_processed, records_failed, error_message, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, q, run.ID, run.PipelineID, string(run.Status),
		run.RecordsProcessed, run.RecordsFailed, run.ErrorMessage, run.StartedAt, run.EndedAt)
	if err != nil {
		return domain.NewError("persistence.CreatePipelineRun", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	return nil
}

func (s *PostgresStore) UpdatePipelineRun(ctx context.Context, run *domain.PipelineRun) error {
	const q = `
		UPDATE pipeline_runs SET status = $2, records_processed = $3, records_failed = $4,
			error_message = $5, ended_at = $6 WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, run.ID, string(run.Status), run.RecordsProcessed,
		run.RecordsFailed, run.ErrorMessage, run.EndedAt)
	if err != nil {
		return domain.NewError("persistence.UpdatePipelineRun", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	return checkRowsAffected("persistence.UpdatePipelineRun", domain.ErrNotFound, run.ID, res)
}

func (s *PostgresStore) ListPipelineRuns(ctx context.Context, pipelineID string, limit int) ([]*domain.PipelineRun, error) {
	const q = `
		SELECT id, pipeline_id, status, records_processed, records_failed, error_message, started_at, ended_at
		FROM pipeline_runs WHERE pipeline_id = $1 ORDER BY started_at DESC LIMIT $2`
	type row struct {
		ID               string     `db:"id"`
		PipelineID       string     `db:"pipeline_id"`
		Status           string     `db:"status"`
		RecordsProcessed int64      `db:"records_processed"`
		RecordsFailed    int64      `db:"records_failed"`
		ErrorMessage     string     `db:"error_message"`
		StartedAt        time.Time  `db:"started_at"`
		EndedAt          *time.Time `db:"ended_at"`
	}
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, q, pipelineID, limitOrAll(limit)); err != nil {
		return nil, domain.NewError("persistence.ListPipelineRuns", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	out := make([]*domain.PipelineRun, len(rows))
	for i, r := range rows {
		out[i] = &domain.PipelineRun{
			ID: r.ID, PipelineID: r.PipelineID, Status: domain.PipelineRunStatus(r.Status),
			RecordsProcessed: r.RecordsProcessed, RecordsFailed: r.RecordsFailed,
			ErrorMessage: r.ErrorMessage, StartedAt: r.StartedAt, EndedAt: r.EndedAt,
		}
	}
	return out, nil
}

// --- ModelStore ---

func (s *PostgresStore) CreateModelVersion(ctx context.Context, mv *domain.ModelVersion) error {
	const q = `
		INSERT INTO model_versions (model_id, version, type, endpoint, status, accuracy, p99_latency_ms, deployed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (model_id, version) DO UPDATE SET status = EXCLUDED.status, endpoint = EXCLUDED.endpoint`
	_, err := s.db.ExecContext(ctx, q, mv.ModelID, mv.Version, string(mv.Type), mv.Endpoint,
		string(mv.Status), mv.Accuracy, mv.P99LatencyMs, mv.DeployedAt)
	if err != nil {
		return domain.NewError("persistence.CreateModelVersion", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	return nil
}

type modelVersionRow struct {
	ModelID      string     `db:"model_id"`
	Version      string     `db:"version"`
	Type         string     `db:"type"`
	Endpoint     string     `db:"endpoint"`
	Status       string     `db:"status"`
	Accuracy     *float64   `db:"accuracy"`
	P99LatencyMs *int64     `db:"p99_latency_ms"`
	DeployedAt   *time.Time `db:"deployed_at"`
	CreatedAt    time.Time  `db:"created_at"`
}

func (r modelVersionRow) toDomain() *domain.ModelVersion {
	return &domain.ModelVersion{
		ModelID: r.ModelID, Version: r.Version, Type: domain.ModelType(r.Type),
		Endpoint: r.Endpoint, Status: domain.ModelVersionStatus(r.Status),
		Accuracy: r.Accuracy, P99LatencyMs: r.P99LatencyMs, DeployedAt: r.DeployedAt, CreatedAt: r.CreatedAt,
	}
}

func (s *PostgresStore) GetActiveModelVersion(ctx context.Context, modelID string) (*domain.ModelVersion, error) {
	const q = `
		SELECT model_id, version, type, endpoint, status, accuracy, p99_latency_ms, deployed_at, created_at
		FROM model_versions WHERE model_id = $1 AND status = 'active'
		ORDER BY deployed_at DESC NULLS LAST LIMIT 1`
	var row modelVersionRow
	if err := s.db.GetContext(ctx, &row, q, modelID); err != nil {
		return nil, wrapNotFound("persistence.GetActiveModelVersion", domain.ErrModelNotFound, modelID, err)
	}
	return row.toDomain(), nil
}

func (s *PostgresStore) ListModelVersions(ctx context.Context, modelID string) ([]*domain.ModelVersion, error) {
	const q = `
		SELECT model_id, version, type, endpoint, status, accuracy, p99_latency_ms, deployed_at, created_at
		FROM model_versions WHERE model_id = $1 ORDER BY created_at DESC`
	var rows []modelVersionRow
	if err := s.db.SelectContext(ctx, &rows, q, modelID); err != nil {
		return nil, domain.NewError("persistence.ListModelVersions", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	out := make([]*domain.ModelVersion, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *PostgresStore) UpdateModelVersionStatus(ctx context.Context, modelID, version string, status domain.ModelVersionStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE model_versions SET status = $3 WHERE model_id = $1 AND version = $2`,
		modelID, version, string(status))
	if err != nil {
		return domain.NewError("persistence.UpdateModelVersionStatus", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	return checkRowsAffected("persistence.UpdateModelVersionStatus", domain.ErrModelNotFound, modelID+"/"+version, res)
}

// --- PredictionStore ---

func (s *PostgresStore) CreatePrediction(ctx context.Context, p *domain.Prediction) error {
	resultJSON, err := domain.MarshalPredictionResult(p.Result)
	if err != nil {
		return domain.NewError("persistence.CreatePrediction", "serialization", err)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	const q = `
		INSERT INTO predictions (id, pipeline_id, model_id, model_version, features_json, result_json,
			features_hash, latency_us, created_at, feedback_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), $9)`
	_, err = s.db.ExecContext(ctx, q, p.ID, p.PipelineID, p.ModelID, p.ModelVersion,
		[]byte(p.FeaturesJSON), resultJSON, p.FeaturesHash, p.LatencyUs, p.FeedbackID)
	if err != nil {
		return domain.NewError("persistence.CreatePrediction", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	return nil
}

func (s *PostgresStore) GetPrediction(ctx context.Context, id string) (*domain.Prediction, error) {
	type row struct {
		ID           string          `db:"id"`
		PipelineID   string          `db:"pipeline_id"`
		ModelID      string          `db:"model_id"`
		ModelVersion string          `db:"model_version"`
		FeaturesJSON json.RawMessage `db:"features_json"`
		ResultJSON   json.RawMessage `db:"result_json"`
		FeaturesHash string          `db:"features_hash"`
		LatencyUs    int64           `db:"latency_us"`
		CreatedAt    time.Time       `db:"created_at"`
		FeedbackID   *string         `db:"feedback_id"`
	}
	var r row
	const q = `
		SELECT id, pipeline_id, model_id, model_version, features_json, result_json, features_hash,
			latency_us, created_at, feedback_id
		FROM predictions WHERE id = $1`
	if err := s.db.GetContext(ctx, &r, q, id); err != nil {
		return nil, wrapNotFound("persistence.GetPrediction", domain.ErrPredictionNotFound, id, err)
	}
	result, err := domain.UnmarshalPredictionResult(r.ResultJSON)
	if err != nil {
		return nil, domain.NewError("persistence.GetPrediction", "serialization", err).WithID(id)
	}
	return &domain.Prediction{
		ID: r.ID, PipelineID: r.PipelineID, ModelID: r.ModelID, ModelVersion: r.ModelVersion,
		FeaturesJSON: r.FeaturesJSON, Result: result, FeaturesHash: r.FeaturesHash,
		LatencyUs: r.LatencyUs, CreatedAt: r.CreatedAt, FeedbackID: r.FeedbackID,
	}, nil
}

func (s *PostgresStore) LinkFeedback(ctx context.Context, predictionID, feedbackID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE predictions SET feedback_id = $2 WHERE id = $1 AND feedback_id IS NULL`,
		predictionID, feedbackID)
	if err != nil {
		return domain.NewError("persistence.LinkFeedback", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		var exists bool
		_ = s.db.GetContext(ctx, &exists, `SELECT true FROM predictions WHERE id = $1`, predictionID)
		if !exists {
			return domain.NewError("persistence.LinkFeedback", "not_found", domain.ErrPredictionNotFound).WithID(predictionID)
		}
		return domain.NewError("persistence.LinkFeedback", "conflict", domain.ErrConflict).WithID(predictionID)
	}
	return nil
}

// --- FeedbackStore ---

func (s *PostgresStore) CreateFeedback(ctx context.Context, f *domain.Feedback) error {
	gtJSON, err := domain.MarshalGroundTruth(f.GroundTruth)
	if err != nil {
		return domain.NewError("persistence.CreateFeedback", "serialization", err)
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	const q = `
		INSERT INTO feedback (id, prediction_id, ground_truth_json, source, confidence, received_at, exported)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = s.db.ExecContext(ctx, q, f.ID, f.PredictionID, gtJSON, string(f.Source), f.Confidence, f.ReceivedAt, f.Exported)
	if err != nil {
		return domain.NewError("persistence.CreateFeedback", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	return nil
}

func (s *PostgresStore) GetFeedback(ctx context.Context, id string) (*domain.Feedback, error) {
	rows, err := s.queryFeedback(ctx, `WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.NewError("persistence.GetFeedback", "not_found", domain.ErrFeedbackNotFound).WithID(id)
	}
	return rows[0], nil
}

func (s *PostgresStore) ListUnexported(ctx context.Context, limit int) ([]*domain.Feedback, error) {
	return s.queryFeedback(ctx, `WHERE exported = false ORDER BY received_at ASC LIMIT $1`, limitOrAll(limit))
}

func (s *PostgresStore) queryFeedback(ctx context.Context, where string, args ...interface{}) ([]*domain.Feedback, error) {
	type row struct {
		ID              string          `db:"id"`
		PredictionID    string          `db:"prediction_id"`
		GroundTruthJSON json.RawMessage `db:"ground_truth_json"`
		Source          string          `db:"source"`
		Confidence      float64         `db:"confidence"`
		ReceivedAt      time.Time       `db:"received_at"`
		Exported        bool            `db:"exported"`
	}
	q := fmt.Sprintf(`SELECT id, prediction_id, ground_truth_json, source, confidence, received_at, exported FROM feedback %s`, where)
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, domain.NewError("persistence.queryFeedback", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	out := make([]*domain.Feedback, len(rows))
	for i, r := range rows {
		gt, err := domain.UnmarshalGroundTruth(r.GroundTruthJSON)
		if err != nil {
			return nil, domain.NewError("persistence.queryFeedback", "serialization", err).WithID(r.ID)
		}
		out[i] = &domain.Feedback{
			ID: r.ID, PredictionID: r.PredictionID, GroundTruth: gt, Source: domain.FeedbackSource(r.Source),
			Confidence: r.Confidence, ReceivedAt: r.ReceivedAt, Exported: r.Exported,
		}
	}
	return out, nil
}

func (s *PostgresStore) MarkExported(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `UPDATE feedback SET exported = true WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return domain.NewError("persistence.MarkExported", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	return nil
}

// --- DriftStore ---

func (s *PostgresStore) CreateDriftEvent(ctx context.Context, e *domain.DriftEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	policyJSON, err := json.Marshal(e.Policy)
	if err != nil {
		return domain.NewError("persistence.CreateDriftEvent", "serialization", err)
	}
	const q = `
		INSERT INTO drift_events (id, pipeline_id, model_id, drift_type, severity, psi_score, kl_divergence,
			accuracy_delta, policy_json, detected_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = s.db.ExecContext(ctx, q, e.ID, e.PipelineID, e.ModelID, string(e.DriftType), string(e.Severity),
		e.PSIScore, e.KLDivergence, e.AccuracyDelta, policyJSON, e.DetectedAt, e.ResolvedAt)
	if err != nil {
		return domain.NewError("persistence.CreateDriftEvent", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	return nil
}

type driftEventRow struct {
	ID            string     `db:"id"`
	PipelineID    string     `db:"pipeline_id"`
	ModelID       string     `db:"model_id"`
	DriftType     string     `db:"drift_type"`
	Severity      string     `db:"severity"`
	PSIScore      *float64   `db:"psi_score"`
	KLDivergence  *float64   `db:"kl_divergence"`
	AccuracyDelta *float64   `db:"accuracy_delta"`
	PolicyJSON    []byte     `db:"policy_json"`
	DetectedAt    time.Time  `db:"detected_at"`
	ResolvedAt    *time.Time `db:"resolved_at"`
}

func (r driftEventRow) toDomain() (*domain.DriftEvent, error) {
	var policy domain.OnDriftPolicy
	if len(r.PolicyJSON) > 0 {
		if err := json.Unmarshal(r.PolicyJSON, &policy); err != nil {
			return nil, err
		}
	}
	return &domain.DriftEvent{
		ID: r.ID, PipelineID: r.PipelineID, ModelID: r.ModelID, DriftType: domain.DriftType(r.DriftType),
		Severity: domain.DriftSeverity(r.Severity), PSIScore: r.PSIScore, KLDivergence: r.KLDivergence,
		AccuracyDelta: r.AccuracyDelta, Policy: policy, DetectedAt: r.DetectedAt, ResolvedAt: r.ResolvedAt,
	}, nil
}

func (s *PostgresStore) GetOpenDriftEvent(ctx context.Context, pipelineID, modelID string) (*domain.DriftEvent, error) {
	const q = `
		SELECT id, pipeline_id, model_id, drift_type, severity, psi_score, kl_divergence, accuracy_delta,
			policy_json, detected_at, resolved_at
		FROM drift_events WHERE pipeline_id = $1 AND model_id = $2 AND resolved_at IS NULL
		ORDER BY detected_at DESC LIMIT 1`
	var row driftEventRow
	if err := s.db.GetContext(ctx, &row, q, pipelineID, modelID); err != nil {
		return nil, wrapNotFound("persistence.GetOpenDriftEvent", domain.ErrNotFound, pipelineID+"/"+modelID, err)
	}
	return row.toDomain()
}

func (s *PostgresStore) ResolveDriftEvent(ctx context.Context, id string, resolvedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE drift_events SET resolved_at = $2 WHERE id = $1`, id, resolvedAt)
	if err != nil {
		return domain.NewError("persistence.ResolveDriftEvent", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	return checkRowsAffected("persistence.ResolveDriftEvent", domain.ErrNotFound, id, res)
}

func (s *PostgresStore) ListDriftEvents(ctx context.Context, pipelineID string, limit int) ([]*domain.DriftEvent, error) {
	const q = `
		SELECT id, pipeline_id, model_id, drift_type, severity, psi_score, kl_divergence, accuracy_delta,
			policy_json, detected_at, resolved_at
		FROM drift_events WHERE pipeline_id = $1 ORDER BY detected_at DESC LIMIT $2`
	var rows []driftEventRow
	if err := s.db.SelectContext(ctx, &rows, q, pipelineID, limitOrAll(limit)); err != nil {
		return nil, domain.NewError("persistence.ListDriftEvents", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	out := make([]*domain.DriftEvent, len(rows))
	for i, r := range rows {
		e, err := r.toDomain()
		if err != nil {
			return nil, domain.NewError("persistence.ListDriftEvents", "serialization", err)
		}
		out[i] = e
	}
	return out, nil
}

// --- helpers ---

func wrapNotFound(op string, sentinel error, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewError(op, "not_found", sentinel).WithID(id)
	}
	return domain.NewError(op, "io", fmt.Errorf("%w: %v", domain.ErrIO, err)).WithID(id)
}

func checkRowsAffected(op string, sentinel error, id string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return domain.NewError(op, "io", fmt.Errorf("%w: %v", domain.ErrIO, err)).WithID(id)
	}
	if n == 0 {
		return domain.NewError(op, "not_found", sentinel).WithID(id)
	}
	return nil
}

func limitOrAll(limit int) int {
	if limit <= 0 {
		return 1 << 30
	}
	return limit
}

var _ Store = (*PostgresStore)(nil)
