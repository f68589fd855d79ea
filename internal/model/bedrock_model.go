package model

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/flywheel-ml/flywheel/internal/domain"
)

// BedrockModel calls a model hosted behind AWS Bedrock's InvokeModel API,
// for pipelines that route inference to a foundation model rather than a
// custom-trained endpoint.
type BedrockModel struct {
	client  *bedrockruntime.Client
	modelID string
	version string
}

// NewBedrockModel constructs a BedrockModel using the default AWS config
// chain (environment, shared config, or attached role credentials).
func NewBedrockModel(ctx context.Context, modelID, version string) (*BedrockModel, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, domain.NewError("model.NewBedrockModel", "config", fmt.Errorf("%w: %v", domain.ErrConfig, err))
	}
	return &BedrockModel{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
		version: version,
	}, nil
}

func (m *BedrockModel) Version() string { return m.version }

// Predict invokes the Bedrock model with features as the raw request
// body and expects the response body to already be a
// domain.PredictionResult envelope — pipelines routing to a foundation
// model are expected to prompt it to emit that shape.
func (m *BedrockModel) Predict(ctx context.Context, features json.RawMessage) (domain.PredictionResult, error) {
	out, err := m.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(m.modelID),
		ContentType: aws.String("application/json"),
		Body:        features,
	})
	if err != nil {
		return nil, domain.NewError("model.Predict", "model", fmt.Errorf("%w: %v", domain.ErrModelConnection, err))
	}

	result, err := domain.UnmarshalPredictionResult(out.Body)
	if err != nil {
		return nil, domain.NewError("model.Predict", "model", fmt.Errorf("%w: %v", domain.ErrModelInvalidInput, err))
	}
	return result, nil
}

var _ domain.Model = (*BedrockModel)(nil)
