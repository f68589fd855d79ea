package stages

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/flywheel-ml/flywheel/internal/domain"
)

// DriftNotifier delivers an out-of-band alert when a drift-detection
// stage's OnDrift policy is Alert.
type DriftNotifier interface {
	NotifyDrift(ctx context.Context, pipelineID string, event domain.DriftEvent) error
}

// NoopNotifier drops every alert; used when no Slack notifier is
// configured (or a nil notifier is passed to NewDriftDetectionStage).
type NoopNotifier struct{}

func (NoopNotifier) NotifyDrift(context.Context, string, domain.DriftEvent) error { return nil }

// SlackNotifier posts a drift alert to a fixed Slack channel.
type SlackNotifier struct {
	client  *slack.Client
	channel string
}

// NewSlackNotifier builds a SlackNotifier from a bot token and target
// channel id.
func NewSlackNotifier(token, channel string) *SlackNotifier {
	return &SlackNotifier{client: slack.New(token), channel: channel}
}

func (n *SlackNotifier) NotifyDrift(ctx context.Context, pipelineID string, event domain.DriftEvent) error {
	text := fmt.Sprintf("drift detected: pipeline=%s model=%s type=%s severity=%s",
		pipelineID, event.ModelID, event.DriftType, event.Severity)
	_, _, err := n.client.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return domain.NewError("stages.SlackNotifier.NotifyDrift", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	return nil
}

var _ DriftNotifier = (*SlackNotifier)(nil)
var _ DriftNotifier = NoopNotifier{}
