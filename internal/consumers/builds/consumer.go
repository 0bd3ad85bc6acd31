package builds

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/palletflow/internal/pipeline"
	pferrors "github.com/angelmondragon/palletflow/pkg/errors"
	"github.com/angelmondragon/palletflow/pkg/logger"
)

const consumerName = "pallet-builds"

// Notification is the optional body of a build-arrival message. The pipeline
// always reads the latest build row itself; the ids only enrich logs.
type Notification struct {
	EventID  string `json:"event_id"`
	PalletID string `json:"pallet_id"`
	GRNID    string `json:"grn_id"`
}

type pipelineRunner interface {
	Run(ctx context.Context) (pipeline.Report, error)
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID string) (bool, error)
	Delete(ctx context.Context, consumer string, eventID string) error
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

// Consumer runs the pipeline for every build-arrival notification while
// honoring Redis idempotency on redelivered messages.
type Consumer struct {
	subscription receiver
	runner       pipelineRunner
	manager      idempotencyChecker
	logg         *logger.Logger
}

// NewConsumer builds the build-arrival consumer.
func NewConsumer(subscription receiver, runner pipelineRunner, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, errors.New("build events subscription is required")
	}
	if runner == nil {
		return nil, errors.New("pipeline runner is required")
	}
	if manager == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		subscription: subscription,
		runner:       runner,
		manager:      manager,
		logg:         logg,
	}, nil
}

type processResult struct {
	nack bool
}

// Run consumes notifications until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if c.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *Consumer) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	fields := map[string]any{"message_id": msg.ID}
	note := decodeNotification(msg)
	if note.PalletID != "" {
		fields["notified_pallet_id"] = note.PalletID
	}
	if note.GRNID != "" {
		fields["notified_grn_id"] = note.GRNID
	}
	eventID := note.EventID
	if eventID == "" {
		eventID = msg.ID
	}
	fields["event_id"] = eventID
	logCtx := c.logg.WithFields(ctx, fields)

	if eventID == "" {
		c.logg.Warn(logCtx, "build notification without id")
		return processResult{}
	}

	already, err := c.manager.CheckAndMarkProcessed(logCtx, consumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "notification already processed")
		return processResult{}
	}

	report, err := c.runner.Run(logCtx)
	if err != nil {
		if retryable(err) {
			c.logg.Error(logCtx, "pipeline run failed; will retry", err)
			_ = c.manager.Delete(logCtx, consumerName, eventID)
			return processResult{nack: true}
		}
		c.logg.Error(logCtx, "pipeline run rejected the build", err)
		return processResult{}
	}

	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
		"run_id":  report.RunID,
		"outcome": string(report.Ledger.Outcome),
	}), "build notification handled")
	return processResult{}
}

// decodeNotification reads the JSON body, falling back to message attributes.
func decodeNotification(msg *gcppubsub.Message) Notification {
	var note Notification
	if len(msg.Data) > 0 {
		_ = json.Unmarshal(msg.Data, &note)
	}
	if note.EventID == "" {
		note.EventID = msg.Attributes["event_id"]
	}
	if note.PalletID == "" {
		note.PalletID = msg.Attributes["pallet_id"]
	}
	if note.GRNID == "" {
		note.GRNID = msg.Attributes["grn_id"]
	}
	note.EventID = strings.TrimSpace(note.EventID)
	note.PalletID = strings.TrimSpace(note.PalletID)
	note.GRNID = strings.TrimSpace(note.GRNID)
	return note
}

// retryable reports whether a failed run should be redelivered. Schema and
// validation problems need a fix to the tables, so they are acknowledged.
func retryable(err error) bool {
	return pferrors.Retryable(err)
}
