package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types accepted on the worker subscription.
const (
	JobStatusSweep = "status_sweep"
	JobHealthCheck = "health_check"
)

var (
	errMalformedJob = errors.New("malformed job message")
	errUnknownJob   = errors.New("unknown job type")
)

// JobMessage is the body of a worker job message.
type JobMessage struct {
	JobType string `json:"job_type"`
}

// JobRunner executes the jobs a message can request.
type JobRunner interface {
	Sweep(ctx context.Context) (*SweepResult, error)
	HealthCheck(ctx context.Context) error
}

// PubSubHandler consumes job messages from a Pub/Sub subscription.
type PubSubHandler struct {
	subscriber       *pubsub.Subscriber
	subscriptionName string
	jobs             JobRunner
	metrics          *Metrics
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	SubscriptionName string
	Jobs             JobRunner
	Metrics          *Metrics
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a handler receiving from cfg.SubscriptionName.
func NewPubSubHandler(client *pubsub.Client, cfg PubSubConfig) *PubSubHandler {
	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Sweeps are serialized, so a small window of outstanding messages suffices.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 5 * time.Minute

	return newPubSubHandler(subscriber, cfg)
}

func newPubSubHandler(subscriber *pubsub.Subscriber, cfg PubSubConfig) *PubSubHandler {
	return &PubSubHandler{
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		jobs:             cfg.Jobs,
		metrics:          cfg.Metrics,
		logger:           cfg.Logger.With().Str("component", "pubsub").Logger(),
	}
}

// Start processes messages until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if h.handle(ctx, msg.ID, msg.Data) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
}

// handle runs the job in data and reports whether the message should be acked.
// Malformed and unknown messages are acked so they are not redelivered.
func (h *PubSubHandler) handle(ctx context.Context, messageID string, data []byte) bool {
	startTime := time.Now()
	logger := h.logger.With().Str("message_id", messageID).Logger()

	jobType, err := h.dispatch(ctx, data)
	h.metrics.ObserveJob(jobType, err)

	switch {
	case errors.Is(err, errMalformedJob):
		logger.Error().Err(err).Msg("dropping malformed message")
		return true
	case errors.Is(err, errUnknownJob):
		logger.Warn().Str("job_type", jobType).Msg("unknown job type")
		return true
	case errors.Is(err, ErrSweepRunning):
		logger.Debug().Msg("sweep already running, coalescing job")
		return true
	case err != nil:
		logger.Error().Err(err).Str("job_type", jobType).Msg("job failed")
		return false
	}

	logger.Info().
		Str("job_type", jobType).
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")
	return true
}

func (h *PubSubHandler) dispatch(ctx context.Context, data []byte) (string, error) {
	var job JobMessage
	if err := json.Unmarshal(data, &job); err != nil {
		return "invalid", fmt.Errorf("%w: %w", errMalformedJob, err)
	}

	switch job.JobType {
	case JobStatusSweep:
		_, err := h.jobs.Sweep(ctx)
		return job.JobType, err
	case JobHealthCheck:
		return job.JobType, h.jobs.HealthCheck(ctx)
	default:
		return "unknown", fmt.Errorf("%w: %q", errUnknownJob, job.JobType)
	}
}

// TopicPublisher publishes status change events to a Pub/Sub topic.
type TopicPublisher struct {
	publisher *pubsub.Publisher
	topic     string
	logger    zerolog.Logger
}

// NewTopicPublisher creates a publisher for topic.
func NewTopicPublisher(client *pubsub.Client, topic string, logger zerolog.Logger) *TopicPublisher {
	return &TopicPublisher{
		publisher: client.Publisher(topic),
		topic:     topic,
		logger:    logger.With().Str("component", "publisher").Str("topic", topic).Logger(),
	}
}

// Publish sends event and waits for the server acknowledgement.
func (p *TopicPublisher) Publish(ctx context.Context, event StatusChangedEvent) error {
	msg, err := eventMessage(event)
	if err != nil {
		return err
	}

	id, err := p.publisher.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", p.topic, err)
	}

	p.logger.Debug().
		Str("server_id", id).
		Str("gateway_id", event.GatewayID).
		Msg("status event published")
	return nil
}

// Stop flushes pending messages.
func (p *TopicPublisher) Stop() {
	p.publisher.Stop()
}

func eventMessage(event StatusChangedEvent) (*pubsub.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encoding status event: %w", err)
	}
	return &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type": event.EventType,
			"gateway_id": event.GatewayID,
			"status":     string(event.Current),
		},
	}, nil
}

var _ StatusPublisher = (*TopicPublisher)(nil)
