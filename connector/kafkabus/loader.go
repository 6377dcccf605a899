package kafkabus

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/etlkit/errors"
	"github.com/kbukum/etlkit/job"
	"github.com/kbukum/etlkit/logger"
	"github.com/kbukum/etlkit/pipeline"
	"github.com/kbukum/etlkit/resilience"
)

// OpPublish is the failure operation reported by the message loader.
const OpPublish = "publish"

// MessageParams are the role params of the message loader.
type MessageParams struct {
	// Topic overrides the connector topic.
	Topic string `mapstructure:"topic"`
	// KeyField names the record field used as message key.
	KeyField string `mapstructure:"key_field"`
}

// MessageLoader publishes each record as a JSON message. Messages that the
// broker rejects are emitted as failures, one per record.
type MessageLoader struct {
	job.LoaderBase
	params MessageParams
}

// NewMessageLoader creates a message loader bound to destination.
func NewMessageLoader(attrs job.Attributes, destination string) (job.Loader, error) {
	base, err := job.NewLoaderBase(attrs, destination)
	if err != nil {
		return nil, err
	}
	var params MessageParams
	if err := attrs.Params.Decode(&params); err != nil {
		return nil, err
	}
	return &MessageLoader{LoaderBase: base, params: params}, nil
}

// Load publishes items.
func (l *MessageLoader) Load(ctx context.Context, chain pipeline.Chain, items any, pool *pipeline.Pool) {
	records, err := job.Records(items)
	if err != nil {
		l.fail(chain, pool, pipeline.NewFailure(OpPublish, nil, items, err))
		return
	}
	stream, err := job.Stream[Stream](ctx, l.Destination)
	if err != nil {
		l.fail(chain, pool, pipeline.NewFailure(OpPublish, nil, records, err))
		return
	}
	topic := l.params.Topic
	if topic == "" {
		topic = stream.Topic
	}
	if topic == "" {
		l.fail(chain, pool, pipeline.NewFailure(OpPublish, nil, records, errors.Configuration("kafka loader: no topic configured")))
		return
	}

	msgs := make([]kafkago.Message, 0, len(records))
	sent := make([]job.Record, 0, len(records))
	for _, r := range records {
		msg, err := l.message(topic, r)
		if err != nil {
			l.fail(chain, pool, pipeline.NewFailure(OpPublish, []string{topic}, r, err))
			continue
		}
		msgs = append(msgs, msg)
		sent = append(sent, r)
	}
	if len(msgs) == 0 {
		return
	}

	_, err = resilience.Retry(ctx, resilience.WriteRetryConfig(), func() (struct{}, error) {
		return struct{}{}, classify(stream.Writer.WriteMessages(ctx, msgs...))
	})
	if err == nil {
		l.Logger().Debug("messages published", logger.Fields(logger.FieldItems, len(msgs), "topic", topic))
		return
	}

	var partial kafkago.WriteErrors
	if stderrors.As(err, &partial) && len(partial) == len(msgs) {
		for i, werr := range partial {
			if werr != nil {
				l.fail(chain, pool, pipeline.NewFailure(OpPublish, []string{topic}, sent[i], errors.WriteFailed(OpPublish, werr)))
			}
		}
		return
	}
	for _, r := range sent {
		l.fail(chain, pool, pipeline.NewFailure(OpPublish, []string{topic}, r, err))
	}
}

func (l *MessageLoader) message(topic string, r job.Record) (kafkago.Message, error) {
	value, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, errors.WriteFailed(OpPublish, err)
	}
	msg := kafkago.Message{Topic: topic, Value: value}
	if l.params.KeyField != "" {
		if k, ok := r[l.params.KeyField]; ok && k != nil {
			msg.Key = []byte(fmt.Sprint(k))
		}
	}
	return msg, nil
}

func (l *MessageLoader) fail(chain pipeline.Chain, pool *pipeline.Pool, failure *pipeline.Failure) {
	log := l.Logger()
	log.Warn("publish failed", logger.Fields(
		logger.FieldOperation, failure.Operation,
		"targets", failure.Targets,
		logger.FieldError, failure.Error,
	))
	if !job.Fail(chain, pool, failure) {
		log.Error("publish failure has no error handler", logger.Fields("failure_id", failure.ID))
	}
}

// classify marks temporary broker errors retryable. Partial write errors
// are never retried as a whole.
func classify(err error) error {
	if err == nil {
		return nil
	}
	appErr := errors.WriteFailed(OpPublish, err)
	var partial kafkago.WriteErrors
	if stderrors.As(err, &partial) {
		return appErr
	}
	var kerr kafkago.Error
	if stderrors.As(err, &kerr) && kerr.Temporary() {
		appErr.Retryable = true
	}
	return appErr
}
