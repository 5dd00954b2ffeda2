package kafka

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/IBM/sarama"

	"github.com/canbahi79-lgtm/formatfactory/worker/pool"
)

type MessageHandler func(ctx context.Context, msg *JobMessage) error

// JobMessage mirrors the producer-side payload.
type JobMessage struct {
	JobID       string         `json:"job_id"`
	TraceID     string         `json:"trace_id"`
	ContentText string         `json:"content_text"`
	Mapping     map[string]any `json:"mapping,omitempty"`
	TemplateURL string         `json:"template_url,omitempty"`
}

type Consumer struct {
	consumer sarama.ConsumerGroup
	pool     *pool.WorkerPool
}

func NewConsumer(brokers []string, groupID string, workers *pool.WorkerPool) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	c, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, err
	}

	return &Consumer{consumer: c, pool: workers}, nil
}

type consumerHandler struct {
	fn   MessageHandler
	pool *pool.WorkerPool
	ctx  context.Context
}

func (h *consumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// offsetTracker serializes offset marks for one partition claim. Jobs finish
// out of order across the pool, but sarama commits the highest marked offset,
// so only the contiguous prefix of completed offsets may be marked. Marking a
// later offset while an earlier one is still in flight would commit past it
// and lose the job on a crash.
type offsetTracker struct {
	mu        sync.Mutex
	next      int64
	completed map[int64]*sarama.ConsumerMessage
}

func newOffsetTracker(first int64) *offsetTracker {
	return &offsetTracker{
		next:      first,
		completed: make(map[int64]*sarama.ConsumerMessage),
	}
}

func (t *offsetTracker) done(session sarama.ConsumerGroupSession, msg *sarama.ConsumerMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.completed[msg.Offset] = msg
	for {
		m, ok := t.completed[t.next]
		if !ok {
			return
		}
		delete(t.completed, t.next)
		session.MarkMessage(m, "")
		t.next = m.Offset + 1
	}
}

// ConsumeClaim fans messages out to the worker pool. Offsets are marked only
// for the contiguous prefix of handled messages, so a crash mid-render
// re-delivers every unfinished job; rendering is idempotent per job id. A
// handler error leaves its offset unmarked for the same reason.
func (h *consumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	var tracker *offsetTracker

	for msg := range claim.Messages() {
		if tracker == nil {
			tracker = newOffsetTracker(msg.Offset)
		}

		var jobMsg JobMessage
		if err := json.Unmarshal(msg.Value, &jobMsg); err != nil {
			tracker.done(session, msg)
			continue
		}

		raw := msg
		h.pool.Submit(h.ctx, func() {
			if err := h.fn(h.ctx, &jobMsg); err != nil {
				return
			}
			tracker.done(session, raw)
		})
	}
	return nil
}

func (c *Consumer) Consume(ctx context.Context, topic string, handler MessageHandler) error {
	h := &consumerHandler{fn: handler, pool: c.pool, ctx: ctx}
	return c.consumer.Consume(ctx, []string{topic}, h)
}

func (c *Consumer) Close() error {
	return c.consumer.Close()
}
