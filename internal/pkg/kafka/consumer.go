package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Handler processes one message value. A handler that returns a context
// error leaves the message uncommitted, so it is redelivered after a
// restart; any other outcome commits it.
type Handler func(ctx context.Context, value []byte) error

type Consumer struct {
	reader  *kafka.Reader
	workers int
}

func NewConsumer(brokers []string, topic, groupID string, workers int) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})

	return &Consumer{reader: reader, workers: max(workers, 1)}
}

// Run reads messages until ctx is done and hands each to handle on its own
// goroutine, at most workers at a time.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	cfg := c.reader.Config()
	logrus.WithFields(logrus.Fields{
		"brokers": cfg.Brokers,
		"topic":   cfg.Topic,
		"group":   cfg.GroupID,
	}).Info("kafka consumer started")

	sem := make(chan struct{}, c.workers)
	var wg sync.WaitGroup
	defer wg.Wait()

	track := newOffsets()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			logrus.WithError(err).Error("error reading message from kafka")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		logrus.WithFields(logrus.Fields{
			"topic":     msg.Topic,
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).Debug("received message")

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return nil
		}

		t := track.add(msg)
		wg.Add(1)
		go func(m kafka.Message) {
			defer wg.Done()
			defer func() { <-sem }()

			err := handle(ctx, m.Value)
			abandoned := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
			if err != nil && !abandoned {
				logrus.WithFields(logrus.Fields{
					"offset": m.Offset,
					"error":  err,
				}).Error("message handling failed")
			}

			if last, ok := track.finish(t, !abandoned); ok {
				c.commit(last)
			}
		}(msg)
	}
}

func (c *Consumer) commit(msg kafka.Message) {
	// shutdown cancels the run context but finished work is still committed
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		logrus.WithFields(logrus.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
			"error":     err,
		}).Warn("failed to commit kafka offset")
	}
}

// offsets tracks fetched messages per partition. Only the run of finished
// messages in front of the first unfinished one is ever committed, so an
// abandoned message and everything after it is fetched again by the group.
type offsets struct {
	mu      sync.Mutex
	pending map[int][]*tracked
}

type tracked struct {
	msg       kafka.Message
	done      bool
	abandoned bool
}

func newOffsets() *offsets {
	return &offsets{pending: make(map[int][]*tracked)}
}

func (o *offsets) add(msg kafka.Message) *tracked {
	o.mu.Lock()
	defer o.mu.Unlock()

	t := &tracked{msg: msg}
	o.pending[msg.Partition] = append(o.pending[msg.Partition], t)
	return t
}

// finish marks t handled (or abandoned when handled is false) and returns
// the last message of the partition that can now be committed.
func (o *offsets) finish(t *tracked, handled bool) (kafka.Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if handled {
		t.done = true
	} else {
		t.abandoned = true
	}

	queue := o.pending[t.msg.Partition]
	n := 0
	for n < len(queue) && queue[n].done {
		n++
	}
	if n == 0 {
		return kafka.Message{}, false
	}
	last := queue[n-1].msg
	o.pending[t.msg.Partition] = queue[n:]
	return last, true
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
