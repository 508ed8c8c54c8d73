package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerFailsWithoutBroker(t *testing.T) {
	p, err := NewProducer([]string{"127.0.0.1:1"}, "render-completed")
	require.Error(t, err)
	assert.Nil(t, p)

	p, err = NewProducer(nil, "render-completed")
	require.Error(t, err)
	assert.Nil(t, p)
}

func TestLogProducer(t *testing.T) {
	p := NewLogProducer()
	assert.NoError(t, p.SendMessage("render-completed", "img-1", map[string]string{"image_id": "img-1"}))
	assert.NoError(t, p.Close())
}

func TestNewConsumerDefaultsWorkers(t *testing.T) {
	c := NewConsumer([]string{"127.0.0.1:1"}, "render-requested", "wallcraft", 0)
	defer c.Close()

	assert.Equal(t, 1, c.workers)
	assert.Equal(t, "render-requested", c.reader.Config().Topic)
}
