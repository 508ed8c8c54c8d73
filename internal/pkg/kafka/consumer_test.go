package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffsetsCommitInOrder(t *testing.T) {
	o := newOffsets()
	first := o.add(kafka.Message{Partition: 0, Offset: 10})
	second := o.add(kafka.Message{Partition: 0, Offset: 11})
	third := o.add(kafka.Message{Partition: 0, Offset: 12})

	// a later message finishing first cannot move the offset past 10
	_, ok := o.finish(second, true)
	assert.False(t, ok)

	last, ok := o.finish(first, true)
	require.True(t, ok)
	assert.Equal(t, int64(11), last.Offset)

	last, ok = o.finish(third, true)
	require.True(t, ok)
	assert.Equal(t, int64(12), last.Offset)
}

func TestOffsetsAbandonedMessageIsNotCommitted(t *testing.T) {
	o := newOffsets()
	first := o.add(kafka.Message{Partition: 0, Offset: 1})
	second := o.add(kafka.Message{Partition: 0, Offset: 2})
	third := o.add(kafka.Message{Partition: 0, Offset: 3})

	last, ok := o.finish(first, true)
	require.True(t, ok)
	assert.Equal(t, int64(1), last.Offset)

	// shutdown cut the second render short
	_, ok = o.finish(second, false)
	assert.False(t, ok)
	_, ok = o.finish(third, true)
	assert.False(t, ok)
}

func TestOffsetsPartitionsAreIndependent(t *testing.T) {
	o := newOffsets()
	stuck := o.add(kafka.Message{Partition: 0, Offset: 5})
	other := o.add(kafka.Message{Partition: 1, Offset: 7})

	last, ok := o.finish(other, true)
	require.True(t, ok)
	assert.Equal(t, 1, last.Partition)
	assert.Equal(t, int64(7), last.Offset)

	_, ok = o.finish(stuck, false)
	assert.False(t, ok)
}
