package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnsureTopicNeedsBrokers(t *testing.T) {
	err := EnsureTopic(context.Background(), nil, TopicSpec{Name: "vigil.events"}, zap.NewNop())
	require.Error(t, err)
}

func TestAllHaveLeader(t *testing.T) {
	led := kafka.Partition{Leader: kafka.Broker{ID: 1}}
	orphan := kafka.Partition{Leader: kafka.Broker{ID: -1}}

	assert.True(t, allHaveLeader([]kafka.Partition{led, led}))
	assert.False(t, allHaveLeader([]kafka.Partition{led, orphan}))
}
