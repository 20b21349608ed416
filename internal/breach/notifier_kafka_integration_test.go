//go:build integration

package breach

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"custodia/pkg/testutil/containers"
)

func TestKafkaNotifier_AlertLandsOnTopic(t *testing.T) {
	rp := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	const topic = "compliance.breach-alerts.test"
	notifier, err := NewKafkaNotifier(ctx, []string{rp.Broker}, topic)
	require.NoError(t, err)
	defer notifier.Close()

	alert := Alert{
		BreachID:          uuid.New(),
		Type:              TypeDataLeak,
		Severity:          SeverityCritical,
		AffectedUserCount: 2,
		Description:       "export bucket exposed",
		DetectedAt:        time.Now().UTC().Truncate(time.Second),
		AuthorityDeadline: time.Now().UTC().Add(72 * time.Hour).Truncate(time.Second),
	}
	require.NoError(t, notifier.Alert(ctx, alert))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.Len(t, records, 1)

	assert.Equal(t, alert.BreachID.String(), string(records[0].Key))
	var got Alert
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, alert, got)
}
