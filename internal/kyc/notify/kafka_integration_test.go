//go:build integration

package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"kycflow/internal/kyc/models"
	"kycflow/internal/kyc/notify"
	id "kycflow/pkg/domain"
	"kycflow/pkg/testutil/containers"
)

func TestKafkaDispatcher(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rp := containers.NewRedpandaContainer(t)
	const topic = "kyc.events.test"

	k, err := notify.NewKafka(notify.KafkaConfig{Brokers: rp.Brokers, Topic: topic, ClientID: "kycflow-test"})
	require.NoError(t, err)
	defer k.Close()

	require.NoError(t, k.EnsureTopic(ctx, 1, 1))
	require.NoError(t, k.EnsureTopic(ctx, 1, 1), "existing topic is not an error")
	require.NoError(t, k.Ping(ctx))

	appID := id.NewApplicationID()
	require.NoError(t, k.Notify(ctx, models.Event{
		Type: models.EventAutoApproved, ApplicationID: appID, Status: models.StatusApproved, OccurredAt: time.Now(),
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.NotEmpty(t, records)

	var msg notify.Message
	require.NoError(t, json.Unmarshal(records[0].Value, &msg))
	assert.Equal(t, appID.String(), string(records[0].Key))
	assert.Equal(t, "AUTO_APPROVED", msg.Type)
}
