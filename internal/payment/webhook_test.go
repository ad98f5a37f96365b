package payment_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"ms-eventpass/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const succeededEvent = `{
  "id": "evt_1",
  "object": "event",
  "type": "payment_intent.succeeded",
  "data": {
    "object": {
      "id": "pi_1",
      "object": "payment_intent",
      "status": "succeeded",
      "amount": 2550,
      "currency": "usd",
      "metadata": {"event_id": "E1"}
    }
  }
}`

func sign(payload string) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  "whsec_test",
	})
	return signed.Header
}

func TestWebhookRecordsConfirmation(t *testing.T) {
	svc, gw, mr := setupService(t)

	err := svc.HandleWebhook(context.Background(), []byte(succeededEvent), sign(succeededEvent))
	require.NoError(t, err)
	assert.True(t, mr.Exists("payment_intent:pi_1"))

	// verification now succeeds without asking the processor
	require.NoError(t, svc.Verify(context.Background(), "pi_1", "E1", 2550, "usd"))
	gw.AssertNotCalled(t, "GetIntent", mock.Anything, mock.Anything)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	svc, _, mr := setupService(t)

	err := svc.HandleWebhook(context.Background(), []byte(succeededEvent), "t=1,v1=deadbeef")

	var whErr *payment.WebhookError
	require.True(t, errors.As(err, &whErr))
	assert.Equal(t, http.StatusBadRequest, whErr.StatusCode)
	assert.False(t, mr.Exists("payment_intent:pi_1"))
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	svc, _, mr := setupService(t)
	payload := `{"id":"evt_2","object":"event","type":"charge.refunded","data":{"object":{"id":"ch_1","object":"charge"}}}`

	require.NoError(t, svc.HandleWebhook(context.Background(), []byte(payload), sign(payload)))
	assert.Empty(t, mr.Keys())
}
