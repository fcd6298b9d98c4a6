package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test_secret"

func sign(payload []byte, secret string, ts time.Time) string {
	t := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(t))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", t, hex.EncodeToString(mac.Sum(nil)))
}

func succeededPayload(jobID, userID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_123",
		"object": "event",
		"api_version": "2020-08-27",
		"type": "payment_intent.succeeded",
		"data": {"object": {
			"id": "pi_123",
			"object": "payment_intent",
			"amount": 5000,
			"currency": "usd",
			"metadata": {"job_post_id": %q, "user_id": %q}
		}}
	}`, jobID, userID))
}

func TestParseWebhook(t *testing.T) {
	g := NewStripeGateway("sk_test_unused", testSecret, nil)
	payload := succeededPayload("8c1f3c56-0000-4000-8000-000000000001", "8c1f3c56-0000-4000-8000-000000000002")

	t.Run("valid signature", func(t *testing.T) {
		ev, err := g.ParseWebhook(payload, sign(payload, testSecret, time.Now()))
		require.NoError(t, err)
		require.Equal(t, EventPaymentSucceeded, ev.Type)
		require.Equal(t, "pi_123", ev.IntentID)
		require.Equal(t, "8c1f3c56-0000-4000-8000-000000000001", ev.Metadata["job_post_id"])
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := g.ParseWebhook(payload, sign(payload, "whsec_other", time.Now()))
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		_, err := g.ParseWebhook(payload, sign(payload, testSecret, time.Now().Add(-time.Hour)))
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("tampered payload", func(t *testing.T) {
		sig := sign(payload, testSecret, time.Now())
		tampered := succeededPayload("8c1f3c56-0000-4000-8000-000000000009", "x")
		_, err := g.ParseWebhook(tampered, sig)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("other event types carry no metadata", func(t *testing.T) {
		body := []byte(`{"id":"evt_9","object":"event","type":"charge.refunded","data":{"object":{"id":"ch_1","object":"charge"}}}`)
		ev, err := g.ParseWebhook(body, sign(body, testSecret, time.Now()))
		require.NoError(t, err)
		require.Equal(t, "charge.refunded", ev.Type)
		require.Empty(t, ev.Metadata)
	})
}
