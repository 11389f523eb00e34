package notifications

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bidradar/rfp-discovery-bot/internal/config"
	"github.com/bidradar/rfp-discovery-bot/internal/models"
)

func TestService_Enabled(t *testing.T) {
	assert.False(t, NewService(&config.Config{}).Enabled())
	assert.True(t, NewService(&config.Config{WebhookURL: "https://hooks.example.com/x"}).Enabled())
	assert.True(t, NewService(&config.Config{NotificationEmail: "bids@example.com"}).Enabled())
}

func TestSendDigest_Webhook(t *testing.T) {
	var received webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service := NewService(&config.Config{WebhookURL: server.URL})

	err := service.SendDigest([]models.Opportunity{
		{Title: "Roof Replacement", RelevanceScore: 60},
		{Title: "HVAC Upgrade", RelevanceScore: 20},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, received.Discovered)
	require.Len(t, received.Opportunities, 2)
	assert.Equal(t, "Roof Replacement", received.Opportunities[0].Title)
}

func TestSendDigest_WebhookFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	service := NewService(&config.Config{WebhookURL: server.URL})

	err := service.SendDigest([]models.Opportunity{{Title: "Roof Replacement"}})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "webhook")
}

func TestSendDigest_EmptyDigestIsNoop(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	service := NewService(&config.Config{WebhookURL: server.URL})

	require.NoError(t, service.SendDigest(nil))
	assert.False(t, called)
}
