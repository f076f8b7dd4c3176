package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSender_IsConfigured(t *testing.T) {
	assert.True(t, NewWebhookSender("https://example.com/hook").IsConfigured())

	t.Setenv("SLIPWAY_WEBHOOK_URL", "")
	assert.False(t, NewWebhookSender("").IsConfigured())
}

func TestWebhookSender_EnvFallback(t *testing.T) {
	t.Setenv("SLIPWAY_WEBHOOK_URL", "https://example.com/from-env")
	sender := NewWebhookSender("")
	assert.True(t, sender.IsConfigured())
	assert.Equal(t, "https://example.com/from-env", sender.url)
}

func TestWebhookSender_Send(t *testing.T) {
	var received webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sender := NewWebhookSender(server.URL)
	err := sender.Send(context.Background(), &Event{
		Title:    "Config Rendered",
		Message:  "Rendered OvenMediaEngine config",
		Severity: SeverityInfo,
		Source:   "render",
		Metadata: map[string]string{"image_tag": "0.16.0", "empty": ""},
	})
	require.NoError(t, err)

	require.Len(t, received.Embeds, 1)
	e := received.Embeds[0]
	assert.Equal(t, "Config Rendered", e.Title)
	assert.Equal(t, colorInfo, e.Color)
	assert.Equal(t, "slipway/render", e.Footer.Text)

	// Empty metadata values are skipped.
	require.Len(t, e.Fields, 1)
	assert.Equal(t, "image_tag", e.Fields[0].Name)
	assert.Equal(t, "0.16.0", e.Fields[0].Value)
}

func TestWebhookSender_Send_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	sender := NewWebhookSender(server.URL)
	err := sender.Send(context.Background(), &Event{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status: 400")
}

func TestWebhookSender_Send_Unconfigured(t *testing.T) {
	t.Setenv("SLIPWAY_WEBHOOK_URL", "")
	sender := NewWebhookSender("")
	assert.NoError(t, sender.Send(context.Background(), &Event{Title: "x"}))
}

func TestSeverityToColor(t *testing.T) {
	assert.Equal(t, colorInfo, severityToColor(SeverityInfo))
	assert.Equal(t, colorWarning, severityToColor(SeverityWarning))
	assert.Equal(t, colorError, severityToColor(SeverityError))
}

func TestEventBuilders(t *testing.T) {
	e := RenderSuccess("/deploy/ome/Server.generated.xml", "0.16.0")
	assert.Equal(t, SeverityInfo, e.Severity)
	assert.Equal(t, "render", e.Source)
	assert.Equal(t, "0.16.0", e.Metadata["image_tag"])

	e = RenderFailure("/deploy/ome/Server.xml", "missing <ID> in template")
	assert.Equal(t, SeverityError, e.Severity)
	assert.Contains(t, e.Message, "missing <ID>")

	e = EnvDrift([]string{"BITRIVER_HTTP_PORT: quickstart='8080' ci='8081'"})
	assert.Equal(t, SeverityWarning, e.Severity)
	assert.Equal(t, "1", e.Metadata["mismatch_count"])
}
