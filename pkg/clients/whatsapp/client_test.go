package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bluerock/internal/config"
)

func TestNormalizePhoneNumber(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0712345678", "255712345678"},
		{"712345678", "255712345678"},
		{"255712345678", "255712345678"},
		{"+255712345678", "+255712345678"},
		{"+14155550100", "+14155550100"},
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizePhoneNumber(tc.in), "input %q", tc.in)
	}
}

func newServerBackedClient(t *testing.T, handler http.HandlerFunc) *APIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.WhatsAppConfig{
		AccessToken:   "token",
		PhoneNumberID: "12345",
		BaseURL:       srv.URL,
		APIVersion:    "v18.0",
	})
}

func TestSendTextMessage(t *testing.T) {
	t.Run("posts normalized payload to messages endpoint", func(t *testing.T) {
		var captured map[string]any
		cl := newServerBackedClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v18.0/12345/messages", r.URL.Path)
			assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
		})

		resp, err := cl.SendTextMessage(context.Background(), SendTextMessageRequest{
			To:   "0712345678",
			Body: "karibu",
		})
		require.NoError(t, err)
		require.Len(t, resp.Messages, 1)
		assert.Equal(t, "wamid.1", resp.Messages[0].ID)

		assert.Equal(t, "whatsapp", captured["messaging_product"])
		assert.Equal(t, "255712345678", captured["to"])
		assert.Equal(t, "text", captured["type"])
		text, ok := captured["text"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "karibu", text["body"])
	})

	t.Run("decodes graph api error payload", func(t *testing.T) {
		cl := newServerBackedClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Invalid recipient","code":131026}}`))
		})

		_, err := cl.SendTextMessage(context.Background(), SendTextMessageRequest{To: "x", Body: "y"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "131026")
		assert.Contains(t, err.Error(), "Invalid recipient")
	})
}

func TestSendTemplateMessage(t *testing.T) {
	var captured map[string]any
	cl := newServerBackedClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.2"}]}`))
	})

	_, err := cl.SendTemplateMessage(context.Background(), SendTemplateMessageRequest{
		To:           "255712345678",
		TemplateName: "order_confirmation",
	})
	require.NoError(t, err)

	assert.Equal(t, "template", captured["type"])
	tmpl, ok := captured["template"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "order_confirmation", tmpl["name"])

	lang, ok := tmpl["language"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "en", lang["code"], "language code defaults to en")
	assert.NotContains(t, tmpl, "components")
}
