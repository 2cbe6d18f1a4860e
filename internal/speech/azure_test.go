package speech

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAzureSynthesize(t *testing.T) {
	var gotBody, gotKey, gotFormat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotKey = r.Header.Get("Ocp-Apim-Subscription-Key")
		gotFormat = r.Header.Get("X-Microsoft-OutputFormat")
		_, _ = w.Write([]byte("RIFF-audio"))
	}))
	defer srv.Close()

	c := NewAzureClient("secret", "westeurope", quietLog(), WithEndpoint(srv.URL), WithRequestsPerMinute(600))
	audio, err := c.Synthesize(context.Background(), "Trains <A & B>", "de-DE-KatjaNeural")
	require.NoError(t, err)

	assert.Equal(t, "RIFF-audio", string(audio))
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, DefaultAudioFormat, gotFormat)
	assert.Contains(t, gotBody, "name='de-DE-KatjaNeural'")
	assert.Contains(t, gotBody, "xml:lang='de-DE'")
	assert.Contains(t, gotBody, "Trains &lt;A &amp; B&gt;")
}

func TestAzureErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad voice", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewAzureClient("k", "r", quietLog(), WithEndpoint(srv.URL))
	_, err := c.Synthesize(context.Background(), "x", DefaultVoice)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "bad voice")
}

func TestAzureRateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewAzureClient("k", "r", quietLog(), WithEndpoint(srv.URL), WithRequestsPerMinute(1))
	_, err := c.Synthesize(context.Background(), "first", DefaultVoice)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Synthesize(ctx, "second", DefaultVoice)
	assert.Error(t, err)
}

func TestVoiceLang(t *testing.T) {
	assert.Equal(t, "fr-FR", voiceLang("fr-FR-DeniseNeural"))
	assert.Equal(t, "en-US", voiceLang("weird"))
}
