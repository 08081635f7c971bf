package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daideguchi/yomiage/internal/audioio"
)

// newFakeVoicevoxServer serves the VOICEVOX ENGINE endpoints the client
// touches, answering synthesis with one second of silence.
func newFakeVoicevoxServer(t *testing.T) *httptest.Server {
	t.Helper()

	wavData, err := audioio.PCMToWAV(make([]byte, 48000), 24000)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `"0.22.0"`)
	})
	mux.HandleFunc("/audio_query", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		assert.Equal(t, "3", r.URL.Query().Get("speaker"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"accent_phrases":[],"speedScale":1.0,"kana":"コンニチワ'"}`)
	})
	mux.HandleFunc("/synthesis", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var query map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&query), "synthesis receives the query JSON")
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(wavData)
	})
	mux.HandleFunc("/speakers", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"name":"ずんだもん","styles":[{"name":"ノーマル","id":3},{"name":"あまあま","id":1}]}]`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestVoicevox(t *testing.T, baseURL string) *Voicevox {
	t.Helper()
	v, err := NewVoicevox(Config{Kind: KindVoicevox, BaseURL: baseURL, SpeakerID: 3})
	require.NoError(t, err)
	return v
}

func TestNewVoicevox(t *testing.T) {
	t.Run("speaker resolved before any network call", func(t *testing.T) {
		t.Setenv(SpeakerEnvVar, "")
		_, err := NewVoicevox(Config{Kind: KindVoicevox})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "speaker ID")
	})

	t.Run("default base urls per kind", func(t *testing.T) {
		v, err := NewVoicevox(Config{Kind: KindVoicevox, SpeakerID: 3})
		require.NoError(t, err)
		assert.Equal(t, VoicevoxURL, v.baseURL)
		assert.Equal(t, "VOICEVOX Engine", v.Name())

		a, err := NewVoicevox(Config{Kind: KindAivisSpeech, SpeakerID: 888753760})
		require.NoError(t, err)
		assert.Equal(t, AivisSpeechURL, a.baseURL)
		assert.Equal(t, "AivisSpeech", a.Name())
	})
}

func TestVoicevoxIsAvailable(t *testing.T) {
	srv := newFakeVoicevoxServer(t)
	v := newTestVoicevox(t, srv.URL)

	assert.True(t, v.IsAvailable(context.Background()))

	down := newTestVoicevox(t, "http://127.0.0.1:1")
	assert.False(t, down.IsAvailable(context.Background()))
}

func TestVoicevoxGetReading(t *testing.T) {
	srv := newFakeVoicevoxServer(t)
	v := newTestVoicevox(t, srv.URL)

	reading, err := v.GetReading(context.Background(), "こんにちは")
	require.NoError(t, err)
	assert.Equal(t, "コンニチワ'", reading, "raw engine kana including accent marks")
}

func TestVoicevoxSynthesize(t *testing.T) {
	srv := newFakeVoicevoxServer(t)
	v := newTestVoicevox(t, srv.URL)

	data, duration, err := v.Synthesize(context.Background(), "こんにちは")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.InDelta(t, 1.0, duration, 1e-3, "duration measured from the WAV frames")
}

func TestVoicevoxSynthesizeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "engine busy", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	v := newTestVoicevox(t, srv.URL)
	_, _, err := v.Synthesize(context.Background(), "こんにちは")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestVoicevoxListSpeakers(t *testing.T) {
	srv := newFakeVoicevoxServer(t)
	v := newTestVoicevox(t, srv.URL)

	speakers, err := v.ListSpeakers(context.Background())
	require.NoError(t, err)
	require.Len(t, speakers, 1)
	assert.Equal(t, "ずんだもん", speakers[0].Name)
	require.Len(t, speakers[0].Styles, 2)
	assert.Equal(t, 3, speakers[0].Styles[0].ID)
}
