package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("unknown kind rejected", func(t *testing.T) {
		_, err := New(context.Background(), Config{Kind: "espeak"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "espeak")
	})

	t.Run("voicevox family", func(t *testing.T) {
		eng, err := New(context.Background(), Config{Kind: KindVoicevox, SpeakerID: 3})
		require.NoError(t, err)
		assert.Equal(t, KindVoicevox, eng.Kind())

		eng, err = New(context.Background(), Config{Kind: KindAivisSpeech, SpeakerID: 888753760})
		require.NoError(t, err)
		assert.Equal(t, KindAivisSpeech, eng.Kind())
	})

	t.Run("openai requires credentials", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")
		_, err := New(context.Background(), Config{Kind: KindOpenAI})
		assert.Error(t, err)
	})
}
