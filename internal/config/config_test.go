package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const validConfig = `{
  "description": "news channel",
  "source": {
    "ingest_port": 5004,
    "container": "mpeg-ts",
    "codec": "h264",
    "transport": {"protocol": "rtp"}
  },
  "transitions": [
    {
      "from": {"frame_type": "content"},
      "to": {"frame_type": "slate", "slate_context": {"url": "file:///slates/bars.png"}},
      "actions": [
        {"type": "http_call", "method": "POST", "url": "https://example.com/hook"}
      ]
    }
  ]
}`

func TestLoad_ValidConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, validConfig)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.SamplingIntervalMs)
	assert.Equal(t, 0.95, cfg.MatchThreshold)
	assert.Equal(t, 2, cfg.StableFrames)
	assert.Equal(t, 4, cfg.ActionParallelism)
	require.Len(t, cfg.Transitions[0].Actions, 1)
	assert.Equal(t, 10, cfg.Transitions[0].Actions[0].Timeout)
	assert.Equal(t, 5, cfg.Transitions[0].Actions[0].CooldownSeconds)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestLoad_RejectsBadPort(t *testing.T) {
	path := writeConfig(t, `{
		"source": {"ingest_port": 0, "container": "mpeg-ts", "codec": "h264", "transport": {"protocol": "rtp"}},
		"transitions": [{"from": {"frame_type": "content"}, "to": {"frame_type": "content"}}]
	}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_RejectsUnsupportedSlateScheme(t *testing.T) {
	path := writeConfig(t, `{
		"source": {"ingest_port": 5004, "container": "mpeg-ts", "codec": "h264", "transport": {"protocol": "rtp"}},
		"transitions": [{
			"from": {"frame_type": "content"},
			"to": {"frame_type": "slate", "slate_context": {"url": "https://example.com/bars.png"}}
		}]
	}`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scheme")
}

func TestLoad_RejectsEmptyTransitions(t *testing.T) {
	path := writeConfig(t, `{
		"source": {"ingest_port": 5004, "container": "mpeg-ts", "codec": "h264", "transport": {"protocol": "rtp"}},
		"transitions": []
	}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_RejectsMalformedJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)
	_, err := Load(path)
	require.Error(t, err)
}
