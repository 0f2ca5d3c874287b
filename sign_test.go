package main

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gh "github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/robinrelay/internal/config"
)

// The helper's output must be accepted by the server side validation.
func TestSignPayload_RoundTrip(t *testing.T) {
	payload := []byte(`{"action":"opened","number":1}`)
	signature := signPayload([]byte("topsecret"), payload)

	req, err := http.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signatureHeader, signature)

	body, err := gh.ValidatePayload(req, []byte("topsecret"))
	require.NoError(t, err)
	assert.Equal(t, payload, body)
}

func TestSignCmd(t *testing.T) {
	cfg = &config.Config{}
	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))

	var out bytes.Buffer
	cmd := newSignCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--secret", "s", path})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), signatureHeader)
	assert.Contains(t, out.String(), signPayload([]byte("s"), []byte(`{}`)))
}

func TestSignCmd_ReadsStdin(t *testing.T) {
	cfg = &config.Config{GitHub: config.GitHub{WebhookSecret: "from-config"}}

	var out bytes.Buffer
	cmd := newSignCmd()
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("hello"))
	cmd.SetArgs([]string{"-"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), signPayload([]byte("from-config"), []byte("hello")))
}

func TestSignCmd_RequiresSecret(t *testing.T) {
	cfg = &config.Config{}

	cmd := newSignCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-"})
	assert.Error(t, cmd.Execute())
}
