package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/neuroplastio/neio-remote/internal/deck"
	"github.com/neuroplastio/neio-remote/internal/dispatch"
)

func testAgent(t *testing.T) *Agent {
	t.Helper()
	dir := t.TempDir()
	a := newAgent(Config{
		ConfigDir:  dir,
		DataDir:    filepath.Join(dir, "data"),
		DeckConfig: filepath.Join(dir, "deck.yml"),
		Device:     DeviceLog,
		Host:       "127.0.0.1",
	}, zap.NewNop())
	t.Cleanup(func() {
		_ = a.Close()
	})
	return a
}

func freePort(t *testing.T) uint16 {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return uint16(port)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{DeckConfig: "deck.yml", Device: DeviceLog}
	assert.NoError(t, cfg.Validate())
	cfg.Device = "serial"
	assert.ErrorContains(t, cfg.Validate(), `unknown device "serial"`)
	cfg = Config{Device: DeviceUHID}
	assert.Error(t, cfg.Validate())
}

func TestConfigRoundTrip(t *testing.T) {
	a := testAgent(t)
	cfg, err := a.Config()
	require.NoError(t, err)
	assert.Equal(t, deck.Default(), cfg)

	cfg.PIN = "4242"
	require.NoError(t, a.SaveConfig(context.Background(), cfg))

	url, err := a.ServerURL(true)
	require.NoError(t, err)
	assert.Contains(t, url, ":"+strconv.Itoa(deck.DefaultPort))
	assert.Regexp(t, `\?pin=4242$`, url)

	url, err = a.ServerURL(false)
	require.NoError(t, err)
	assert.NotContains(t, url, "pin")

	png, err := a.QRCode(128)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestRunRejectsWebDirWithoutIndex(t *testing.T) {
	a := testAgent(t)
	a.config.WebDir = t.TempDir()
	err := a.Run(context.Background())
	assert.ErrorContains(t, err, "failed to use web dir")
}

func TestClientsEmpty(t *testing.T) {
	a := testAgent(t)
	clients, err := a.Clients()
	require.NoError(t, err)
	assert.Empty(t, clients)
}

func TestRunServesActions(t *testing.T) {
	a := testAgent(t)
	cfg, err := a.Config()
	require.NoError(t, err)
	cfg.Port = freePort(t)
	cfg.PIN = "1234"
	require.NoError(t, a.SaveConfig(context.Background(), cfg))

	webDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(webDir, "index.html"), []byte("<title>custom deck</title>"), 0644))
	a.config.WebDir = webDir

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.Run(ctx)
	}()

	base := "http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(int(cfg.Port)))
	require.Eventually(t, func() bool {
		res, err := http.Get(base + "/")
		if err != nil {
			return false
		}
		defer res.Body.Close()
		page, err := io.ReadAll(res.Body)
		return err == nil && res.StatusCode == http.StatusOK && strings.Contains(string(page), "custom deck")
	}, 5*time.Second, 20*time.Millisecond)

	body, err := json.Marshal(dispatch.ActionRequest{ButtonID: "tab", PIN: "1234"})
	require.NoError(t, err)
	res, err := http.Post(base+"/api/action", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	var result dispatch.Result
	require.NoError(t, json.NewDecoder(res.Body).Decode(&result))
	res.Body.Close()
	assert.Equal(t, dispatch.Result{Success: true, Message: dispatch.MessageActionExecuted}, result)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("agent did not stop")
	}

	clients, err := a.Clients()
	require.NoError(t, err)
	assert.Empty(t, clients, "only auth and stream visits are recorded")
}
