package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botventic/botventic/chat"
	"github.com/botventic/botventic/emotes"
	"github.com/botventic/botventic/telemetry"
)

func TestMain(m *testing.M) {
	telemetry.Init()
	m.Run()
}

type stubAdapter struct{ backlog int }

func (s *stubAdapter) Send(ctx context.Context, channelID, content string) (chat.MessageRef, error) {
	return chat.MessageRef{}, nil
}

func (s *stubAdapter) Edit(ctx context.Context, ref chat.MessageRef, content string) error {
	return nil
}

func (s *stubAdapter) Backlog() int { return s.backlog }

type stubStatus struct {
	host   string
	guilds int
	err    error
}

func (s *stubStatus) Host() string { return s.host }

func (s *stubStatus) GuildCount() (int, error) { return s.guilds, s.err }

func testDeps() Deps {
	store := emotes.NewStore()
	store.Publish(&emotes.Catalog{Emotes: []emotes.Emote{
		{ID: "1", Code: "foo", Source: emotes.Twitch},
		{ID: "2", Code: "bar", Source: emotes.BetterTTV},
	}})
	return Deps{
		Catalog: store,
		Adapter: &stubAdapter{backlog: 3},
		Status:  &stubStatus{host: "gateway.example.net", guilds: 7},
	}
}

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(NewMux(testDeps()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(NewMux(testDeps()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, float64(2), body["emotes"])
	assert.Equal(t, float64(3), body["send_backlog"])
	assert.Equal(t, "gateway.example.net", body["gateway_host"])
	assert.Equal(t, float64(7), body["guilds"])
}

func TestStatusGatewayError(t *testing.T) {
	deps := testDeps()
	deps.Status = &stubStatus{err: fmt.Errorf("gateway not connected")}
	srv := httptest.NewServer(NewMux(deps))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "gateway not connected", body["guilds_error"])
	_, present := body["guilds"]
	assert.False(t, present)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := httptest.NewServer(NewMux(testDeps()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCorrelationIDHeader(t *testing.T) {
	srv := httptest.NewServer(NewMux(testDeps()))
	defer srv.Close()

	// Provided IDs are echoed back.
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Correlation-ID", "corr-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "corr-123", resp.Header.Get("X-Correlation-ID"))

	// Missing IDs get generated.
	resp2, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	assert.NotEmpty(t, resp2.Header.Get("X-Correlation-ID"))
}
