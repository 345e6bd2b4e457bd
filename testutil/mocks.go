// Package testutil provides httptest-backed mock servers for the external
// services the bot talks to: the Twitch API and the three emote sources.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockServer routes requests by path to registered handlers.
type MockServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

func newMockServer(t *testing.T) *MockServer {
	t.Helper()
	m := &MockServer{Handlers: make(map[string]http.HandlerFunc)}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := m.Handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// Fail makes the given path return the provided status code.
func (m *MockServer) Fail(path string, status int) {
	m.Handlers[path] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}
}

func (m *MockServer) respondJSON(path string, body any) {
	m.Handlers[path] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // test mock response
	}
}

// MockEmoteSources mocks the Twitch, BetterTTV and FrankerFaceZ emote
// endpoints under one server.
type MockEmoteSources struct{ *MockServer }

func NewMockEmoteSources(t *testing.T) *MockEmoteSources {
	return &MockEmoteSources{newMockServer(t)}
}

type TwitchEmote struct {
	ID   int
	Code string
	Set  int
}

type BTTVEmote struct {
	ID   string
	Code string
}

type FFZEmote struct {
	ID   int
	Name string
}

// TwitchEmotes registers the kraken emoticon_images payload.
func (m *MockEmoteSources) TwitchEmotes(emotes ...TwitchEmote) {
	list := make([]map[string]any, 0, len(emotes))
	for _, e := range emotes {
		list = append(list, map[string]any{"id": e.ID, "code": e.Code, "emoticon_set": e.Set})
	}
	m.respondJSON("/kraken/chat/emoticon_images", map[string]any{"emoticons": list})
}

// BTTVEmotes registers the BetterTTV v2 payload with its URL template.
func (m *MockEmoteSources) BTTVEmotes(template string, emotes ...BTTVEmote) {
	list := make([]map[string]any, 0, len(emotes))
	for _, e := range emotes {
		list = append(list, map[string]any{"id": e.ID, "code": e.Code})
	}
	m.respondJSON("/2/emotes", map[string]any{"status": 200, "urlTemplate": template, "emotes": list})
}

// FFZEmotes registers the FrankerFaceZ global set payload.
func (m *MockEmoteSources) FFZEmotes(emotes ...FFZEmote) {
	list := make([]map[string]any, 0, len(emotes))
	for _, e := range emotes {
		list = append(list, map[string]any{"id": e.ID, "name": e.Name})
	}
	m.respondJSON("/v1/set/global", map[string]any{
		"default_sets": []int{3},
		"sets":         map[string]any{"3": map[string]any{"emoticons": list}},
	})
}

// MockTwitchAPI mocks the kraken streams/channels endpoints used by the
// stream info client.
type MockTwitchAPI struct{ *MockServer }

func NewMockTwitchAPI(t *testing.T) *MockTwitchAPI {
	return &MockTwitchAPI{newMockServer(t)}
}

// StreamOffline registers an offline streams payload for the channel.
func (m *MockTwitchAPI) StreamOffline(channel string) {
	m.respondJSON("/kraken/streams/"+channel, map[string]any{"stream": nil})
}

// StreamLive registers a live streams payload for the channel.
func (m *MockTwitchAPI) StreamLive(channel string, stream map[string]any) {
	m.respondJSON("/kraken/streams/"+channel, map[string]any{"stream": stream})
}

// Channel registers a channels payload.
func (m *MockTwitchAPI) Channel(channel string, body map[string]any) {
	m.respondJSON("/kraken/channels/"+channel, body)
}
