package commands

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botventic/botventic/testutil"
	"github.com/botventic/botventic/twitchapi"
)

type fakeStatus struct {
	host   string
	guilds int
	err    error
}

func (f *fakeStatus) Host() string { return f.host }

func (f *fakeStatus) GuildCount() (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.guilds, nil
}

type fakeRefresher struct{ calls atomic.Int64 }

func (f *fakeRefresher) Refresh(ctx context.Context) bool {
	f.calls.Add(1)
	return true
}

func TestDispatchUnknownCommand(t *testing.T) {
	d := New(nil, nil, nil)

	for _, words := range [][]string{
		{"hello", "world"},
		{"!unknown"},
		{""},
		{},
		nil,
	} {
		_, ok := d.Dispatch(context.Background(), words)
		assert.False(t, ok, "words %v should not match", words)
	}
}

func TestDispatchStaticReplies(t *testing.T) {
	d := New(nil, nil, nil)

	tests := []struct {
		words []string
		want  string
		ok    bool
	}{
		{[]string{"!source"}, "https://github.com/botventic/botventic", true},
		{[]string{"!frozenpizza"}, "*starts making a frozen pizza*", true},
		{[]string{"!frozen"}, "*starts making a frozen pizza*", true},
		{[]string{"!frozen", "pizza"}, "*starts making a frozen pizza*", true},
		{[]string{"!frozen", "yogurt"}, "", true},
		{[]string{"!update"}, "", true},
	}
	for _, tt := range tests {
		reply, ok := d.Dispatch(context.Background(), tt.words)
		assert.Equal(t, tt.ok, ok, "words %v", tt.words)
		assert.Equal(t, tt.want, reply, "words %v", tt.words)
	}
}

func TestStreamCommand(t *testing.T) {
	m := testutil.NewMockTwitchAPI(t)
	m.StreamLive("somestreamer", map[string]any{
		"created_at":   "2016-03-01T10:00:00Z",
		"game":         "Tetris",
		"viewers":      421,
		"video_height": 720,
		"average_fps":  59.94,
		"is_playlist":  true,
		"channel": map[string]any{
			"display_name": "SomeStreamer",
			"partner":      true,
			"status":       "chill *runs*",
		},
	})

	created := time.Date(2016, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(created.Add(26*time.Hour + 3*time.Minute + 4*time.Second))
	d := New(&twitchapi.Client{BaseURL: m.URL + "/kraken"}, nil, nil).WithClock(clock)

	reply, ok := d.Dispatch(context.Background(), []string{"!stream", "SomeStreamer"})
	require.True(t, ok)
	want := "**[SomeStreamer]**\\* (Playlist)" +
		"\n**Title**: chill \\*runs\\*" +
		"\n**Game:** Tetris" +
		"\n**Viewers**: 421" +
		"\n**Uptime**: 1 day 02:03:04" +
		"\n**Quality**: 720p60"
	assert.Equal(t, want, reply)
}

func TestStreamCommandOffline(t *testing.T) {
	m := testutil.NewMockTwitchAPI(t)
	m.StreamOffline("offlineguy")
	d := New(&twitchapi.Client{BaseURL: m.URL + "/kraken"}, nil, nil)

	reply, ok := d.Dispatch(context.Background(), []string{"!stream", "offlineguy"})
	require.True(t, ok)
	assert.Equal(t, "The channel is currently *offline*", reply)
}

func TestStreamCommandUsage(t *testing.T) {
	d := New(nil, nil, nil)
	reply, ok := d.Dispatch(context.Background(), []string{"!stream"})
	require.True(t, ok)
	assert.Equal(t, "**Usage:** !stream channel", reply)
}

func TestStreamCommandServiceFailure(t *testing.T) {
	m := testutil.NewMockTwitchAPI(t)
	m.Fail("/kraken/streams/broken", http.StatusBadGateway)
	d := New(&twitchapi.Client{BaseURL: m.URL + "/kraken"}, nil, nil)

	reply, ok := d.Dispatch(context.Background(), []string{"!stream", "broken"})
	assert.True(t, ok, "a failed lookup is still a matched command")
	assert.Equal(t, "", reply)
}

func TestChannelCommand(t *testing.T) {
	m := testutil.NewMockTwitchAPI(t)
	m.Channel("somestreamer", map[string]any{
		"display_name": "SomeStreamer",
		"partner":      false,
		"status":       "rerun *old* stuff",
		"created_at":   "2011-05-01T13:37:00Z",
		"followers":    12345,
	})
	d := New(&twitchapi.Client{BaseURL: m.URL + "/kraken"}, nil, nil)

	reply, ok := d.Dispatch(context.Background(), []string{"!channel", "SomeStreamer"})
	require.True(t, ok)
	want := "**[SomeStreamer]**" +
		"\n**Partner**: No" +
		"\n**Title**: rerun \\*old\\* stuff" +
		"\n**Registered**: 2011-05-01 13:37 UTC" +
		"\n**Followers**: 12345"
	assert.Equal(t, want, reply)
}

func TestChannelCommandUsage(t *testing.T) {
	d := New(nil, nil, nil)
	reply, ok := d.Dispatch(context.Background(), []string{"!channel"})
	require.True(t, ok)
	assert.Equal(t, "**Usage:** !channel channel", reply)
}

func TestChannelCommandMissingChannel(t *testing.T) {
	m := testutil.NewMockTwitchAPI(t)
	m.Channel("ghost", map[string]any{"error": "Not Found"})
	d := New(&twitchapi.Client{BaseURL: m.URL + "/kraken"}, nil, nil)

	reply, ok := d.Dispatch(context.Background(), []string{"!channel", "ghost"})
	assert.True(t, ok)
	assert.Equal(t, "", reply)
}

func TestUpdateEmotesTriggersRefresh(t *testing.T) {
	refresher := &fakeRefresher{}
	d := New(nil, refresher, nil)

	reply, ok := d.Dispatch(context.Background(), []string{"!update", "emotes"})
	require.True(t, ok)
	assert.Equal(t, "*updated list of known emotes*", reply)

	// The refresh runs asynchronously; the reply never waits for it.
	assert.Eventually(t, func() bool { return refresher.calls.Load() == 1 },
		time.Second, 10*time.Millisecond)
}

func TestBotStatus(t *testing.T) {
	d := New(nil, nil, &fakeStatus{host: "gateway.example.net", guilds: 42})
	reply, ok := d.Dispatch(context.Background(), []string{"!bot"})
	require.True(t, ok)
	assert.Equal(t, "Connected via `gateway.example.net`\nConnected to 42 servers.", reply)
}

func TestBotStatusError(t *testing.T) {
	d := New(nil, nil, &fakeStatus{err: fmt.Errorf("gateway not connected")})
	reply, ok := d.Dispatch(context.Background(), []string{"!bot"})
	require.True(t, ok)
	assert.Equal(t, "Error: gateway not connected", reply)
}

func TestFoodpornPicksImageFromPage(t *testing.T) {
	page := `<html><body>
		<img class="a" src="http://img.example.com/one.jpg" alt="">
		<img src='http://img.example.com/two.jpg'>
		<img src=http://img.example.com/three.jpg >
	</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	d := New(nil, nil, nil)
	d.FoodBaseURL = srv.URL

	reply, ok := d.Dispatch(context.Background(), []string{"!foodporn"})
	require.True(t, ok)
	assert.Contains(t, []string{
		"http://img.example.com/one.jpg",
		"http://img.example.com/two.jpg",
		"http://img.example.com/three.jpg",
	}, reply)
}

func TestFoodpornFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := New(nil, nil, nil)
	d.FoodBaseURL = srv.URL

	reply, ok := d.Dispatch(context.Background(), []string{"!foodporn"})
	require.True(t, ok)
	assert.Contains(t, reply, "Could not get the foodporn image. Error:")
}
