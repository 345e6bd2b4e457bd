package emotes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveGlobalSetWins(t *testing.T) {
	// A global-set entry beats a higher channel set regardless of scan order.
	cat := &Catalog{Emotes: []Emote{
		{ID: "1", Code: "foo", Source: Twitch, Set: 12},
		{ID: "2", Code: "foo", Source: Twitch, Set: 457},
	}}
	url, ok := cat.Resolve("foo")
	assert.True(t, ok)
	assert.Equal(t, "http://emote.3v.fi/2.0/2.png", url)

	// Same result with the global entry first.
	cat = &Catalog{Emotes: []Emote{
		{ID: "2", Code: "foo", Source: Twitch, Set: 457},
		{ID: "1", Code: "foo", Source: Twitch, Set: 12},
	}}
	url, ok = cat.Resolve("foo")
	assert.True(t, ok)
	assert.Equal(t, "http://emote.3v.fi/2.0/2.png", url)
}

func TestResolveHighestSetFallback(t *testing.T) {
	cat := &Catalog{Emotes: []Emote{
		{ID: "1", Code: "foo", Source: Twitch, Set: 12},
		{ID: "2", Code: "foo", Source: Twitch, Set: 9000},
		{ID: "3", Code: "foo", Source: Twitch, Set: 30},
	}}
	url, ok := cat.Resolve("foo")
	assert.True(t, ok)
	assert.Equal(t, "http://emote.3v.fi/2.0/2.png", url)
}

func TestResolveCaseSensitivity(t *testing.T) {
	// Only a differently-cased entry: found in the case-insensitive pass.
	cat := &Catalog{Emotes: []Emote{
		{ID: "10", Code: "FOO", Source: Twitch, Set: 0},
	}}
	url, ok := cat.Resolve("foo")
	assert.True(t, ok)
	assert.Equal(t, "http://emote.3v.fi/2.0/10.png", url)

	// Exact-case entry wins over a differently-cased one even when the
	// latter appears first.
	cat = &Catalog{Emotes: []Emote{
		{ID: "10", Code: "FOO", Source: Twitch, Set: 0},
		{ID: "11", Code: "foo", Source: Twitch, Set: 0},
	}}
	url, ok = cat.Resolve("foo")
	assert.True(t, ok)
	assert.Equal(t, "http://emote.3v.fi/2.0/11.png", url)
}

func TestResolveNoMatch(t *testing.T) {
	cat := &Catalog{Emotes: []Emote{{ID: "1", Code: "foo", Source: Twitch, Set: 0}}}
	_, ok := cat.Resolve("bar")
	assert.False(t, ok)

	_, ok = (&Catalog{}).Resolve("foo")
	assert.False(t, ok)
}

func TestURLSynthesisPerSource(t *testing.T) {
	cat := &Catalog{
		Emotes: []Emote{
			{ID: "123", Code: "tw", Source: Twitch, Set: 0},
			{ID: "54fa8f1401e468494b85b537", Code: "bv", Source: BetterTTV},
			{ID: "25927", Code: "ff", Source: FrankerFaceZ},
		},
		BTTVTemplate: "//cdn.betterttv.net/emote/{{id}}/{{image}}",
	}

	url, _ := cat.Resolve("tw")
	assert.Equal(t, "http://emote.3v.fi/2.0/123.png", url)

	url, _ = cat.Resolve("bv")
	assert.Equal(t, "https://cdn.betterttv.net/emote/54fa8f1401e468494b85b537/2x", url)

	url, _ = cat.Resolve("ff")
	assert.Equal(t, "http://cdn.frankerfacez.com/emoticon/25927/2", url)
}
