// Package emotes maintains a versioned catalog of chat emotes from Twitch,
// BetterTTV and FrankerFaceZ, and resolves short text tokens to emote image URLs.
//
// The catalog is rebuilt wholesale by a Refresher and published with a single
// atomic swap; readers always see a complete version, never a partial merge.
package emotes

import (
	"sync/atomic"

	"github.com/botventic/botventic/telemetry"
)

// Source identifies which service an emote came from.
type Source int

const (
	Twitch Source = iota
	BetterTTV
	FrankerFaceZ
)

func (s Source) String() string {
	switch s {
	case Twitch:
		return "twitch"
	case BetterTTV:
		return "bttv"
	case FrankerFaceZ:
		return "ffz"
	}
	return "unknown"
}

// Global emote sets are universally available and take resolution priority
// over channel or subscriber specific sets.
func isGlobalSet(set int) bool { return set == 0 || set == 457 }

// Emote is a single catalog entry. Identity is (Code, Source); multiple
// entries may share a code across sets. Immutable once constructed.
type Emote struct {
	ID     string
	Code   string
	Source Source
	Set    int
}

// Catalog is one complete, atomically published snapshot of all known emotes.
// Entries are ordered Twitch (global sets first, then ascending set id),
// then BetterTTV, then FrankerFaceZ. BTTVTemplate is the URL template that
// shipped with the BetterTTV portion of this version.
type Catalog struct {
	Emotes       []Emote
	BTTVTemplate string
}

// Store holds the current catalog version. Readers take a lock-free snapshot
// reference; the Refresher owns the single writable reference.
type Store struct {
	current atomic.Pointer[Catalog]
}

func NewStore() *Store {
	s := &Store{}
	s.current.Store(&Catalog{})
	return s
}

// Current returns the current catalog version. Never nil.
func (s *Store) Current() *Catalog {
	return s.current.Load()
}

// Publish replaces the current version with a fully built catalog. The
// Refresher is the only production writer; tests may seed versions directly.
func (s *Store) Publish(c *Catalog) {
	s.current.Store(c)
	telemetry.SetCatalogSize(len(c.Emotes))
}
