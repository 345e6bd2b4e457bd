package emotes

import "strings"

// Resolve maps an emote code to its image URL using this catalog version.
//
// Two passes over the entries: first case-sensitive, then case-insensitive if
// nothing matched. Within a pass, the first entry in a global set wins
// immediately; otherwise the match with the highest set id is kept until the
// scan reaches the end.
func (c *Catalog) Resolve(code string) (string, bool) {
	if e, ok := c.lookup(code, false); ok {
		return c.url(e), true
	}
	if e, ok := c.lookup(code, true); ok {
		return c.url(e), true
	}
	return "", false
}

func (c *Catalog) lookup(code string, fold bool) (Emote, bool) {
	var best Emote
	bestSet := -2
	found := false
	for _, e := range c.Emotes {
		if fold {
			if !strings.EqualFold(e.Code, code) {
				continue
			}
		} else if e.Code != code {
			continue
		}
		if isGlobalSet(e.Set) {
			return e, true
		}
		if e.Set > bestSet {
			best, bestSet, found = e, e.Set, true
		}
	}
	return best, found
}

func (c *Catalog) url(e Emote) string {
	switch e.Source {
	case Twitch:
		return "http://emote.3v.fi/2.0/" + e.ID + ".png"
	case BetterTTV:
		t := strings.ReplaceAll(c.BTTVTemplate, "{{id}}", e.ID)
		t = strings.ReplaceAll(t, "{{image}}", "2x")
		return "https:" + t
	case FrankerFaceZ:
		return "http://cdn.frankerfacez.com/emoticon/" + e.ID + "/2"
	}
	return ""
}
