package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/botventic/botventic/emotes"
)

// transform scans the tokens from last to first and returns the text produced
// by the first one that yields anything: an emote image URL for `#code` or
// `:code:` tokens, or a temperature conversion for `C`/`F` preceded by an
// integer. Later-scanned (earlier-in-sentence) transforms are not applied
// once one is found.
func transform(cat *emotes.Catalog, words []string) string {
	for i := len(words) - 1; i >= 0; i-- {
		w := words[i]

		var code string
		if strings.HasPrefix(w, "#") {
			code = w[1:]
		} else if len(w) > 2 && strings.HasPrefix(w, ":") && strings.HasSuffix(w, ":") {
			code = w[1 : len(w)-1]
		}
		if code != "" {
			if url, ok := cat.Resolve(code); ok {
				return url
			}
		}

		switch w {
		case "C":
			if i >= 1 {
				if c, err := strconv.Atoi(words[i-1]); err == nil {
					return fmt.Sprintf("%d °C = %d °F", c, c*9/5+32)
				}
			}
		case "F":
			if i >= 1 {
				if f, err := strconv.Atoi(words[i-1]); err == nil {
					return fmt.Sprintf("%d °F = %d °C", f, (f-32)*5/9)
				}
			}
		}
	}
	return ""
}
