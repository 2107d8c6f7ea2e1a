package shuttle

import (
	"regexp"
	"strings"
)

// Search filters entries whose name matches pattern, case-insensitively.
// '*' matches any run of characters; everything else must match literally,
// so a pattern without '*' matches the whole name only. An empty pattern
// returns entries unchanged.
func Search(entries []FileEntry, pattern string) []FileEntry {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return entries
	}
	re := compileGlob(pattern)
	out := make([]FileEntry, 0, len(entries))
	for _, e := range entries {
		if re.MatchString(e.Name) {
			out = append(out, e)
		}
	}
	return out
}

func compileGlob(pattern string) *regexp.Regexp {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`(?is)^` + strings.Join(parts, ".*") + `$`)
}
