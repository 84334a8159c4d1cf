package analysiscache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint derives the deterministic cache key for a profile payload:
// a sha256 digest over the normalized triple of profile URL, headline and the
// ordered experience titles. Field names vary between the scraping clients, so
// each component is resolved by trying the known aliases in order and falling
// back to the empty string. The digest is structural, not semantic: editing a
// headline produces a fresh fingerprint and a cache miss, which is the
// intended tradeoff against serving an analysis of unrelated content.
func Fingerprint(profile map[string]interface{}) string {
	url := firstString(profile, "profile_url", "url", "publicIdentifier", "public_identifier")
	headline := firstString(profile, "headline", "title", "bio")
	titles := experienceTitles(profile)

	parts := []string{strings.TrimSpace(url), strings.TrimSpace(headline), strings.Join(titles, "|")}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func firstString(profile map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := profile[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// experienceTitles extracts position titles from whichever shape the client
// sent: a list of plain strings or a list of objects carrying the title under
// one of several keys.
func experienceTitles(profile map[string]interface{}) []string {
	var raw interface{}
	for _, key := range []string{"experience", "positions", "experience_titles"} {
		if v, ok := profile[key]; ok && v != nil {
			raw = v
			break
		}
	}

	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}

	var titles []string
	for _, item := range items {
		switch entry := item.(type) {
		case string:
			titles = append(titles, strings.TrimSpace(entry))
		case map[string]interface{}:
			if title := firstString(entry, "title", "position", "role", "headline"); title != "" {
				titles = append(titles, strings.TrimSpace(title))
			}
		}
	}
	return titles
}
