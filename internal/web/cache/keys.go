package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// Key derives the cache key for an upstream request. Query parameters are
// encoded in sorted order so equivalent requests share a key.
func Key(method, uri string, query url.Values) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(method))
	b.WriteByte(' ')
	b.WriteString(uri)
	if len(query) > 0 {
		b.WriteByte('?')
		b.WriteString(query.Encode())
	}

	sum := sha256.Sum256([]byte(b.String()))
	return "fetch:" + hex.EncodeToString(sum[:16])
}
