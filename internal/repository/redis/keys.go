package redis

import "net/url"

// keyPart escapes a caller-supplied identifier for use inside a composite
// key. Document and user IDs are free-form; an unescaped ":" in one would
// alias another key's structure, so a whole lock on document "a:s:b" would
// read back as a section lock on document "a". Escaping also keeps glob
// metacharacters out of the patterns handed to KEYS.
func keyPart(id string) string {
	return url.QueryEscape(id)
}
