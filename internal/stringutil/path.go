// Package stringutil holds string helpers shared by the validators.
package stringutil

import "strings"

// DotPath converts a JSON pointer ("/album/tracks/0") to dot notation
// ("album.tracks.0") and appends field when given. Leading and trailing
// dots are trimmed.
func DotPath(pointer, field string) string {
	path := strings.ReplaceAll(strings.Trim(pointer, "/"), "/", ".")
	path = strings.ReplaceAll(strings.ReplaceAll(path, "~1", "/"), "~0", "~")
	if field != "" {
		path += "." + field
	}
	return strings.Trim(path, ".")
}
