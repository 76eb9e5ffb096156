package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	fileNameMax = 200
)

// Characters that are either path separators or reserved on common
// filesystems.
var filenameReplacePattern = regexp.MustCompile(`[/\\:*?"<>|\x00-\x1f]+`)

// FileName turns an arbitrary name (e.g., a repository name) into something
// safe to use as a single path component. Unlike a slug, it keeps case,
// spaces, and punctuation that filesystems accept, so that the file stays
// recognisable.
func FileName(name string) string {
	name = filenameReplacePattern.ReplaceAllString(name, "-")
	name = strings.TrimSpace(name)
	if len(name) > fileNameMax {
		name = name[:runeBoundary(name, fileNameMax)]
	}
	switch name {
	case "", ".", "..":
		return "_"
	}
	return name
}

// runeBoundary returns the largest index <= n at which s can be cut without
// splitting a UTF-8 sequence.
func runeBoundary(s string, n int) int {
	for n > 0 && n < len(s) && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}
