package util

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
)

var unsafeChars = regexp.MustCompile(`[\x00\\/:*?"<>|]`)

// SanitizeFilename strips characters that are unsafe in filenames and
// leading dots/dashes. An empty result becomes "untitled".
func SanitizeFilename(filename string) string {
	safe := unsafeChars.ReplaceAllString(filename, "-")
	safe = strings.ReplaceAll(safe, "\x00", "-")

	for strings.HasPrefix(safe, ".") || strings.HasPrefix(safe, "-") {
		safe = safe[1:]
	}
	if safe == "" {
		safe = "untitled"
	}
	return safe
}

// RandomFileName returns a random hex name with the given extension,
// used to store uploads without trusting client-provided names.
func RandomFileName(ext string) string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b) + ext
}
