package install

import (
	"os"
	"regexp"
	"strings"
)

var (
	// Signed download links carry their credentials in the query string.
	urlQueryPattern = regexp.MustCompile(`(https?://[^\s?#"']+)\?[^\s"']*`)
	linuxHome       = regexp.MustCompile(`/home/[^/\s]+`)
	macHome         = regexp.MustCompile(`/Users/[^/\s]+`)
)

// redactSensitiveInfo removes URL query strings and user home paths
// from a message and limits its length.
func redactSensitiveInfo(msg string) string {
	msg = urlQueryPattern.ReplaceAllString(msg, "$1?<redacted>")

	if home, err := os.UserHomeDir(); err == nil && home != "" && home != "/" {
		msg = strings.ReplaceAll(msg, home, "$HOME")
	}
	msg = linuxHome.ReplaceAllString(msg, "/home/<user>")
	msg = macHome.ReplaceAllString(msg, "/Users/<user>")

	const maxLen = 200
	if len(msg) > maxLen {
		msg = msg[:maxLen] + "..."
	}
	return msg
}
