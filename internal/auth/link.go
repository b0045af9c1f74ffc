package auth

import (
	"net/url"
	"strings"
)

const verificationPath = "/unity-auth"

// VerificationURL builds the browser link where the user approves a session.
func VerificationURL(webBase, sessionID, version string) string {
	q := url.Values{}
	q.Set("sessionId", sessionID)
	q.Set("version", version)
	return strings.TrimRight(webBase, "/") + verificationPath + "?" + q.Encode()
}
