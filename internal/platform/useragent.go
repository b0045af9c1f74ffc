package platform

import (
	"fmt"
	"strings"
)

// UserAgent builds the User-Agent header value for requests to the
// package service, e.g. "prokit/0.3.0 (linux; amd64; ubuntu 22.04)".
// A nil info yields the bare product token.
func UserAgent(product, version string, info *Info) string {
	token := product
	if version != "" {
		token = fmt.Sprintf("%s/%s", product, strings.TrimPrefix(version, "v"))
	}
	if info == nil {
		return token
	}

	parts := []string{info.OS, info.Arch}
	if info.Platform != "" {
		p := info.Platform
		if info.Version != "" {
			p += " " + info.Version
		}
		parts = append(parts, p)
	}

	var nonEmpty []string
	for _, part := range parts {
		if part != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}
	if len(nonEmpty) == 0 {
		return token
	}

	return fmt.Sprintf("%s (%s)", token, strings.Join(nonEmpty, "; "))
}
