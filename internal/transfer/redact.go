package transfer

import "net/url"

// RedactURL strips credentials, query and fragment from raw so signed
// download links can be logged. Unparseable input is replaced entirely.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "<redacted>"
	}

	redacted := url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}
	out := redacted.String()
	if u.RawQuery != "" {
		out += "?<redacted>"
	}
	return out
}
