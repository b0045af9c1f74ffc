// Package platform describes the host prokit runs on.
//
// The description is sent to the package service as part of the
// User-Agent header so that support requests can be correlated with
// the client environment. Detection uses gopsutil and degrades to
// runtime.GOOS/GOARCH when the host cannot be inspected.
package platform

import "context"

// Info contains platform detection information.
type Info struct {
	OS       string // "linux", "darwin", "windows"
	Arch     string // normalized: "amd64", "arm64", "386", "arm" or the raw GOARCH
	ArchRaw  string // original GOARCH
	Platform string // distribution or product id, e.g. "ubuntu", "darwin", "Microsoft Windows 11 Pro"
	Version  string // platform version, e.g. "22.04", "14.5"
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "windows"
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}
