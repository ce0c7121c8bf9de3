package protocol

import (
	"fmt"
	"sort"
)

// Protocol revisions this engine understands, oldest first. Revisions are
// date strings, so lexical order is chronological order.
var SupportedVersions = []string{
	"2024-11-05",
	"2025-03-26",
}

// LatestVersion returns the newest supported protocol revision.
func LatestVersion() string {
	return SupportedVersions[len(SupportedVersions)-1]
}

// VersionMismatchError reports that no mutually supported protocol revision
// exists. It is carried as structured error data so the peer can retry with
// one of the supported revisions.
type VersionMismatchError struct {
	Supported []string `json:"supported"`
	Requested string   `json:"requested"`
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("unsupported protocol version %q (supported: %v)", e.Requested, e.Supported)
}

// NegotiateVersion selects the protocol revision for a session. The server
// is authoritative: it picks the newest revision it supports that is not
// newer than the one the client requested. A request older than everything
// the server supports has no overlap and fails.
func NegotiateVersion(requested string) (string, error) {
	if IsSupportedVersion(requested) {
		return requested, nil
	}

	// Walk newest-first for the highest revision still within the
	// client's declared range.
	sorted := append([]string(nil), SupportedVersions...)
	sort.Sort(sort.Reverse(sort.StringSlice(sorted)))
	for _, v := range sorted {
		if v < requested {
			return v, nil
		}
	}

	return "", &VersionMismatchError{
		Supported: append([]string(nil), SupportedVersions...),
		Requested: requested,
	}
}

// IsSupportedVersion reports whether a protocol revision is supported as-is.
func IsSupportedVersion(version string) bool {
	for _, v := range SupportedVersions {
		if v == version {
			return true
		}
	}
	return false
}
