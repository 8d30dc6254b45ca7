package protocol

import "fmt"

// Version is a version number as int
type Version uint32

// The version numbers, making grepping easier
const (
	// VersionDraft19 is the wire version of draft-ietf-quic-transport-19
	VersionDraft19 Version = 0xff000013
	// VersionUnknown is an invalid version
	VersionUnknown Version = 0
)

// SupportedVersions lists the versions that the server supports, in descending order of preference
var SupportedVersions = []Version{VersionDraft19}

// IsSupportedVersion returns true if the server supports this version
func IsSupportedVersion(supported []Version, v Version) bool {
	for _, t := range supported {
		if t == v {
			return true
		}
	}
	return false
}

func (v Version) String() string {
	if v == VersionUnknown {
		return "unknown"
	}
	return fmt.Sprintf("%#x", uint32(v))
}
