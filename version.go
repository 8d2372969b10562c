package layercfg

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	versionMajorBits = 10
	versionMinorBits = 10
	versionPatchBits = 12

	versionMajorShift = versionMinorBits + versionPatchBits
	versionMinorShift = versionPatchBits

	versionMajorMax = 1<<versionMajorBits - 1
	versionMinorMax = 1<<versionMinorBits - 1
	versionPatchMax = 1<<versionPatchBits - 1
)

// Version is a packed (major, minor, patch) triple. Ordering is the numeric
// ordering of the packed value, never the ordering of the dotted string.
type Version uint32

// NewVersion packs the three components. Components wider than their field
// are truncated to the field width.
func NewVersion(major, minor, patch uint32) Version {
	return Version((major&versionMajorMax)<<versionMajorShift |
		(minor&versionMinorMax)<<versionMinorShift |
		patch&versionPatchMax)
}

// ParseVersion reads a dotted version string. Missing trailing components
// default to zero so "1" and "1.2" are accepted.
func ParseVersion(value string) (Version, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("layercfg: version is empty")
	}
	parts := strings.Split(trimmed, ".")
	if len(parts) > 3 {
		return 0, fmt.Errorf("layercfg: version %q has more than three components", value)
	}

	limits := [3]uint64{versionMajorMax, versionMinorMax, versionPatchMax}
	var components [3]uint32
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("layercfg: version %q: invalid component %q", value, part)
		}
		if n > limits[i] {
			return 0, fmt.Errorf("layercfg: version %q: component %d exceeds %d", value, n, limits[i])
		}
		components[i] = uint32(n)
	}
	return NewVersion(components[0], components[1], components[2]), nil
}

// MustParseVersion is ParseVersion for package-level tables of known-good
// literals. It panics on malformed input.
func MustParseVersion(value string) Version {
	v, err := ParseVersion(value)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) Major() uint32 { return uint32(v) >> versionMajorShift }

func (v Version) Minor() uint32 { return uint32(v) >> versionMinorShift & versionMinorMax }

func (v Version) Patch() uint32 { return uint32(v) & versionPatchMax }

// Compare returns -1, 0 or +1.
func (v Version) Compare(other Version) int {
	switch {
	case v < other:
		return -1
	case v > other:
		return 1
	default:
		return 0
	}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
}
