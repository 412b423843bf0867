package updater

import (
	"fmt"
	"strconv"
	"strings"
)

// Semver is a parsed semantic version. Pre-release suffixes are dropped on
// parse; release tags are compared on the numeric triple only.
type Semver struct {
	Major int
	Minor int
	Patch int
}

// ParseSemver parses "1.2.3", "v1.2.3" or "1.2.3-rc.1".
func ParseSemver(s string) (Semver, error) {
	s = strings.TrimPrefix(s, "v")
	if i := strings.IndexByte(s, '-'); i >= 0 {
		s = s[:i]
	}

	parts := strings.SplitN(s, ".", 3)
	if len(parts) != 3 {
		return Semver{}, fmt.Errorf("invalid semver: %q", s)
	}

	var v Semver
	for i, dst := range []*int{&v.Major, &v.Minor, &v.Patch} {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 {
			return Semver{}, fmt.Errorf("invalid semver component %q in %q", parts[i], s)
		}
		*dst = n
	}
	return v, nil
}

// String returns the version as "major.minor.patch".
func (v Semver) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// LessThan returns true if v < other.
func (v Semver) LessThan(other Semver) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor < other.Minor
	}
	return v.Patch < other.Patch
}
