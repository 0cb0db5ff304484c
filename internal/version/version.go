package version

import (
	"fmt"

	"github.com/hashicorp/go-version"
)

// Version is the semantic version of upline
const Version = "0.1.0"

func Parse(v string) (*version.Version, error) {
	return version.NewVersion(v)
}

// Current returns the current version as a parsed version object
// Panics if Version constant is not a valid semantic version
func Current() *version.Version {
	v, err := Parse(Version)
	if err != nil {
		panic(fmt.Sprintf("invalid version constant %q: %v", Version, err))
	}
	return v
}

func String() string {
	return Version
}

// CompatibilityResult is the outcome of comparing the version a config file
// was written for with the running binary.
type CompatibilityResult struct {
	Compatible    bool
	Current       string
	ConfigVersion string
	Message       string
}

// CheckConfig checks a config file's version field. An empty field is
// always compatible; files written for a newer major version, or with an
// unparseable version, are not.
func CheckConfig(configVersion string) *CompatibilityResult {
	cur := Current()
	res := &CompatibilityResult{
		Compatible: true,
		Current:    "v" + cur.String(),
	}
	if configVersion == "" {
		return res
	}

	v, err := Parse(configVersion)
	if err != nil {
		res.Compatible = false
		res.ConfigVersion = "unknown"
		res.Message = fmt.Sprintf("Unable to parse config version %q", configVersion)
		return res
	}
	res.ConfigVersion = "v" + v.String()

	if v.Segments()[0] > cur.Segments()[0] {
		res.Compatible = false
		res.Message = fmt.Sprintf("Config written for %s, running %s", res.ConfigVersion, res.Current)
	}

	return res
}
