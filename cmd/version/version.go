package version

import (
	"fmt"
	"strings"

	semver "github.com/Masterminds/semver/v3"
)

// CurrentVersion is set by build flags during release builds
var CurrentVersion = "dev"

// Compatibility is the outcome of comparing this client with a server's minimum.
type Compatibility struct {
	Current    string
	Required   string
	Compatible bool
	// Known is false when either side is not a semantic version (dev builds,
	// missing header); such clients are treated as compatible.
	Known bool
}

// CheckCompatibility compares CurrentVersion against the server's minimum
// supported client version.
func CheckCompatibility(minRequired string) Compatibility {
	return compare(CurrentVersion, minRequired)
}

func compare(current, minRequired string) Compatibility {
	c := Compatibility{
		Current:    FormatVersionForDisplay(current),
		Required:   FormatVersionForDisplay(minRequired),
		Compatible: true,
	}
	_, cur := normalizeForSemver(current)
	_, req := normalizeForSemver(minRequired)
	if cur == nil || req == nil {
		return c
	}
	c.Known = true
	c.Compatible = !cur.LessThan(req)
	return c
}

// Warning describes an outdated client, or returns "" when there is nothing to say.
func (c Compatibility) Warning() string {
	if c.Compatible {
		return ""
	}
	return fmt.Sprintf("storeseo %s is older than the server's minimum supported client %s; some replies may not render correctly", c.Current, c.Required)
}

func normalizeForSemver(raw string) (string, *semver.Version) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed, nil
	}
	normalized := strings.TrimPrefix(strings.TrimPrefix(trimmed, "v"), "V")
	parsed, err := semver.NewVersion(normalized)
	if err != nil {
		return normalized, nil
	}
	return normalized, parsed
}

// FormatVersionForDisplay ensures a single "v" prefix.
// Examples: "v1.0.0" -> "v1.0.0", "1.0.0" -> "v1.0.0", "" -> "unknown"
func FormatVersionForDisplay(version string) string {
	v := strings.TrimSpace(version)
	if v == "" {
		return "unknown"
	}
	if v == "dev" || strings.HasPrefix(v, "v") || strings.HasPrefix(v, "V") {
		return v
	}
	return "v" + v
}
