package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// OverrideCwd is set from the global --cwd flag.
var OverrideCwd string

// GetEffectiveCWD returns the directory config discovery starts from:
// the absolute --cwd when given, otherwise the process working directory.
func GetEffectiveCWD() string {
	if dir := strings.TrimSpace(OverrideCwd); dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return "."
		}
		return abs
	}

	wd, _ := os.Getwd()
	if wd == "" {
		return "."
	}
	return wd
}
