package splat

import (
	"runtime"

	"golang.org/x/mod/semver"

	"github.com/kolkov/splat/internal/kmutex"
	"github.com/kolkov/splat/internal/subsys/mutex"
)

// Version information for the harness.
const (
	// Version is the current version of the harness.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// SemVer returns Version in the "vMAJOR.MINOR.PATCH" form.
func SemVer() string {
	return "v" + Version
}

// Compatible reports whether this harness satisfies a minimum version
// requirement such as "v0.1" or "v0.1.0".
func Compatible(required string) bool {
	return semver.IsValid(required) && semver.Compare(SemVer(), required) >= 0
}

// Info provides build and runtime information about the harness.
type Info struct {
	// Version is the harness version string.
	Version string

	// GoVersion is the Go runtime the harness was built with.
	GoVersion string

	// Subsystem is the id and name of the built-in subsystem.
	Subsystem Desc

	// MutexKinds lists the built-in mutex implementations.
	MutexKinds []string
}

// GetInfo returns information about the harness.
//
// Example:
//
//	info := splat.GetInfo()
//	fmt.Printf("splat %s (%s)\n", info.Version, info.GoVersion)
func GetInfo() Info {
	return Info{
		Version:    Version,
		GoVersion:  runtime.Version(),
		Subsystem:  Desc{ID: mutex.SubsystemID, Name: mutex.Name, Desc: mutex.Desc},
		MutexKinds: kmutex.Kinds(),
	}
}
