package runtime

import (
	goruntime "runtime"
)

// Platform identifies a manifest entry.
type Platform struct {
	// OS is one of windows, osx and linux.
	OS string
	// Arch is one of x64, x86 and arm64.
	Arch string
}

// String returns os/arch.
func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// CurrentPlatform maps the running Go platform to manifest names.
func CurrentPlatform() Platform {
	return PlatformOf(goruntime.GOOS, goruntime.GOARCH)
}

// PlatformOf maps a GOOS/GOARCH pair to manifest names. Unknown values pass through.
func PlatformOf(goos, goarch string) Platform {
	platform := Platform{OS: goos, Arch: goarch}

	if goos == "darwin" {
		platform.OS = "osx"
	}

	switch goarch {
	case "amd64":
		platform.Arch = "x64"
	case "386":
		platform.Arch = "x86"
	}

	return platform
}
