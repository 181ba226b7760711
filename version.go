package remotefilter

import "runtime"

// Version is the release of the remote-filter bridge.
const Version = "v0.3.0"

// VersionInfo describes the running build.
type VersionInfo struct {
	Version   string
	GoVersion string
}

// GetVersionInfo reports the library version and the Go runtime it was built with.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   Version,
		GoVersion: runtime.Version(),
	}
}
