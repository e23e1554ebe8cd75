package svclaunch

// Version is the current version of the svclaunch library
const Version = "1.0.0"

// VersionInfo contains detailed version information
type VersionInfo struct {
	// Version is the semantic version
	Version string
	// Layout is the services tree layout this version understands
	Layout string
}

// GetVersion returns the current version information
func GetVersion() VersionInfo {
	return VersionInfo{
		Version: Version,
		Layout:  ServicesDirName + "/<service>/" + StartupScript,
	}
}
