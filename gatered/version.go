package gatered

// Version represents the current version of the gatered library
const Version = "1.3.0"

// VersionInfo provides version information for the library
type VersionInfo struct {
	Version string
	Name    string
}

// GetVersion returns version information for the library
func GetVersion() VersionInfo {
	return VersionInfo{
		Version: Version,
		Name:    "gatered",
	}
}
