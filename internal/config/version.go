package config

const VersionDev = "<dev>"

// Version is the version of the adoexport application.
// It is set automatically when creating release builds.
var Version = VersionDev

// UserAgent is sent with every API request.
func UserAgent() string {
	return "adoexport/" + Version
}
