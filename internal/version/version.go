// Package version holds build version information, set at link time or by
// the main package.
package version

var (
	Version   = "v1.0.0-dev"
	BuildTime = "unknown"
)

// UserAgent identifies this build on every platform API request.
func UserAgent() string {
	return "loginweb-cli/" + Version
}
