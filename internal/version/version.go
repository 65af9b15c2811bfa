package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// Banner formats the build identity for a program name, as shown in window
// titles and start-up logs.
func Banner(program string) string {
	sha := GitSHA
	if len(sha) > 7 {
		sha = sha[:7]
	}
	return fmt.Sprintf("%s %s (%s, built %s)", program, Version, sha, BuildTime)
}
