// Package version holds the build version of limbo.
package version

import "strings"

// Version information set by build flags
// Set using -ldflags "-X go.minekube.com/limbo/pkg/version.version=v1.2.3"
var version string = "unknown"

// String returns the build version.
func String() string {
	return version
}

// UserAgent identifies limbo and its version, e.g. in logs.
func UserAgent() string {
	s := strings.Builder{}
	s.WriteString("Minekube-Limbo/")
	if v := String(); v != "" {
		s.WriteString(v)
	} else {
		s.WriteString("Dirty")
	}
	return s.String()
}
