//go:build !linux

// pkg/platform/uname_other.go

package platform

import cerr "github.com/cockroachdb/errors"

// Uname is only implemented for Linux targets.
func Uname() (*HostInfo, error) {
	return nil, cerr.New("uname is not supported on this platform")
}
