//go:build linux

// pkg/platform/uname.go

package platform

import (
	"golang.org/x/sys/unix"
)

// Uname returns kernel identification via uname(2).
func Uname() (*HostInfo, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return nil, err
	}
	return &HostInfo{
		Kernel:  charsToString(uts.Sysname[:]),
		Release: charsToString(uts.Release[:]),
		Machine: charsToString(uts.Machine[:]),
	}, nil
}

func charsToString(cs []byte) string {
	for i, c := range cs {
		if c == 0 {
			return string(cs[:i])
		}
	}
	return string(cs)
}
