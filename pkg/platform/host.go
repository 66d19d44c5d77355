// pkg/platform/host.go

package platform

// HostInfo describes the running kernel, for the preflight log line.
type HostInfo struct {
	Kernel  string
	Release string
	Machine string
}
