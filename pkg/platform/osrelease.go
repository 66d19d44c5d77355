// pkg/platform/osrelease.go

package platform

import (
	"context"
	"os"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// OSRelease holds the fields of /etc/os-release this tool cares about.
type OSRelease struct {
	ID         string // e.g. "ubuntu"
	IDLike     string // e.g. "debian"
	VersionID  string // e.g. "24.04"
	Codename   string // e.g. "noble"
	PrettyName string // e.g. "Ubuntu 24.04.2 LTS"
}

// DetectOSRelease reads and parses /etc/os-release.
func DetectOSRelease(ctx context.Context) (*OSRelease, error) {
	data, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return nil, cerr.Wrap(err, "failed to read /etc/os-release")
	}

	info := ParseOSRelease(string(data))
	otelzap.Ctx(ctx).Debug("Parsed OS release information",
		zap.String("id", info.ID),
		zap.String("id_like", info.IDLike),
		zap.String("version_id", info.VersionID),
		zap.String("pretty_name", info.PrettyName),
	)
	return info, nil
}

// ParseOSRelease parses os-release file content. Unknown keys are ignored;
// values may be quoted or bare.
func ParseOSRelease(content string) *OSRelease {
	info := &OSRelease{}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), "\"'")

		switch key {
		case "ID":
			info.ID = value
		case "ID_LIKE":
			info.IDLike = value
		case "VERSION_ID":
			info.VersionID = value
		case "VERSION_CODENAME":
			info.Codename = value
		case "PRETTY_NAME":
			info.PrettyName = value
		}
	}

	return info
}

// IsDebianFamily reports whether the release uses apt and dpkg. The
// provisioning flow warns rather than aborts on other families.
func (r *OSRelease) IsDebianFamily() bool {
	if r == nil {
		return false
	}
	if r.ID == "ubuntu" || r.ID == "debian" {
		return true
	}
	return strings.Contains(r.IDLike, "debian") || strings.Contains(r.IDLike, "ubuntu")
}
