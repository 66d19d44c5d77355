// pkg/provision/state.go

package provision

import (
	"context"
	"os"
	"path/filepath"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultStatePath is where install leaves its provisioning record.
const DefaultStatePath = "/var/lib/weatherctl/state.yaml"

// StepRecord is the YAML form of one step outcome.
type StepRecord struct {
	Name     string `yaml:"name"`
	Outcome  string `yaml:"outcome"`
	Reason   string `yaml:"reason,omitempty"`
	Warning  string `yaml:"warning,omitempty"`
	Duration string `yaml:"duration"`
}

// Record is the provisioning snapshot persisted at the end of an install.
// `weatherctl status` reads it back to tell the operator when and how the
// host was last converged.
type Record struct {
	RunID     string       `yaml:"run_id,omitempty"`
	Timestamp time.Time    `yaml:"timestamp"`
	Hostname  string       `yaml:"hostname,omitempty"`
	Config    *Config      `yaml:"config"`
	Steps     []StepRecord `yaml:"steps"`
}

// SaveRecord writes the snapshot, creating the state directory on first use.
func SaveRecord(path string, rec *Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return cerr.Wrap(err, "create state directory")
	}

	data, err := yaml.Marshal(rec)
	if err != nil {
		return cerr.Wrap(err, "encode state record")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return cerr.Wrap(err, "write state record")
	}
	return nil
}

// LoadRecord reads a previously written snapshot.
func LoadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerr.Wrapf(err, "read state record %s", path)
	}

	rec := &Record{}
	if err := yaml.Unmarshal(data, rec); err != nil {
		return nil, cerr.Wrapf(err, "decode state record %s", path)
	}
	return rec, nil
}

// saveRecord snapshots the current run. Step outcomes recorded so far are
// included; the summary and smoke-run steps finish after the snapshot.
func (p *Provisioner) saveRecord(ctx context.Context, cfg *Config) error {
	rec := &Record{
		RunID:     p.RunID,
		Timestamp: time.Now().UTC(),
		Config:    cfg,
		Steps:     make([]StepRecord, 0, len(p.results)),
	}
	if host, err := os.Hostname(); err == nil {
		rec.Hostname = host
	}
	for _, r := range p.results {
		rec.Steps = append(rec.Steps, StepRecord{
			Name:     r.Name,
			Outcome:  r.Outcome.String(),
			Reason:   r.Reason,
			Warning:  r.Warning,
			Duration: r.Duration.Round(time.Millisecond).String(),
		})
	}

	if err := SaveRecord(p.statePath, rec); err != nil {
		return err
	}
	otelzap.Ctx(ctx).Info("Provisioning record written",
		zap.String("path", p.statePath),
		zap.Int("steps", len(rec.Steps)))
	return nil
}
