package config

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/vantage/pkg/domain/model"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Governance holds the location of the governance configuration file
type Governance struct {
	Path string
}

// Flags returns CLI flags for Governance configuration
func (g *Governance) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Governance configuration YAML (holidays, KPI threshold, period, event labels)",
			Category:    "Governance",
			Sources:     cli.EnvVars("VANTAGE_CONFIG"),
			Destination: &g.Path,
		},
	}
}

// Configure loads the governance configuration, or returns the defaults when no file is given
func (g *Governance) Configure() (*model.GovernanceConfig, error) {
	if g.Path == "" {
		return model.DefaultGovernanceConfig(), nil
	}
	return LoadGovernanceFromFile(g.Path)
}

// LogValue returns structured log value
func (g Governance) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("path", g.Path),
	)
}

// LoadGovernanceFromFile loads the governance configuration from a YAML file.
// Keys missing from the file keep their default values.
func LoadGovernanceFromFile(path string) (*model.GovernanceConfig, error) {
	if path == "" {
		return nil, goerr.New("configuration file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(err, "configuration file not found",
				goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to read configuration file",
			goerr.V("path", path))
	}

	cfg, err := ParseGovernance(data)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid configuration",
			goerr.V("path", path))
	}
	return cfg, nil
}

// ParseGovernance parses and validates governance configuration YAML. Unknown keys are rejected.
func ParseGovernance(data []byte) (*model.GovernanceConfig, error) {
	cfg := model.DefaultGovernanceConfig()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, goerr.Wrap(err, "failed to parse YAML configuration",
			goerr.T(model.ErrTagInvalidConfig))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
