package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"github.com/wippyai/nicehtml/errors"
)

// AppName is used for logger and file names.
const AppName = "nicehtml"

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	DiscoveryConfig struct {
		Element    string `yaml:"element" validate:"required"`
		Type       string `yaml:"type" validate:"required"`
		SourceAttr string `yaml:"source_attribute" validate:"required"`
	}

	FetchConfig struct {
		UserAgent      string        `yaml:"user_agent"`
		Timeout        time.Duration `yaml:"timeout" validate:"gte=0"`
		CacheBustParam string        `yaml:"cache_bust_param" validate:"required"`
	}

	EngineConfig struct {
		Location         string `yaml:"location"`
		HostModule       string `yaml:"host_module" validate:"required"`
		MemoryLimitPages uint32 `yaml:"memory_limit_pages" validate:"lte=65536"`
		WASI             bool   `yaml:"wasi"`
		SkipInit         bool   `yaml:"skip_init"`
	}

	Config struct {
		Version   int             `yaml:"version" validate:"eq=1"`
		Discovery DiscoveryConfig `yaml:"discovery"`
		Fetch     FetchConfig     `yaml:"fetch"`
		Engine    EngineConfig    `yaml:"engine"`
		Logging   LoggingConfig   `yaml:"logging"`
	}
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// only fields we defined are accepted, so no yaml.Unmarshal here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration expands the embedded template to get defaults, then
// superimposes values from the file at path (if any) and validates the
// result.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "process configuration template")
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "process configuration template")
	}
	if !haveFile {
		return cfg, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read config file")
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Source(path).
			Detail("process configuration file").
			Cause(err).
			Build()
	}
	return cfg, nil
}

// Prepare returns the expanded default configuration.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

// Dump returns cfg as YAML.
func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}
