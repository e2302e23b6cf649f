// Package config loads the MME core's YAML configuration, following
// the shape of nf/smf/internal/config/config.go in the teacher
// repository: a root Config struct with yaml tags, a flat Load(path)
// constructor, and typed per-concern sub-structs.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/your-org/mme-s1ap-core/internal/model"
)

// Config is the MME core's configuration, covering the items spec.md
// section 6 lists under "Configuration recognized by the core".
type Config struct {
	SBI           SBIConfig           `yaml:"sbi"`
	Served        ServedConfig        `yaml:"served"`
	Limits        LimitsConfig        `yaml:"limits"`
	Timers        TimersConfig        `yaml:"timers"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// SBIConfig holds the admin HTTP surface's bind address.
type SBIConfig struct {
	IPv4 string `yaml:"ipv4"`
	Port int    `yaml:"port"`
}

// ServedConfig holds the PLMNs, tracking areas and GUMMEI this MME serves.
type ServedConfig struct {
	PLMNs  []PLMN       `yaml:"plmns"`
	TAIs   []TAI        `yaml:"tais"`
	GUMMEI GUMMEIConfig `yaml:"gummei"`
}

// PLMN mirrors model.PLMN with yaml tags.
type PLMN struct {
	MCC string `yaml:"mcc"`
	MNC string `yaml:"mnc"`
}

func (p PLMN) ToModel() model.PLMN { return model.PLMN{MCC: p.MCC, MNC: p.MNC} }

// TAI mirrors model.TAI with yaml tags.
type TAI struct {
	PLMN PLMN   `yaml:"plmn"`
	TAC  uint16 `yaml:"tac"`
}

func (t TAI) ToModel() model.TAI { return model.TAI{PLMN: t.PLMN.ToModel(), TAC: t.TAC} }

// GUMMEIConfig mirrors model.GUMMEI with yaml tags.
type GUMMEIConfig struct {
	PLMN       PLMN   `yaml:"plmn"`
	MMEGroupID uint16 `yaml:"mme_group_id"`
	MMECode    uint8  `yaml:"mme_code"`
}

func (g GUMMEIConfig) ToModel() model.GUMMEI {
	return model.GUMMEI{PLMN: g.PLMN.ToModel(), MMEGroupID: g.MMEGroupID, MMECode: g.MMECode}
}

// LimitsConfig holds the capacity/policy knobs from spec.md section 4.1/6.
type LimitsConfig struct {
	MaxENBs          int `yaml:"max_enbs"`
	ResetBatchSize   int `yaml:"reset_batch_size"`
	RelativeCapacity int `yaml:"relative_capacity"` // 0-255, advertised in S1SetupResponse
}

// TimersConfig holds the timer defaults from spec.md section 5/6.
type TimersConfig struct {
	UEContextRelease        time.Duration `yaml:"ue_context_release"`
	HandoverCompletion      time.Duration `yaml:"handover_completion"`
	ESMDeactivate           time.Duration `yaml:"esm_deactivate"`
	ESMDeactivateMaxRetries int           `yaml:"esm_deactivate_max_retries"`
}

// ObservabilityConfig holds logging/tracing configuration.
type ObservabilityConfig struct {
	LogLevel string     `yaml:"log_level"`
	LogFile  string     `yaml:"log_file"`
	OTEL     OTELConfig `yaml:"otel"`
}

// OTELConfig mirrors the teacher's OTELConfig shape.
type OTELConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// Defaults returns the configuration defaults named in spec.md section 6:
// release timer 1s, ESM deactivate timer 8s with a 5-retry bound.
func Defaults() *Config {
	return &Config{
		SBI: SBIConfig{IPv4: "0.0.0.0", Port: 9090},
		Limits: LimitsConfig{
			MaxENBs:          32,
			ResetBatchSize:   256,
			RelativeCapacity: 200,
		},
		Timers: TimersConfig{
			UEContextRelease:        1 * time.Second,
			HandoverCompletion:      8 * time.Second,
			ESMDeactivate:           8 * time.Second,
			ESMDeactivateMaxRetries: 5,
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
			OTEL:     OTELConfig{ServiceName: "mme-s1ap-core"},
		},
	}
}

// Load loads configuration from a YAML file, applying Defaults() first
// so a partially-specified file still yields a valid Config.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ServedPLMNs returns the configured served PLMNs as model values.
func (c *Config) ServedPLMNs() []model.PLMN {
	out := make([]model.PLMN, len(c.Served.PLMNs))
	for i, p := range c.Served.PLMNs {
		out[i] = p.ToModel()
	}
	return out
}

// ServedTAIs returns the configured served TAIs as model values.
func (c *Config) ServedTAIs() []model.TAI {
	out := make([]model.TAI, len(c.Served.TAIs))
	for i, t := range c.Served.TAIs {
		out[i] = t.ToModel()
	}
	return out
}
