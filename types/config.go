package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can use values like "30s" or
// "72h" instead of raw nanosecond counts.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// ChainSpec declares one supported chain and its direct bridge connections.
// The order of chains in the config file fixes the route enumeration order.
type ChainSpec struct {
	Name          ChainID   `yaml:"name" json:"name"`
	PrivacyRating int       `yaml:"privacy-rating" json:"privacy_rating"`
	Connections   []ChainID `yaml:"connections" json:"connections"`
}

// FeeSpec is the configured bridge fee for one directed chain pair,
// denominated in smallest units.
type FeeSpec struct {
	From ChainID `yaml:"from" json:"from"`
	To   ChainID `yaml:"to" json:"to"`
	Fee  uint64  `yaml:"fee" json:"fee"`
}

type RouterConfig struct {
	MaxIntermediateHops int      `yaml:"max-intermediate-hops" json:"max_intermediate_hops"`
	PerHopConfirmation  Duration `yaml:"per-hop-confirmation" json:"per_hop_confirmation"`
	PrivacyBaseScore    int      `yaml:"privacy-base-score" json:"privacy_base_score"`
	PrivacyHopWeight    int      `yaml:"privacy-hop-weight" json:"privacy_hop_weight"`
}

type ProcessorConfig struct {
	WorkerCount        int      `yaml:"worker-count" json:"worker_count"`
	CallTimeout        Duration `yaml:"call-timeout" json:"call_timeout"`
	SettlementChain    ChainID  `yaml:"settlement-chain" json:"settlement_chain"`
	PartialGracePeriod Duration `yaml:"partial-grace-period" json:"partial_grace_period"`
	RetryBaseDelay     Duration `yaml:"retry-base-delay" json:"retry_base_delay"`
	RetryMultiplier    float64  `yaml:"retry-multiplier" json:"retry_multiplier"`
	RetryMaxDelay      Duration `yaml:"retry-max-delay" json:"retry_max_delay"`
	DefaultMaxRetries  int      `yaml:"default-max-retries" json:"default_max_retries"`
}

type OracleConfig struct {
	BaseURL        string   `yaml:"base-url" json:"base_url"`
	RequestTimeout Duration `yaml:"request-timeout" json:"request_timeout"`
}

type StoreConfig struct {
	Path string `yaml:"path" json:"path"`
}

type APIConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	ListenAddress  string   `yaml:"listen-address" json:"listen_address"`
	TrustedProxies []string `yaml:"trusted-proxies" json:"trusted_proxies"`
}

// CircleSpec configures one lending circle's recurring collection job.
type CircleSpec struct {
	ID             string        `yaml:"id" json:"id"`
	RoundInterval  Duration      `yaml:"round-interval" json:"round_interval"`
	RequiredAmount uint64        `yaml:"required-amount" json:"required_amount"`
	Priority       RoutePriority `yaml:"priority" json:"priority"`
	AllowPartial   bool          `yaml:"allow-partial" json:"allow_partial"`
	Members        []string      `yaml:"members" json:"members"`
}

type SchedulerConfig struct {
	RetrySweepInterval Duration     `yaml:"retry-sweep-interval" json:"retry_sweep_interval"`
	Circles            []CircleSpec `yaml:"circles" json:"circles"`
}

type Config struct {
	Chains    []ChainSpec     `yaml:"chains" json:"chains"`
	Fees      []FeeSpec       `yaml:"fees" json:"fees"`
	Router    RouterConfig    `yaml:"router" json:"router"`
	Processor ProcessorConfig `yaml:"processor" json:"processor"`
	Oracle    OracleConfig    `yaml:"oracle" json:"oracle"`
	Store     StoreConfig     `yaml:"store" json:"store"`
	Api       APIConfig       `yaml:"api" json:"api"`
	Scheduler SchedulerConfig `yaml:"scheduler" json:"scheduler"`
}

// Parse reads and unmarshals a yaml config file.
func Parse(file string) (*Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
