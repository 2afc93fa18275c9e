package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"cosmossdk.io/log"

	"github.com/tanda-protocol/tanda-collector/types"
)

// AppState is the modifiable state of the application.
type AppState struct {
	Config *types.Config

	ConfigPath string

	Debug bool

	LogLevel string

	Logger log.Logger
}

func NewAppState() *AppState {
	return &AppState{}
}

// InitAppState checks if a logger and config are present. If not, it adds them to the AppState
func (a *AppState) InitAppState() {
	if a.Logger == nil {
		a.InitLogger()
	}
	if a.Config == nil {
		a.loadConfigFile()
	}
}

func (a *AppState) InitLogger() {
	// info level is default
	level := zerolog.InfoLevel
	switch a.LogLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	// a.Debug overrides a.loglevel
	if a.Debug {
		a.Logger = log.NewLogger(os.Stdout, log.LevelOption(zerolog.DebugLevel))
	} else {
		a.Logger = log.NewLogger(os.Stdout, log.LevelOption(level))
	}
}

// loadConfigFile loads a configuration into the AppState. It uses the AppState ConfigPath
// to determine file path to config.
func (a *AppState) loadConfigFile() {
	if a.Logger == nil {
		a.InitLogger()
	}
	config, err := ParseConfig(a.ConfigPath)
	if err != nil {
		a.Logger.Error("Unable to parse config file", "location", a.ConfigPath, "err", err)
		os.Exit(1)
	}
	a.Logger.Info("Successfully parsed config file", "location", a.ConfigPath)
	a.Config = config

	err = a.validateConfig()
	if err != nil {
		a.Logger.Error("Invalid config", "err", err)
		os.Exit(1)
	}
}

// validateConfig checks the AppState Config for any invalid settings.
func (a *AppState) validateConfig() error {
	cfg := a.Config

	if len(cfg.Chains) < 2 {
		return fmt.Errorf("at least two chains must be configured")
	}

	declared := make(map[types.ChainID]bool, len(cfg.Chains))
	for _, chain := range cfg.Chains {
		if chain.Name == "" {
			return fmt.Errorf("chain name must be set in the config")
		}
		if chain.PrivacyRating < 0 || chain.PrivacyRating > 100 {
			return fmt.Errorf("privacy rating must be within [0, 100] (chain: %s) (rating: %d)", chain.Name, chain.PrivacyRating)
		}
		declared[chain.Name] = true
	}

	for _, chain := range cfg.Chains {
		for _, peer := range chain.Connections {
			if !declared[peer] {
				return fmt.Errorf("connection references an undeclared chain (chain: %s) (peer: %s)", chain.Name, peer)
			}
		}
	}

	for _, fee := range cfg.Fees {
		if !declared[fee.From] || !declared[fee.To] {
			return fmt.Errorf("fee references an undeclared chain (from: %s) (to: %s)", fee.From, fee.To)
		}
	}

	if cfg.Router.MaxIntermediateHops < 0 {
		return fmt.Errorf("max intermediate hops must not be negative in the config")
	}
	if cfg.Router.PerHopConfirmation <= 0 {
		return fmt.Errorf("per-hop confirmation time must be greater than zero in the config")
	}

	if cfg.Processor.WorkerCount == 0 {
		return fmt.Errorf("worker count must be greater than zero in the config")
	}
	if cfg.Processor.CallTimeout <= 0 {
		return fmt.Errorf("call timeout must be greater than zero in the config")
	}
	if !declared[cfg.Processor.SettlementChain] {
		return fmt.Errorf("settlement chain must be a declared chain (chain: %s)", cfg.Processor.SettlementChain)
	}
	if cfg.Processor.RetryBaseDelay <= 0 {
		return fmt.Errorf("retry base delay must be greater than zero in the config")
	}
	if cfg.Processor.RetryMultiplier < 1 {
		return fmt.Errorf("retry multiplier must be at least 1 in the config")
	}
	if cfg.Processor.RetryMaxDelay < cfg.Processor.RetryBaseDelay {
		return fmt.Errorf("retry max delay must not be below the base delay in the config")
	}

	if cfg.Oracle.BaseURL == "" {
		return fmt.Errorf("oracle base url is required in the config")
	}
	if cfg.Oracle.RequestTimeout <= 0 {
		return fmt.Errorf("oracle request timeout must be greater than zero in the config")
	}

	if cfg.Store.Path == "" {
		return fmt.Errorf("store path is required in the config")
	}

	for _, circle := range cfg.Scheduler.Circles {
		if circle.ID == "" {
			return fmt.Errorf("circle id must be set in the config")
		}
		if circle.RoundInterval <= 0 {
			return fmt.Errorf("round interval must be greater than zero in the config (circle: %s)", circle.ID)
		}
		if circle.RequiredAmount == 0 {
			return fmt.Errorf("required amount must be greater than zero in the config (circle: %s)", circle.ID)
		}
		if !types.ValidPriority(circle.Priority) {
			return fmt.Errorf("unsupported priority in the config (circle: %s) (priority: %s)", circle.ID, circle.Priority)
		}
		if len(circle.Members) == 0 {
			return fmt.Errorf("at least one member is required in the config (circle: %s)", circle.ID)
		}
	}

	return nil
}
