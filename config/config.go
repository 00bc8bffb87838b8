// Package config assembles the engine configuration. The environment is
// the contract: every recognized variable overrides the optional YAML
// underlay, which itself overrides the defaults. Bad values degrade to
// defaults with a warning; configuration never kills the process.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"dcabot/market"
)

// Config holds every knob the engine recognizes.
type Config struct {
	// Instruments is the fixed market list for this run.
	Instruments []string `yaml:"instruments"`

	// Execution mode.
	DryRun        bool               `yaml:"dry_run"`
	SimKRWBalance float64            `yaml:"sim_krw_balance"`
	SimBalances   map[string]float64 `yaml:"sim_balances"`

	// Accumulation plan.
	Installments        int     `yaml:"installments"`
	MinKRWOrder         float64 `yaml:"min_krw_order"`
	TotalInvestFraction float64 `yaml:"total_invest_fraction"`
	TotalInvestKRW      float64 `yaml:"total_invest_krw"`
	Allocations         string  `yaml:"allocations"`
	BudgetMode          string  `yaml:"budget_mode"`

	// Drop trigger.
	DropPct        float64 `yaml:"drop_pct"`
	DropPctPerCoin string  `yaml:"drop_pct_per_coin"`
	InitialBuy     bool    `yaml:"initial_buy"`

	// Loop timing.
	MonitorIntervalSec int `yaml:"monitor_interval_sec"`

	// Exit targets; nil means the condition is not evaluated.
	TargetProfitPct *float64 `yaml:"target_profit_pct"`
	TargetProfitKRW *float64 `yaml:"target_profit_krw"`
	SellFraction    float64  `yaml:"sell_fraction"`

	// Persistence.
	PurchasesFile string `yaml:"purchases_file"`
	JournalDB     string `yaml:"journal_db"`
	JournalCSV    string `yaml:"journal_csv"`

	// Live credentials (environment only, never from file).
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`

	// Observability.
	LogLevel    string `yaml:"log_level"`
	LogEncoding string `yaml:"log_encoding"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default mirrors the documented fallbacks.
func Default() *Config {
	return &Config{
		Instruments:         append([]string(nil), market.DefaultInstruments...),
		DryRun:              true,
		SimKRWBalance:       100000,
		Installments:        5,
		MinKRWOrder:         5000,
		TotalInvestFraction: 0.5,
		DropPct:             2,
		InitialBuy:          true,
		MonitorIntervalSec:  60,
		SellFraction:        1.0,
		LogLevel:            "info",
		LogEncoding:         "console",
	}
}

// Load builds the effective configuration: defaults, then the optional
// YAML file, then the environment on top.
func Load(path string, log *zap.Logger) (*Config, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv(log)
	cfg.normalize(log)
	return cfg, nil
}

func (c *Config) applyEnv(log *zap.Logger) {
	if v, ok := lookup("COINS"); ok {
		var insts []string
		for _, part := range strings.Split(v, ",") {
			if s := market.Normalize(part); s != "" {
				insts = append(insts, s)
			}
		}
		if len(insts) > 0 {
			c.Instruments = insts
		}
	}

	envBool(log, "DRY_RUN", &c.DryRun)
	envFloat(log, "SIM_KRW_BALANCE", &c.SimKRWBalance)
	envInt(log, "INSTALLMENTS", &c.Installments)
	envFloat(log, "MIN_KRW_ORDER", &c.MinKRWOrder)
	envFloat(log, "TOTAL_INVEST_FRACTION", &c.TotalInvestFraction)
	envFloat(log, "TOTAL_INVEST_KRW", &c.TotalInvestKRW)
	envString("ALLOCATIONS", &c.Allocations)
	envString("BUDGET_MODE", &c.BudgetMode)
	envFloat(log, "DROP_PCT", &c.DropPct)
	envString("DROP_PCT_PER_COIN", &c.DropPctPerCoin)
	envBool(log, "INITIAL_BUY", &c.InitialBuy)
	envInt(log, "MONITOR_INTERVAL_SEC", &c.MonitorIntervalSec)
	envOptFloat(log, "TARGET_PROFIT_PCT", &c.TargetProfitPct)
	envOptFloat(log, "TARGET_PROFIT_KRW", &c.TargetProfitKRW)
	envFloat(log, "SELL_FRACTION", &c.SellFraction)
	envString("PURCHASES_FILE", &c.PurchasesFile)
	envString("JOURNAL_DB", &c.JournalDB)
	envString("JOURNAL_CSV", &c.JournalCSV)
	envString("UPBIT_ACCESS_KEY", &c.AccessKey)
	envString("UPBIT_SECRET_KEY", &c.SecretKey)
	envString("LOG_LEVEL", &c.LogLevel)
	envString("LOG_ENCODING", &c.LogEncoding)
	envString("METRICS_ADDR", &c.MetricsAddr)

	// Per-currency simulation seeds: SIM_BAL_BTC=0.01 etc.
	for _, inst := range c.Instruments {
		ccy := market.Currency(inst)
		if v, ok := lookup("SIM_BAL_" + ccy); ok {
			qty, err := strconv.ParseFloat(v, 64)
			if err != nil {
				log.Warn("unparsable simulation balance, ignoring",
					zap.String("var", "SIM_BAL_"+ccy), zap.String("value", v))
				continue
			}
			if c.SimBalances == nil {
				c.SimBalances = map[string]float64{}
			}
			c.SimBalances[ccy] = qty
		}
	}
}

// normalize clamps values that would make the loop misbehave. Each clamp
// is a config fault, logged, never fatal.
func (c *Config) normalize(log *zap.Logger) {
	if len(c.Instruments) == 0 {
		c.Instruments = append([]string(nil), market.DefaultInstruments...)
	}
	if c.Installments < 1 {
		log.Warn("installments below 1, using default", zap.Int("value", c.Installments))
		c.Installments = Default().Installments
	}
	if c.MinKRWOrder < 0 {
		log.Warn("negative minimum order, using default", zap.Float64("value", c.MinKRWOrder))
		c.MinKRWOrder = Default().MinKRWOrder
	}
	if c.TotalInvestFraction < 0 || c.TotalInvestFraction > 1 {
		log.Warn("invest fraction outside [0,1], using default",
			zap.Float64("value", c.TotalInvestFraction))
		c.TotalInvestFraction = Default().TotalInvestFraction
	}
	if c.SellFraction <= 0 || c.SellFraction > 1 {
		log.Warn("sell fraction outside (0,1], using 1.0", zap.Float64("value", c.SellFraction))
		c.SellFraction = 1.0
	}
	if c.MonitorIntervalSec < 1 {
		log.Warn("monitor interval below 1s, using default", zap.Int("value", c.MonitorIntervalSec))
		c.MonitorIntervalSec = Default().MonitorIntervalSec
	}
	if c.DropPct < 0 || c.DropPct >= 100 {
		log.Warn("drop pct outside [0,100), using default", zap.Float64("value", c.DropPct))
		c.DropPct = Default().DropPct
	}
}

// Live reports whether real orders will be placed.
func (c *Config) Live() bool {
	return !c.DryRun && c.AccessKey != "" && c.SecretKey != ""
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func envString(key string, dst *string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func envBool(log *zap.Logger, key string, dst *bool) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	default:
		log.Warn("unparsable boolean, keeping previous value",
			zap.String("var", key), zap.String("value", v))
	}
}

func envFloat(log *zap.Logger, key string, dst *float64) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn("unparsable number, keeping previous value",
			zap.String("var", key), zap.String("value", v))
		return
	}
	*dst = f
}

func envInt(log *zap.Logger, key string, dst *int) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn("unparsable integer, keeping previous value",
			zap.String("var", key), zap.String("value", v))
		return
	}
	*dst = n
}

func envOptFloat(log *zap.Logger, key string, dst **float64) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn("unparsable target, leaving unset",
			zap.String("var", key), zap.String("value", v))
		return
	}
	*dst = &f
}
