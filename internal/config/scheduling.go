package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// TimeRange is a wall-clock window in HH:MM form.
type TimeRange struct {
	Start string `mapstructure:"start" json:"start_time"`
	End   string `mapstructure:"end" json:"end_time"`
}

type SchedulingConfig struct {
	DefaultTimeRanges []TimeRange `mapstructure:"defaultTimeRanges"`
	MaxSlotsPerBatch  int         `mapstructure:"maxSlotsPerBatch"`
	MaxRounds         int         `mapstructure:"maxRounds"`
}

func DefaultSchedulingConfig() SchedulingConfig {
	return SchedulingConfig{
		DefaultTimeRanges: []TimeRange{
			{Start: "09:00", End: "10:00"},
			{Start: "10:00", End: "11:00"},
			{Start: "11:00", End: "12:00"},
			{Start: "14:00", End: "15:00"},
			{Start: "15:00", End: "16:00"},
			{Start: "16:00", End: "17:00"},
		},
		MaxSlotsPerBatch: 500,
		MaxRounds:        5,
	}
}

type SchedulingConfigHolder struct {
	current atomic.Value // holds SchedulingConfig
}

// NewStaticSchedulingConfigHolder wraps a fixed config, without file watching.
func NewStaticSchedulingConfigHolder(cfg SchedulingConfig) *SchedulingConfigHolder {
	holder := &SchedulingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewSchedulingConfigHolder(log *zap.Logger) (*SchedulingConfigHolder, error) {
	log = log.Named("config.scheduling")
	v := viper.New()

	v.SetConfigName("scheduling")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/talentflow")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TALENTFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSchedulingConfig()
	v.SetDefault("scheduling.defaultTimeRanges", defaults.DefaultTimeRanges)
	v.SetDefault("scheduling.maxSlotsPerBatch", defaults.MaxSlotsPerBatch)
	v.SetDefault("scheduling.maxRounds", defaults.MaxRounds)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg SchedulingConfig
	if err := v.UnmarshalKey("scheduling", &cfg); err != nil {
		return nil, err
	}
	if err := ValidateSchedulingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticSchedulingConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated SchedulingConfig
		if err := v.UnmarshalKey("scheduling", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := ValidateSchedulingConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *SchedulingConfigHolder) Get() SchedulingConfig {
	return h.current.Load().(SchedulingConfig)
}

func ValidateSchedulingConfig(cfg SchedulingConfig) error {
	if len(cfg.DefaultTimeRanges) == 0 {
		return errors.New("scheduling.defaultTimeRanges cannot be empty")
	}
	for _, r := range cfg.DefaultTimeRanges {
		start, err := time.Parse("15:04", r.Start)
		if err != nil {
			return fmt.Errorf("scheduling.defaultTimeRanges: invalid start %q", r.Start)
		}
		end, err := time.Parse("15:04", r.End)
		if err != nil {
			return fmt.Errorf("scheduling.defaultTimeRanges: invalid end %q", r.End)
		}
		if !start.Before(end) {
			return fmt.Errorf("scheduling.defaultTimeRanges: %s-%s ends before it starts", r.Start, r.End)
		}
	}
	if cfg.MaxSlotsPerBatch <= 0 {
		return errors.New("scheduling.maxSlotsPerBatch must be positive")
	}
	if cfg.MaxRounds <= 0 {
		return errors.New("scheduling.maxRounds must be positive")
	}
	return nil
}
