package config

import (
	"fmt"

	"staking-rewards-system/pkg/errors"

	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Cron     CronConfig     `mapstructure:"cron"`
	Rewards  RewardsConfig  `mapstructure:"rewards"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type CronConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	RewardSchedule       string `mapstructure:"reward_schedule"`
	DailyStatsSchedule   string `mapstructure:"daily_stats_schedule"`
	WeeklyStatsSchedule  string `mapstructure:"weekly_stats_schedule"`
	MonthlyStatsSchedule string `mapstructure:"monthly_stats_schedule"`
	RunTimeoutMinutes    int    `mapstructure:"run_timeout_minutes"`
}

type RewardsConfig struct {
	CompoundMinAgeDays    int `mapstructure:"compound_min_age_days"`
	SnapshotRetentionDays int `mapstructure:"snapshot_retention_days"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetDefault("cron.reward_schedule", "0 0 * * *")
	v.SetDefault("cron.daily_stats_schedule", "0 1 * * *")
	v.SetDefault("cron.weekly_stats_schedule", "0 2 * * 0")
	v.SetDefault("cron.monthly_stats_schedule", "0 3 1 * *")
	v.SetDefault("cron.run_timeout_minutes", 30)
	v.SetDefault("rewards.compound_min_age_days", 7)
	v.SetDefault("rewards.snapshot_retention_days", 365)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.New(errors.ErrConfigLoad, "failed to read config file", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.New(errors.ErrConfigLoad, "failed to unmarshal config", err)
	}

	return &config, nil
}
