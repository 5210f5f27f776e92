// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"time"

	tml "github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// DefaultPollPeriod 默认轮询间隔
const DefaultPollPeriod = 3 * time.Second

// Config 客户端配置
type Config struct {
	Title    string    `toml:"title"`
	Network  *Network  `toml:"network"`
	Contract *Contract `toml:"contract"`
	Indexer  *Indexer  `toml:"indexer"`
	Poll     *Poll     `toml:"poll"`
	Log      *Log      `toml:"log"`
	Metrics  *Metrics  `toml:"metrics"`
	Status   *Status   `toml:"status"`
}

// Network 目标网络, chainID 必须严格相等
type Network struct {
	ChainID    int64  `toml:"chainID"`
	RPCAddr    string `toml:"rpcAddr"`
	PrivateKey string `toml:"privateKey"`
}

// Contract 游戏合约
type Contract struct {
	Address string `toml:"address"`
}

// Indexer 子图索引服务
type Indexer struct {
	URL     string `toml:"url"`
	Timeout string `toml:"timeout"`
}

// Poll 轮询配置
type Poll struct {
	Period string `toml:"period"`
}

// Log 日志配置
type Log struct {
	// 日志级别，支持debug(dbug)/info/warn/error(eror)/crit
	Loglevel        string `toml:"loglevel"`
	LogConsoleLevel string `toml:"logConsoleLevel"`
	// 日志文件名，可带目录，为空时只输出到控制台
	LogFile string `toml:"logFile"`
	// 单个日志文件的最大值（单位：兆）
	MaxFileSize uint32 `toml:"maxFileSize"`
	MaxBackups  uint32 `toml:"maxBackups"`
	// 最多保存的历史日志消息（单位：天）
	MaxAge         uint32 `toml:"maxAge"`
	LocalTime      bool   `toml:"localTime"`
	Compress       bool   `toml:"compress"`
	CallerFile     bool   `toml:"callerFile"`
	CallerFunction bool   `toml:"callerFunction"`
}

// metrics data emit modes
const (
	MetricsEmitLog      = "log"
	MetricsEmitInfluxDB = "influxdb"
)

// Metrics 统计配置
type Metrics struct {
	Enable   bool   `toml:"enable"`
	Duration string `toml:"duration"`
	// 输出方式, log 或者 influxdb, 为空时写日志
	DataEmitMode string    `toml:"dataEmitMode"`
	InfluxDB     *InfluxDB `toml:"influxdb"`
}

// InfluxDB dataEmitMode = "influxdb" 时的参数
type InfluxDB struct {
	URL       string `toml:"url"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Namespace string `toml:"namespace"`
}

// Status 只读状态服务
type Status struct {
	ListenAddr  string   `toml:"listenAddr"`
	CorsOrigins []string `toml:"corsOrigins"`
}

// GetDefaultCfgstring 默认配置
func GetDefaultCfgstring() string {
	return defaultCfgString
}

// InitCfg 从文件读取配置, 未配置的字段使用默认值
func InitCfg(path string) (*Config, error) {
	cfg, err := InitCfgString(defaultCfgString)
	if err != nil {
		return nil, err
	}
	if _, err := tml.DecodeFile(path, cfg); err != nil {
		return nil, errors.Wrapf(err, "decode config file %s", path)
	}
	return cfg, cfg.Check()
}

// InitCfgString 从字符串读取配置
func InitCfgString(cfgstring string) (*Config, error) {
	var cfg Config
	if _, err := tml.Decode(cfgstring, &cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.fillDefault()
	return &cfg, cfg.Check()
}

func (c *Config) fillDefault() {
	if c.Network == nil {
		c.Network = &Network{}
	}
	if c.Contract == nil {
		c.Contract = &Contract{}
	}
	if c.Indexer == nil {
		c.Indexer = &Indexer{}
	}
	if c.Poll == nil {
		c.Poll = &Poll{}
	}
	if c.Log == nil {
		c.Log = &Log{}
	}
	if c.Metrics == nil {
		c.Metrics = &Metrics{}
	}
	if c.Status == nil {
		c.Status = &Status{}
	}
}

// Check 检查配置中的时间格式
func (c *Config) Check() error {
	if c.Poll != nil && c.Poll.Period != "" {
		d, err := time.ParseDuration(c.Poll.Period)
		if err != nil {
			return errors.Wrapf(ErrInvalidParam, "poll.period %q", c.Poll.Period)
		}
		if d <= 0 {
			return errors.Wrapf(ErrInvalidParam, "poll.period must be positive, got %s", d)
		}
	}
	if c.Indexer != nil && c.Indexer.Timeout != "" {
		if _, err := time.ParseDuration(c.Indexer.Timeout); err != nil {
			return errors.Wrapf(ErrInvalidParam, "indexer.timeout %q", c.Indexer.Timeout)
		}
	}
	if c.Metrics != nil && c.Metrics.Duration != "" {
		if _, err := time.ParseDuration(c.Metrics.Duration); err != nil {
			return errors.Wrapf(ErrInvalidParam, "metrics.duration %q", c.Metrics.Duration)
		}
	}
	if c.Metrics != nil && c.Metrics.Enable {
		switch c.Metrics.DataEmitMode {
		case "", MetricsEmitLog:
		case MetricsEmitInfluxDB:
			if c.Metrics.InfluxDB == nil || c.Metrics.InfluxDB.URL == "" || c.Metrics.InfluxDB.Database == "" {
				return errors.Wrap(ErrInvalidParam, "metrics.influxdb url and database are required")
			}
		default:
			return errors.Wrapf(ErrInvalidParam, "metrics.dataEmitMode %q", c.Metrics.DataEmitMode)
		}
	}
	return nil
}

// PollPeriod 轮询间隔, 未配置时为 DefaultPollPeriod
func (c *Config) PollPeriod() time.Duration {
	if c.Poll == nil {
		return DefaultPollPeriod
	}
	return parseDuration(c.Poll.Period, DefaultPollPeriod)
}

// IndexerTimeout 单次索引查询的超时时间, 0 表示只依赖底层传输的超时
func (c *Config) IndexerTimeout() time.Duration {
	if c.Indexer == nil {
		return 0
	}
	return parseDuration(c.Indexer.Timeout, 0)
}

// MetricsDuration 统计输出间隔
func (c *Config) MetricsDuration() time.Duration {
	if c.Metrics == nil {
		return time.Minute
	}
	return parseDuration(c.Metrics.Duration, time.Minute)
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}
