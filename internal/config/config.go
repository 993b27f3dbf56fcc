package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/wfunc/uart-reader/internal/errors"
)

// Config 全局配置结构体
type Config struct {
	Serial  SerialConfig  `mapstructure:"serial"`
	Capture CaptureConfig `mapstructure:"capture"`
	Log     LogConfig     `mapstructure:"log"`
}

// SerialConfig 串口驱动配置
//
// 设备路径、波特率、读超时是固定值，不在这里配置。
type SerialConfig struct {
	Driver   string `mapstructure:"driver"`    // tarm | bugst | mock
	MockEcho bool   `mapstructure:"mock_echo"` // mock 驱动回显写入的数据
}

// CaptureConfig 串口流量记录配置
type CaptureConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	RetentionDays   int           `mapstructure:"retention_days"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// Init 初始化配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		var loaded *Config
		v, loaded, err = load(configPath)
		if err != nil {
			return
		}
		mu.Lock()
		cfg = loaded
		mu.Unlock()
	})

	return err
}

// Load 读取配置但不修改全局实例
func Load(configPath string) (*Config, error) {
	_, c, err := load(configPath)
	return c, err
}

func load(configPath string) (*viper.Viper, *Config, error) {
	nv := viper.New()

	// 设置配置文件路径
	if configPath != "" {
		nv.SetConfigFile(configPath)
	} else {
		nv.SetConfigName("config")
		nv.SetConfigType("yaml")
		nv.AddConfigPath("./config")
		nv.AddConfigPath(".")
	}

	// 设置环境变量前缀
	nv.SetEnvPrefix("UART_READER")
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	nv.AutomaticEnv()

	setDefaults(nv)

	// 配置文件不存在时使用默认配置
	if err := nv.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, errors.Wrap(err, errors.ErrConfigLoad, configPath)
		}
	}

	c := &Config{}
	if err := nv.Unmarshal(c); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrConfigParse)
	}

	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	return nv, c, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 串口默认配置
	v.SetDefault("serial.driver", "tarm")
	v.SetDefault("serial.mock_echo", true)

	// 流量记录默认配置
	v.SetDefault("capture.enabled", false)
	v.SetDefault("capture.driver", "sqlite")
	v.SetDefault("capture.dsn", "./data/uart-reader.db")
	v.SetDefault("capture.max_idle_conns", 2)
	v.SetDefault("capture.max_open_conns", 4)
	v.SetDefault("capture.conn_max_lifetime", "1h")
	v.SetDefault("capture.log_level", "warn")
	v.SetDefault("capture.auto_migrate", true)
	v.SetDefault("capture.retention_days", 30)

	// 日志默认配置（默认写文件，避免与标准输出的数据转储混在一起）
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "file")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "uart-reader.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)
}

// Validate 验证配置
func (c *Config) Validate() error {
	switch c.Serial.Driver {
	case "tarm", "bugst", "mock":
	default:
		return errors.Newf(errors.ErrConfigValidate, "serial.driver=%q", c.Serial.Driver)
	}

	switch c.Log.Output {
	case "stdout", "stderr", "file", "both":
	default:
		return errors.Newf(errors.ErrConfigValidate, "log.output=%q", c.Log.Output)
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return errors.Newf(errors.ErrConfigValidate, "log.format=%q", c.Log.Format)
	}

	if c.Capture.Enabled {
		switch c.Capture.Driver {
		case "sqlite", "sqlite3", "mysql", "postgres", "postgresql":
		default:
			return errors.Newf(errors.ErrConfigValidate, "capture.driver=%q", c.Capture.Driver)
		}
		if c.Capture.DSN == "" {
			return errors.New(errors.ErrConfigMissing, "capture.dsn")
		}
	}

	return nil
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置文件变化
func Watch(callback func(*Config)) {
	if v == nil {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			fmt.Fprintf(os.Stderr, "配置重载失败: %v\n", err)
			return
		}
		if err := newCfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "配置重载失败: %v\n", err)
			return
		}

		mu.Lock()
		cfg = newCfg
		mu.Unlock()

		if callback != nil {
			callback(newCfg)
		}
	})
	v.WatchConfig()
}

// ConfigFileUsed 返回实际加载的配置文件路径
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}
