package config

import (
	"os"
	"strings"
	"time"

	"github.com/LJTian/DevNotes/internal/collector"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// ErrInvalidRenderer 未知的渲染器名称
var ErrInvalidRenderer = eris.New("config: renderer must be one of colly, chrome, rod, remote")

type Config struct {
	AppPort string `mapstructure:"app_port"`

	PostgresDSN string `mapstructure:"postgres_dsn"`
	RedisAddr   string `mapstructure:"redis_addr"`

	CronSpec string `mapstructure:"cron_spec"`

	// 渲染
	Renderer          string `mapstructure:"renderer"`
	RenderServiceURL  string `mapstructure:"render_service_url"`
	RenderTimeoutSecs int    `mapstructure:"render_timeout_secs"`
	WaitTimeoutSecs   int    `mapstructure:"wait_timeout_secs"`
	UserAgent         string `mapstructure:"user_agent"`

	// 输出
	OutDir    string `mapstructure:"out_dir"`
	OutFile   string `mapstructure:"out_file"`
	BoardFile string `mapstructure:"board_file"`

	BasicAuthUser string `mapstructure:"basic_auth_user"`
	BasicAuthPass string `mapstructure:"basic_auth_pass"`

	Log LogConfig `mapstructure:"log"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 读取默认值、可选的 devnotes.yaml 以及环境变量（APP_PORT、OUT_DIR、LOG_LEVEL ...）
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("devnotes")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app_port", "9000")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("cron_spec", "*/30 * * * *")
	v.SetDefault("renderer", "chrome")
	v.SetDefault("render_service_url", "")
	v.SetDefault("render_timeout_secs", 120)
	v.SetDefault("wait_timeout_secs", 15)
	v.SetDefault("user_agent", "")
	v.SetDefault("out_dir", "data")
	v.SetDefault("out_file", "devnotes.json")
	v.SetDefault("board_file", "")
	v.SetDefault("basic_auth_user", "")
	v.SetDefault("basic_auth_pass", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Renderer) {
	case "colly", "http", "chrome", "chromedp", "rod":
	case "remote":
		if c.RenderServiceURL == "" {
			return eris.Wrap(ErrInvalidRenderer, "remote renderer requires render_service_url")
		}
	default:
		return eris.Wrapf(ErrInvalidRenderer, "got %q", c.Renderer)
	}
	if strings.TrimSpace(c.OutDir) == "" || strings.TrimSpace(c.OutFile) == "" {
		return eris.New("config: out_dir and out_file are required")
	}
	return nil
}

// RenderOptions 由配置派生渲染参数；等待的选择器取自看板定义
func (c *Config) RenderOptions(board *collector.Board) collector.RenderOptions {
	opts := collector.RenderOptions{
		UserAgent:   c.UserAgent,
		Timeout:     time.Duration(c.RenderTimeoutSecs) * time.Second,
		WaitTimeout: time.Duration(c.WaitTimeoutSecs) * time.Second,
		ServiceURL:  c.RenderServiceURL,
	}
	if board != nil {
		opts.WaitSelectors = board.WaitSelectors()
	}
	return opts
}

// InitLogger 初始化全局 zap logger
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// LoadBoard 从 YAML 读取看板定义；path 为空时使用内置的开发者笔记看板。
// 文件中缺省的字段沿用内置值。
func LoadBoard(path string) (*collector.Board, error) {
	def := collector.DefaultBoardDef()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "config: read board file %s", path)
		}
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, eris.Wrapf(err, "config: parse board file %s", path)
		}
	}
	return collector.NewBoard(def)
}
