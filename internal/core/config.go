package core

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/waybackmirror/internal/models"
	"github.com/RecoveryAshes/waybackmirror/internal/utils"
	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Mirror  models.MirrorConfig `mapstructure:"mirror"`
	Logging LoggingConfig       `mapstructure:"logging"`
	Output  OutputConfig        `mapstructure:"output"`
	HTTP    HTTPConfig          `mapstructure:"http"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	BaseDir string `mapstructure:"base_dir"` // 页面镜像输出根目录
}

// HTTPConfig HTTP客户端配置
type HTTPConfig struct {
	UserAgent string            `mapstructure:"user_agent"` // 请求User-Agent
	Headers   map[string]string `mapstructure:"headers"`    // 附加请求头
}

// LoadConfig 加载配置文件
// configPath为空时在 ./configs、.、~/.waybackmirror 中搜索config.yaml,
// 找不到配置文件时使用默认值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".waybackmirror"))
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认值,其他错误向上传递
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 自定义头部必须符合RFC 7230,不合规的配置直接拒绝
	if len(config.HTTP.Headers) > 0 {
		validator := utils.NewHeaderValidator()
		if err := validator.ValidateAll(config.HTTP.Headers); err != nil {
			return nil, fmt.Errorf("HTTP头部配置非法: %w", err)
		}
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 镜像配置默认值
	v.SetDefault("mirror.depth", 2)
	v.SetDefault("mirror.max_retries", 5)
	v.SetDefault("mirror.concurrent_downloads", 5)
	v.SetDefault("mirror.page_delay", 1)
	v.SetDefault("mirror.capture_delay", 2)
	v.SetDefault("mirror.max_pages", 500)
	v.SetDefault("mirror.connect_timeout", 10)
	v.SetDefault("mirror.read_timeout", 30)

	// 日志配置默认值
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	// 输出配置默认值
	v.SetDefault("output.base_dir", "downloaded_pages")

	// HTTP配置默认值
	v.SetDefault("http.user_agent", "")
}

// MergeCLIFlags 合并命令行参数到配置
// 命令行参数优先于配置文件
func (c *Config) MergeCLIFlags(depth int, concurrent int, pageDelay int, outputDir string) {
	if depth >= 0 {
		c.Mirror.Depth = depth
	}
	if concurrent > 0 {
		c.Mirror.ConcurrentDownloads = concurrent
	}
	if pageDelay >= 0 {
		c.Mirror.PageDelaySeconds = pageDelay
	}
	if outputDir != "" {
		c.Output.BaseDir = outputDir
	}
}
