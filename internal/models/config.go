package models

import (
	"fmt"
	"regexp"
)

// 日期参数格式 (YYYYMMDD)
var datePattern = regexp.MustCompile(`^\d{8}$`)

// MirrorConfig 镜像任务配置
type MirrorConfig struct {
	Depth               int `json:"depth" mapstructure:"depth"`                               // 递归深度 (0为仅入口页,最大5)
	MaxRetries          int `json:"max_retries" mapstructure:"max_retries"`                   // HTTP重试次数 (默认:5)
	ConcurrentDownloads int `json:"concurrent_downloads" mapstructure:"concurrent_downloads"` // 资源并发下载数 (默认:5)
	PageDelaySeconds    int `json:"page_delay" mapstructure:"page_delay"`                     // 页面间礼貌延迟(秒) (默认:1)
	CaptureDelaySeconds int `json:"capture_delay" mapstructure:"capture_delay"`               // 快照间延迟(秒) (默认:2)
	MaxPages            int `json:"max_pages" mapstructure:"max_pages"`                       // 单次镜像页面数上限 (防御性限制)
	ConnectTimeout      int `json:"connect_timeout" mapstructure:"connect_timeout"`           // 连接超时(秒) (默认:10)
	ReadTimeout         int `json:"read_timeout" mapstructure:"read_timeout"`                 // 读取超时(秒) (默认:30)
}

// Validate 验证配置
func (c *MirrorConfig) Validate() error {
	if c.Depth < 0 || c.Depth > 5 {
		return fmt.Errorf("深度必须在0-5之间")
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("重试次数必须在0-10之间")
	}
	if c.ConcurrentDownloads < 1 || c.ConcurrentDownloads > 100 {
		return fmt.Errorf("并发下载数必须在1-100之间")
	}
	if c.PageDelaySeconds < 0 || c.PageDelaySeconds > 60 {
		return fmt.Errorf("页面延迟必须在0-60秒之间")
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("页面数上限必须大于0")
	}
	return nil
}

// ValidateDate 验证日期过滤参数 (允许为空)
func ValidateDate(date string) error {
	if date == "" {
		return nil
	}
	if !datePattern.MatchString(date) {
		return fmt.Errorf("日期格式必须是YYYYMMDD: %q", date)
	}
	return nil
}
