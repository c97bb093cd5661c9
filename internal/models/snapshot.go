package models

import (
	"fmt"
	"time"
)

const (
	// TimestampLength Wayback时间戳长度 (YYYYMMDDHHMMSS)
	TimestampLength = 14

	// DateLength 日期过滤参数长度 (YYYYMMDD)
	DateLength = 8
)

// Snapshot 快照描述符
// CDX索引API返回的一行数据,唯一标识某URL在某时间点的一次存档捕获
type Snapshot struct {
	Timestamp   string `json:"timestamp"`  // 14位时间戳 (YYYYMMDDHHMMSS)
	OriginalURL string `json:"original"`   // 原始URL
	StatusCode  int    `json:"statuscode"` // 捕获时的HTTP状态码
	Digest      string `json:"digest"`     // 内容摘要(索引端已按摘要折叠去重)
}

// CaptureTime 解析时间戳为time.Time
func (s *Snapshot) CaptureTime() (time.Time, error) {
	if len(s.Timestamp) != TimestampLength {
		return time.Time{}, fmt.Errorf("时间戳长度无效: %q", s.Timestamp)
	}
	return time.Parse("20060102150405", s.Timestamp)
}

// Validate 验证快照字段
func (s *Snapshot) Validate() error {
	if len(s.Timestamp) != TimestampLength {
		return fmt.Errorf("时间戳必须是%d位数字: %q", TimestampLength, s.Timestamp)
	}
	if s.OriginalURL == "" {
		return fmt.Errorf("原始URL不能为空")
	}
	return nil
}

// PageRecord 本地页面记录
// 一次页面捕获成功落盘后的结果,创建后不再修改
type PageRecord struct {
	SourceURL string    `json:"source_url"` // 页面的原始URL
	Timestamp string    `json:"timestamp"`  // 捕获时间戳
	LocalDir  string    `json:"local_dir"`  // 本地存储目录
	Filename  string    `json:"filename"`   // 本地文件名
	Depth     int       `json:"depth"`      // 爬取深度 (0为入口页)
	SavedAt   time.Time `json:"saved_at"`   // 落盘时间
}

// FilePath 页面文件的完整相对路径
func (r *PageRecord) FilePath() string {
	return r.LocalDir + "/" + r.Filename
}

// MirrorStats 镜像任务统计
type MirrorStats struct {
	SnapshotCount int     `json:"snapshot_count"` // 处理的快照数
	PagesSaved    int     `json:"pages_saved"`    // 成功保存的页面数
	PagesFailed   int     `json:"pages_failed"`   // 失败页面数
	PagesSkipped  int     `json:"pages_skipped"`  // 跳过页面数(已访问/超深度)
	AssetsSaved   int     `json:"assets_saved"`   // 成功保存的资源数
	AssetsFailed  int     `json:"assets_failed"`  // 失败资源数
	VisitedURLs   int     `json:"visited_urls"`   // 已访问URL数
	Duration      float64 `json:"duration"`       // 总耗时(秒)
}
