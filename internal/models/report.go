package models

import (
	"encoding/json"
	"time"
)

// MirrorReport 镜像任务报告
type MirrorReport struct {
	// 任务信息
	RunID     string `json:"run_id"`
	TargetURL string `json:"target_url"`
	Domain    string `json:"domain"`

	// 时间信息
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  float64   `json:"duration"` // 秒

	// 快照信息
	Snapshots []Snapshot `json:"snapshots"` // 处理过的快照列表

	// 页面列表
	Pages []PageRecord `json:"pages"` // 成功落盘的页面

	// 统计信息
	Stats MirrorStats `json:"stats"`

	// 输出路径
	OutputDir string `json:"output_dir"`

	// 配置快照
	Config MirrorConfig `json:"config"`
}

// ToJSON 序列化为JSON
func (r *MirrorReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *MirrorReport) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}
