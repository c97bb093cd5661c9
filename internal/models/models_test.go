package models

import (
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"有效的HTTP URL", "http://example.com", false},
		{"有效的HTTPS URL", "https://example.com", false},
		{"带路径的URL", "https://example.com/path/to/resource", false},
		{"无效的协议", "ftp://example.com", true},
		{"无效的URL", "not a url", true},
		{"空URL", "", true},
		{"无协议", "example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMirrorConfig_Validate(t *testing.T) {
	valid := MirrorConfig{
		Depth:               2,
		MaxRetries:          5,
		ConcurrentDownloads: 5,
		PageDelaySeconds:    1,
		MaxPages:            500,
	}

	tests := []struct {
		name    string
		mutate  func(c *MirrorConfig)
		wantErr bool
	}{
		{"有效配置", func(c *MirrorConfig) {}, false},
		{"深度为0有效", func(c *MirrorConfig) { c.Depth = 0 }, false},
		{"深度过大", func(c *MirrorConfig) { c.Depth = 6 }, true},
		{"深度为负", func(c *MirrorConfig) { c.Depth = -1 }, true},
		{"重试次数过大", func(c *MirrorConfig) { c.MaxRetries = 11 }, true},
		{"并发数为0", func(c *MirrorConfig) { c.ConcurrentDownloads = 0 }, true},
		{"延迟为负", func(c *MirrorConfig) { c.PageDelaySeconds = -1 }, true},
		{"页面上限为0", func(c *MirrorConfig) { c.MaxPages = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid
			tt.mutate(&config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDate(t *testing.T) {
	tests := []struct {
		name    string
		date    string
		wantErr bool
	}{
		{"空日期允许", "", false},
		{"合法日期", "20200101", false},
		{"过短", "2020010", true},
		{"过长", "202001011", true},
		{"非数字", "2020010a", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDate(tt.date)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDate(%q) error = %v, wantErr %v", tt.date, err, tt.wantErr)
			}
		})
	}
}

func TestSnapshot_CaptureTime(t *testing.T) {
	snapshot := Snapshot{Timestamp: "20230101123045"}
	captureTime, err := snapshot.CaptureTime()
	if err != nil {
		t.Fatalf("解析时间戳失败: %v", err)
	}
	if captureTime.Year() != 2023 || captureTime.Month() != 1 || captureTime.Second() != 45 {
		t.Errorf("解析结果不正确: %v", captureTime)
	}

	bad := Snapshot{Timestamp: "2023"}
	if _, err := bad.CaptureTime(); err == nil {
		t.Error("过短的时间戳应当报错")
	}
}

func TestSnapshot_Validate(t *testing.T) {
	valid := Snapshot{Timestamp: "20230101123045", OriginalURL: "http://example.com", StatusCode: 200, Digest: "ABC"}
	if err := valid.Validate(); err != nil {
		t.Errorf("合法快照被拒绝: %v", err)
	}

	noURL := Snapshot{Timestamp: "20230101123045"}
	if err := noURL.Validate(); err == nil {
		t.Error("缺少原始URL的快照应当被拒绝")
	}
}

func TestGenerateRunID(t *testing.T) {
	a := GenerateRunID()
	b := GenerateRunID()
	if a == "" || a == b {
		t.Errorf("任务ID必须非空且唯一: %q, %q", a, b)
	}
}
