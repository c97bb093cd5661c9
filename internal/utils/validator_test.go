package utils

import (
	"strings"
	"testing"
)

func TestHeaderValidator_ValidateHeader(t *testing.T) {
	validator := NewHeaderValidator()

	tests := []struct {
		name        string
		headerName  string
		headerValue string
		expectError bool
	}{
		{"合法头部", "User-Agent", "Mozilla/5.0", false},
		{"合法头部-数字", "X-Request-ID-123", "abc", false},
		{"合法值-空字符串", "X-Empty", "", false},
		{"非法名称-空格", "User Agent", "x", true},
		{"非法名称-下划线", "User_Agent", "x", true},
		{"非法名称-空字符串", "", "x", true},
		{"非法值-超长", "X-TooLong", strings.Repeat("a", MaxHeaderValueLength+1), true},
		{"非法值-控制字符", "X-Bad", "value\x00null", true},
		{"禁止头部-Host", "Host", "evil.com", true},
		{"禁止头部-大小写不敏感", "content-length", "1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateHeader(tt.headerName, tt.headerValue)
			if (err != nil) != tt.expectError {
				t.Errorf("期望错误=%v, 实际错误=%v", tt.expectError, err)
			}
		})
	}
}

func TestHeaderValidator_ValidateAll(t *testing.T) {
	validator := NewHeaderValidator()

	valid := map[string]string{
		"Accept-Language": "zh-CN",
		"X-Custom":        "value",
	}
	if err := validator.ValidateAll(valid); err != nil {
		t.Errorf("合法头部集合被拒绝: %v", err)
	}

	invalid := map[string]string{
		"Accept-Language": "zh-CN",
		"Connection":      "close",
	}
	if err := validator.ValidateAll(invalid); err == nil {
		t.Error("包含禁止头部的集合应当被拒绝")
	}
}

func TestRedactHeaderValue(t *testing.T) {
	tests := []struct {
		name   string
		header string
		value  string
		want   string
	}{
		{"普通头部不脱敏", "Accept-Language", "zh-CN", "zh-CN"},
		{"Authorization脱敏", "Authorization", "Bearer abc123", "Bear****"},
		{"短敏感值全脱敏", "X-Api-Key", "ab", "****"},
		{"Token关键字脱敏", "X-Auth-Token", "secret-token-value", "secr****"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RedactHeaderValue(tt.header, tt.value)
			if got != tt.want {
				t.Errorf("RedactHeaderValue(%q, %q) = %q, 期望 %q", tt.header, tt.value, got, tt.want)
			}
		})
	}
}
