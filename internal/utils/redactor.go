package utils

import (
	"strings"
)

// SensitiveKeywords 敏感头部名称关键字 (用于日志脱敏)
var SensitiveKeywords = []string{
	"authorization",
	"token",
	"key",
	"secret",
	"password",
	"credential",
	"api-key",
}

// IsSensitiveHeader 检查头部是否为敏感头部
func IsSensitiveHeader(name string) bool {
	nameLower := strings.ToLower(name)
	for _, keyword := range SensitiveKeywords {
		if strings.Contains(nameLower, keyword) {
			return true
		}
	}
	return false
}

// RedactHeaderValue 脱敏头部值: 敏感头部仅保留前4个字符
func RedactHeaderValue(name, value string) string {
	if !IsSensitiveHeader(name) {
		return value
	}
	if len(value) <= 4 {
		return "****"
	}
	return value[:4] + "****"
}
