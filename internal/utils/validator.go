package utils

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxHeaderValueLength HTTP头部值最大长度 (8KB)
	MaxHeaderValueLength = 8192
)

// ForbiddenHeaders 禁止用户配置的头部 (由HTTP客户端管理)
var ForbiddenHeaders = []string{
	"Host",
	"Content-Length",
	"Transfer-Encoding",
	"Connection",
}

// HeaderValidator 验证用户配置的HTTP头部是否符合RFC 7230规范
type HeaderValidator struct {
	// nameRegex 验证头部名称 (字母数字连字符)
	nameRegex *regexp.Regexp

	// valueRegex 验证头部值 (可打印ASCII)
	valueRegex *regexp.Regexp

	// forbiddenHeaders 禁止用户配置的头部
	forbiddenHeaders map[string]bool
}

// NewHeaderValidator 创建验证器
func NewHeaderValidator() *HeaderValidator {
	forbidden := make(map[string]bool)
	for _, h := range ForbiddenHeaders {
		forbidden[strings.ToLower(h)] = true
	}

	return &HeaderValidator{
		nameRegex:        regexp.MustCompile(`^[A-Za-z0-9-]+$`),
		valueRegex:       regexp.MustCompile(`^[\x20-\x7E\t]*$`),
		forbiddenHeaders: forbidden,
	}
}

// ValidateHeader 验证头部名称+值
func (hv *HeaderValidator) ValidateHeader(name, value string) error {
	if hv.IsForbidden(name) {
		return fmt.Errorf("头部 %q 由HTTP客户端自动管理,不允许自定义", name)
	}

	if name == "" || !hv.nameRegex.MatchString(name) {
		return fmt.Errorf("头部名称 %q 非法 (仅允许字母、数字和连字符)", name)
	}

	if len(value) > MaxHeaderValueLength {
		return fmt.Errorf("头部 %q 的值过长: %d 字节 (最大 %d)", name, len(value), MaxHeaderValueLength)
	}

	if !hv.valueRegex.MatchString(value) {
		return fmt.Errorf("头部 %q 的值包含非法字符 (仅允许可打印ASCII字符)", name)
	}

	return nil
}

// IsForbidden 检查头部是否被禁止
func (hv *HeaderValidator) IsForbidden(name string) bool {
	return hv.forbiddenHeaders[strings.ToLower(name)]
}

// ValidateAll 验证头部集合,返回第一个非法项的错误
func (hv *HeaderValidator) ValidateAll(headers map[string]string) error {
	for name, value := range headers {
		if err := hv.ValidateHeader(name, value); err != nil {
			return err
		}
	}
	return nil
}
