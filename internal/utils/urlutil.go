package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	// DefaultArchiveBase Wayback Machine服务地址
	DefaultArchiveBase = "https://web.archive.org"

	// ArchiveHost 存档服务主机名(用于识别存档注入的页面元素)
	ArchiveHost = "archive.org"
)

// archiveRewritePattern 存档改写URL模式: .../web/<时间戳>/<原始URL>
// 原始URL可能不带协议前缀
var archiveRewritePattern = regexp.MustCompile(`/web/\d+[a-z_]*/(https?://)?(.+)`)

// CleanURL 去除URL中的存档改写部分,并规范化协议
// 返回空字符串表示无法恢复(对应失败哨兵),绝不panic
//
// 规则:
//   - 空输入 → ""
//   - data: URI原样返回(不是可抓取的资源地址)
//   - 含存档改写模式 → 提取原始URL,缺协议时补http://
//   - 其他缺协议的URL → 补http://
//
// 幂等: CleanURL(CleanURL(x)) == CleanURL(x)
func CleanURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	// data: URI不做任何处理
	if strings.HasPrefix(rawURL, "data:") {
		return rawURL
	}

	// 提取存档改写模式中的原始URL
	if m := archiveRewritePattern.FindStringSubmatch(rawURL); m != nil {
		cleaned := m[1] + m[2]
		if !strings.HasPrefix(cleaned, "http://") && !strings.HasPrefix(cleaned, "https://") {
			cleaned = "http://" + cleaned
		}
		return cleaned
	}

	// 补全协议
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "http://" + rawURL
	}

	return rawURL
}

// ArchiveURL 构造存档捕获URL: <base>/web/<时间戳>/<清理后的URL>
// base为空时使用DefaultArchiveBase,任一必要参数为空或URL无法清理时返回""
func ArchiveURL(base, originalURL, timestamp string) string {
	if originalURL == "" || timestamp == "" {
		return ""
	}
	if base == "" {
		base = DefaultArchiveBase
	}

	cleaned := CleanURL(originalURL)
	if cleaned == "" {
		return ""
	}

	return fmt.Sprintf("%s/web/%s/%s", strings.TrimRight(base, "/"), timestamp, cleaned)
}

// BaseURL 提取URL的 scheme://host 部分,失败返回""
func BaseURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}

	return fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
}

// JoinURL 相对URL解析: 将ref相对于base解析为绝对URL
// ref本身已是绝对URL时直接返回规范化结果,失败返回""
func JoinURL(base, ref string) string {
	if base == "" || ref == "" {
		return ""
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}

	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}

	// 无主机的http(s)引用(如 http:///about)按相对路径处理,
	// 否则ResolveReference会让空主机的"绝对"引用直接胜出
	if refURL.Host == "" && (refURL.Scheme == "http" || refURL.Scheme == "https") {
		refURL.Scheme = ""
	}

	return baseURL.ResolveReference(refURL).String()
}

// HostOf 提取URL的主机名,失败返回""
func HostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}
