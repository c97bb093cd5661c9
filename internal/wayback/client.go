package wayback

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/RecoveryAshes/waybackmirror/internal/utils"
	"github.com/andybalholm/brotli"
)

const (
	// DefaultUserAgent 默认User-Agent
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36"
)

// retryStatusCodes 触发重试的HTTP状态码
var retryStatusCodes = map[int]bool{
	http.StatusTooManyRequests:     true, // 429
	http.StatusInternalServerError: true, // 500
	http.StatusBadGateway:          true, // 502
	http.StatusServiceUnavailable:  true, // 503
	http.StatusGatewayTimeout:      true, // 504
}

// Response HTTP响应
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ContentType 响应的Content-Type (去除参数部分)
func (r *Response) ContentType() string {
	ct := r.Header.Get("Content-Type")
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = ct[:idx]
	}
	return strings.TrimSpace(ct)
}

// ClientConfig 客户端配置
type ClientConfig struct {
	BaseURL        string            // 存档服务地址,空值使用DefaultArchiveBase
	MaxRetries     int               // 重试次数 (仅对429/5xx状态码)
	ConnectTimeout time.Duration     // 连接超时
	ReadTimeout    time.Duration     // 整体请求超时
	UserAgent      string            // 自定义User-Agent
	Headers        map[string]string // 附加请求头 (已通过HeaderValidator验证)
}

// Client 存档服务HTTP客户端
// 重试策略: 对 {429,500,502,503,504} 指数退避重试,仅限GET请求,
// 其他组件只观察最终成功/失败
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
	userAgent  string
	headers    map[string]string
}

// NewClient 创建客户端
func NewClient(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = utils.DefaultArchiveBase
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: config.ConnectTimeout,
			}).DialContext,
		},
		Timeout: config.ReadTimeout,
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		maxRetries: config.MaxRetries,
		userAgent:  config.UserAgent,
		headers:    config.Headers,
	}
}

// BaseURL 存档服务地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CaptureURL 构造指定时间戳的存档捕获URL,失败返回""
func (c *Client) CaptureURL(originalURL, timestamp string) string {
	return utils.ArchiveURL(c.baseURL, originalURL, timestamp)
}

// Get 发起GET请求,带指数退避重试
// 返回已解压的响应体; 非2xx状态码(重试耗尽后)作为错误返回
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) (*Response, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("请求URL为空")
	}

	if len(params) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL = rawURL + sep + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// 指数退避: 1s, 2s, 4s, ...
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			utils.Debugf("重试 %d/%d [%s],等待 %s", attempt, c.maxRetries, rawURL, backoff)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, retryable, err := c.doGet(ctx, rawURL)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if !retryable {
			return nil, err
		}
	}

	return nil, fmt.Errorf("重试耗尽: %w", lastErr)
}

// doGet 执行单次GET请求
// 返回: 响应, 失败是否可重试, 错误
func (c *Client) doGet(ctx context.Context, rawURL string) (*Response, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("构造请求失败: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	// 显式声明Accept-Encoding,解压由decompressBody统一处理
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	for name, value := range c.headers {
		req.Header.Set(name, value)
		utils.Debugf("应用自定义头部: %s: %s", name, utils.RedactHeaderValue(name, value))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// 网络层错误视为可重试
		return nil, true, fmt.Errorf("请求失败 [%s]: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("读取响应失败 [%s]: %w", rawURL, err)
	}

	if retryStatusCodes[resp.StatusCode] {
		return nil, true, fmt.Errorf("HTTP %d [%s]", resp.StatusCode, rawURL)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("HTTP %d [%s]", resp.StatusCode, rawURL)
	}

	if encoding := resp.Header.Get("Content-Encoding"); encoding != "" {
		decompressed, err := decompressBody(encoding, body)
		if err != nil {
			// 解压失败时退回原始body
			utils.Warnf("解压响应失败 [%s] (编码=%s): %v", rawURL, encoding, err)
		} else {
			body = decompressed
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, false, nil
}

// decompressBody 根据Content-Encoding头部解压响应体
// 支持 gzip, deflate, br (Brotli) 三种压缩格式
func decompressBody(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip":
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()
		return io.ReadAll(reader)

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()
		return io.ReadAll(reader)

	case "br":
		return io.ReadAll(brotli.NewReader(bytes.NewReader(body)))

	case "", "identity":
		return body, nil

	default:
		return nil, fmt.Errorf("不支持的压缩格式: %s", encoding)
	}
}
