package mirror

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/waybackmirror/internal/wayback"
)

// newTestRewriter 构造指向测试服务器的改写器
func newTestRewriter(serverURL string) *Rewriter {
	client := wayback.NewClient(wayback.ClientConfig{BaseURL: serverURL, MaxRetries: 0})
	return NewRewriter(NewAssetFetcher(client), 3)
}

// parseResult 把改写结果解析回文档树方便断言
func parseResult(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("解析改写结果失败: %v", err)
	}
	return doc
}

func TestRewriter_RewritesImgToLocalPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer server.Close()

	rw := newTestRewriter(server.URL)
	markup := []byte(`<html><body><img src="http://x.com/a.png"></body></html>`)

	result, err := rw.Rewrite(context.Background(), markup, "20230101000000", t.TempDir(), "http://x.com/page")
	if err != nil {
		t.Fatalf("改写失败: %v", err)
	}

	doc := parseResult(t, result)
	src, _ := doc.Find("img").Attr("src")
	if src != "assets/a.png" {
		t.Errorf("img src = %q, 期望 assets/a.png", src)
	}
}

func TestRewriter_AnchorRewrittenToAbsolute(t *testing.T) {
	rw := newTestRewriter("http://127.0.0.1:9999")
	markup := []byte(`<html><body><a href="/about">关于</a><a href="#top">顶部</a><a href="mailto:a@b.c">邮件</a></body></html>`)

	result, err := rw.Rewrite(context.Background(), markup, "20230101000000", t.TempDir(), "http://x.com/page")
	if err != nil {
		t.Fatalf("改写失败: %v", err)
	}

	doc := parseResult(t, result)
	hrefs := doc.Find("a").Map(func(_ int, sel *goquery.Selection) string {
		href, _ := sel.Attr("href")
		return href
	})

	if hrefs[0] != "http://x.com/about" {
		t.Errorf("相对链接 = %q, 期望 http://x.com/about", hrefs[0])
	}
	if hrefs[1] != "#top" {
		t.Errorf("片段链接不应被改写: %q", hrefs[1])
	}
	if hrefs[2] != "mailto:a@b.c" {
		t.Errorf("mailto链接不应被改写: %q", hrefs[2])
	}
}

func TestRewriter_FailedAssetKeepsAbsoluteURL(t *testing.T) {
	// 资源服务器始终失败
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	rw := newTestRewriter(server.URL)
	markup := []byte(`<html><body><img src="/a.png"></body></html>`)

	// 资源失败不影响页面改写本身
	result, err := rw.Rewrite(context.Background(), markup, "20230101000000", t.TempDir(), "http://x.com/page")
	if err != nil {
		t.Fatalf("资源失败不应导致页面失败: %v", err)
	}

	doc := parseResult(t, result)
	src, _ := doc.Find("img").Attr("src")
	if src != "http://x.com/a.png" {
		t.Errorf("失败资源应保留清理后的绝对地址: %q", src)
	}
}

func TestRewriter_StripsArchiveElements(t *testing.T) {
	rw := newTestRewriter("http://127.0.0.1:9999")
	markup := []byte(`<html><head>
		<script>window.__banner="https://archive.org/toolbar";</script>
		<script>var siteOwn = 1;</script>
		<style>.wb{content:"archive.org"}</style>
	</head><body></body></html>`)

	result, err := rw.Rewrite(context.Background(), markup, "20230101000000", t.TempDir(), "http://x.com/")
	if err != nil {
		t.Fatalf("改写失败: %v", err)
	}

	doc := parseResult(t, result)
	if n := doc.Find("script").Length(); n != 1 {
		t.Errorf("存档注入script应被剥离,剩余script数 = %d, 期望 1", n)
	}
	if n := doc.Find("style").Length(); n != 0 {
		t.Errorf("提及存档主机的style应被剥离,剩余 = %d", n)
	}
	if !strings.Contains(result, "siteOwn") {
		t.Error("站点自身的script不应被剥离")
	}
}

func TestRewriter_SkipsNonFetchableRefs(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = w.Write([]byte("x"))
	}))
	defer server.Close()

	rw := newTestRewriter(server.URL)
	markup := []byte(`<html><body>
		<img src="data:image/gif;base64,R0lGOD">
		<script src="javascript:void(0)"></script>
	</body></html>`)

	result, err := rw.Rewrite(context.Background(), markup, "20230101000000", t.TempDir(), "http://x.com/")
	if err != nil {
		t.Fatalf("改写失败: %v", err)
	}

	if requests != 0 {
		t.Errorf("data:/javascript:引用不应触发抓取,实际请求数 = %d", requests)
	}

	doc := parseResult(t, result)
	src, _ := doc.Find("img").Attr("src")
	if !strings.HasPrefix(src, "data:") {
		t.Errorf("data URI应保持原样: %q", src)
	}
}

func TestRewriter_MissingArgs(t *testing.T) {
	rw := newTestRewriter("http://127.0.0.1:9999")

	tests := []struct {
		name        string
		content     []byte
		timestamp   string
		destDir     string
		originalURL string
	}{
		{"空内容", nil, "20230101000000", "/tmp", "http://x.com"},
		{"空时间戳", []byte("<html></html>"), "", "/tmp", "http://x.com"},
		{"空目录", []byte("<html></html>"), "20230101000000", "", "http://x.com"},
		{"空URL", []byte("<html></html>"), "20230101000000", "/tmp", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := rw.Rewrite(context.Background(), tt.content, tt.timestamp, tt.destDir, tt.originalURL); err == nil {
				t.Error("缺少必要参数应当返回错误")
			}
		})
	}
}

func TestRewriter_InvalidBaseURL(t *testing.T) {
	rw := newTestRewriter("http://127.0.0.1:9999")

	// 无法解析出scheme://host的原始URL
	if _, err := rw.Rewrite(context.Background(), []byte("<html></html>"), "20230101000000", t.TempDir(), "not-a-url"); err == nil {
		t.Error("无法确定基准URL时应当返回错误")
	}
}
