package mirror

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/RecoveryAshes/waybackmirror/internal/wayback"
)

func TestAssetFetcher_Dedup(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer server.Close()

	client := wayback.NewClient(wayback.ClientConfig{BaseURL: server.URL, MaxRetries: 0})
	fetcher := NewAssetFetcher(client)
	destDir := t.TempDir()

	first := fetcher.Fetch(context.Background(), "http://x.com/img/logo.png", "20230101000000", destDir)
	if first != "assets/img/logo.png" {
		t.Errorf("首次下载路径 = %q, 期望 assets/img/logo.png", first)
	}

	// 同一URL再次请求: 去重短路,不再发起抓取
	second := fetcher.Fetch(context.Background(), "http://x.com/img/logo.png", "20230101000000", destDir)
	if second != "" {
		t.Errorf("重复下载应当返回空,实际 %q", second)
	}

	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Errorf("同一资源的抓取次数 = %d, 期望 1", got)
	}

	// 文件确实落盘
	if _, err := os.Stat(filepath.Join(destDir, "assets", "img", "logo.png")); err != nil {
		t.Errorf("资源文件未落盘: %v", err)
	}
}

func TestAssetFetcher_FailureReturnsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := wayback.NewClient(wayback.ClientConfig{BaseURL: server.URL, MaxRetries: 0})
	fetcher := NewAssetFetcher(client)

	if got := fetcher.Fetch(context.Background(), "http://x.com/missing.png", "20230101000000", t.TempDir()); got != "" {
		t.Errorf("下载失败应当返回空,实际 %q", got)
	}

	_, failed := fetcher.Stats()
	if failed != 1 {
		t.Errorf("失败计数 = %d, 期望 1", failed)
	}
}

func TestAssetFetcher_EmptyURL(t *testing.T) {
	client := wayback.NewClient(wayback.ClientConfig{BaseURL: "http://127.0.0.1:9999", MaxRetries: 0})
	fetcher := NewAssetFetcher(client)

	if got := fetcher.Fetch(context.Background(), "", "20230101000000", t.TempDir()); got != "" {
		t.Errorf("空URL应当返回空,实际 %q", got)
	}
}

func TestAssetPath(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		contentType string
		want        string
	}{
		{"带扩展名", "http://x.com/css/style.css", "text/css", "assets/css/style.css"},
		{"无扩展名按Content-Type推断", "http://x.com/img/photo", "image/png", "assets/img/photo.png"},
		{"无扩展名且类型未知", "http://x.com/page", "application/x-unknown", "assets/page.html"},
		{"无扩展名且无类型", "http://x.com/page", "", "assets/page.html"},
		{"空路径", "http://x.com", "", "assets/index.html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := assetPath(tt.url, tt.contentType)
			if got != tt.want {
				t.Errorf("assetPath(%q, %q) = %q, 期望 %q", tt.url, tt.contentType, got, tt.want)
			}
		})
	}
}
