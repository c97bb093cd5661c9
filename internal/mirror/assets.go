package mirror

import (
	"context"
	"mime"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/RecoveryAshes/waybackmirror/internal/utils"
	"github.com/RecoveryAshes/waybackmirror/internal/wayback"
)

// assetRoot 资源文件在页面目录下的存放根目录
const assetRoot = "assets"

// AssetFetcher 资源下载器
// 职责: 下载页面引用的静态资源(图片/脚本/样式/媒体)的存档副本,
// 按原始URL路径落盘,并在单次运行内对同一资源URL去重
//
// processed是运行级注册表: 同一资源URL在一次运行内最多发起一次抓取,
// 即使被多个页面引用。claim为原子的"不存在则插入",有界并发池中的
// 竞争调用者只有一个能完成插入,其余直接短路
type AssetFetcher struct {
	client *wayback.Client

	mu        sync.Mutex
	processed map[string]bool

	statsMu sync.Mutex
	saved   int
	failed  int
}

// NewAssetFetcher 创建资源下载器
func NewAssetFetcher(client *wayback.Client) *AssetFetcher {
	return &AssetFetcher{
		client:    client,
		processed: make(map[string]bool),
	}
}

// claim 原子的"不存在则插入"
// 返回true表示本调用者获得该URL的抓取权
func (f *AssetFetcher) claim(assetURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.processed[assetURL] {
		return false
	}
	f.processed[assetURL] = true
	return true
}

// Fetch 下载单个资源的存档副本并保存到 destDir 下
// 返回页面内可引用的相对路径,""表示失败或该URL已被处理过
// (已处理是预期的去重短路,不记为错误)
//
// 资源失败绝不影响页面处理,所有错误在此处记录日志后吞掉
func (f *AssetFetcher) Fetch(ctx context.Context, assetURL, timestamp, destDir string) string {
	if assetURL == "" || !f.claim(assetURL) {
		return ""
	}

	captureURL := f.client.CaptureURL(assetURL, timestamp)
	if captureURL == "" {
		return ""
	}

	utils.Debugf("下载资源: %s", captureURL)
	resp, err := f.client.Get(ctx, captureURL, nil)
	if err != nil {
		utils.Errorf("下载资源失败 [%s @ %s]: %v", assetURL, timestamp, err)
		f.markFailed()
		return ""
	}

	relPath := assetPath(assetURL, resp.ContentType())
	if relPath == "" {
		f.markFailed()
		return ""
	}

	if err := utils.SaveToFile(resp.Body, destDir, relPath); err != nil {
		utils.Errorf("保存资源失败 [%s]: %v", assetURL, err)
		f.markFailed()
		return ""
	}

	f.markSaved()
	return relPath
}

// Stats 返回 (成功数, 失败数)
func (f *AssetFetcher) Stats() (int, int) {
	f.statsMu.Lock()
	defer f.statsMu.Unlock()
	return f.saved, f.failed
}

func (f *AssetFetcher) markSaved() {
	f.statsMu.Lock()
	f.saved++
	f.statsMu.Unlock()
}

func (f *AssetFetcher) markFailed() {
	f.statsMu.Lock()
	f.failed++
	f.statsMu.Unlock()
}

// assetPath 根据资源原始URL的路径推导本地相对存储路径
// 路径无扩展名时按Content-Type推断,无法推断时默认.html;
// 路径为空时使用index.html。结果带assets/前缀,失败返回""
func assetPath(assetURL, contentType string) string {
	parsed, err := url.Parse(assetURL)
	if err != nil {
		return ""
	}

	p := strings.TrimPrefix(parsed.Path, "/")
	if p == "" {
		p = "index.html"
	} else if path.Ext(p) == "" {
		p += extensionForType(contentType)
	}

	return path.Join(assetRoot, p)
}

// extensionForType 根据Content-Type推断文件扩展名,无映射时默认.html
func extensionForType(contentType string) string {
	if contentType == "" {
		return ".html"
	}

	exts, err := mime.ExtensionsByType(contentType)
	if err != nil || len(exts) == 0 {
		return ".html"
	}
	return exts[0]
}
