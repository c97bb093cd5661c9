package mirror

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/waybackmirror/internal/models"
	"github.com/RecoveryAshes/waybackmirror/internal/utils"
	"github.com/RecoveryAshes/waybackmirror/internal/wayback"
	"golang.org/x/time/rate"
)

// navSelectors 导航区域选择器
// 菜单/导航内的链接优先递归,深度预算耗尽前先保住站点主结构。
// 这是针对常见CMS标记习惯的启发式列表,尽力而为
var navSelectors = []string{
	"nav",
	"header",
	".menu",
	".navigation",
	"#menu",
	"#nav",
	".navbar",
	`[role="navigation"]`,
	".main-menu",
	".primary-menu",
	".top-menu",
	"#primary-menu",
	".header-menu",
}

// Mirror 站点镜像器
// 职责: 解析捕获→改写页面→落盘→提取站内链接→按深度递归,
// 整个遍历共享visited集合防止环路和重复下载
//
// 页面递归是严格串行的深度优先,兄弟链接之间有礼貌延迟,
// 这是限制存档服务负载的刻意设计,不是性能路径
type Mirror struct {
	config    models.MirrorConfig
	outputDir string

	client   *wayback.Client
	fetcher  *AssetFetcher
	rewriter *Rewriter
	guard    *CrawlGuard
	limiter  *rate.Limiter

	stats models.MirrorStats
	pages []models.PageRecord
}

// New 创建站点镜像器
// fetcher的资源注册表是运行级的: 同一Mirror实例处理多个快照时,
// 跨快照复用资源去重
func New(config models.MirrorConfig, outputDir string, client *wayback.Client) *Mirror {
	fetcher := NewAssetFetcher(client)

	limit := rate.Inf
	if config.PageDelaySeconds > 0 {
		limit = rate.Every(time.Duration(config.PageDelaySeconds) * time.Second)
	}

	return &Mirror{
		config:    config,
		outputDir: outputDir,
		client:    client,
		fetcher:   fetcher,
		rewriter:  NewRewriter(fetcher, config.ConcurrentDownloads),
		guard:     NewCrawlGuard(config.MaxPages),
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// MirrorCapture 镜像一个快照: 以pageURL为根、深度0开始一次全新遍历
// 返回入口页面的本地文件路径,""表示失败
func (m *Mirror) MirrorCapture(ctx context.Context, pageURL, timestamp string) string {
	return m.DownloadPage(ctx, pageURL, timestamp, 0, make(map[string]bool))
}

// DownloadPage 下载某URL在指定时间戳的捕获并递归处理站内链接
//
// visited由整个遍历共享: 兄弟链接和更深层级都能看到此前的访问记录,
// 这是防止环路链接图无限递归的唯一机制。任何节点的失败只影响该节点,
// 父级对兄弟链接的循环继续执行
func (m *Mirror) DownloadPage(ctx context.Context, pageURL, timestamp string, depth int, visited map[string]bool) string {
	if pageURL == "" || visited[pageURL] || depth > m.config.Depth {
		m.stats.PagesSkipped++
		return ""
	}

	visited[pageURL] = true
	m.stats.VisitedURLs++

	captureURL := m.client.CaptureURL(pageURL, timestamp)
	if captureURL == "" {
		m.stats.PagesFailed++
		return ""
	}

	utils.Infof("下载页面: %s", captureURL)
	resp, err := m.client.Get(ctx, captureURL, nil)
	if err != nil {
		utils.Errorf("下载页面失败 [%s @ %s]: %v", pageURL, timestamp, err)
		m.stats.PagesFailed++
		return ""
	}

	// 页面目录: <主机名(点转下划线)>_<时间戳>
	pageDir := pageDirName(pageURL, timestamp)
	if pageDir == "" {
		m.stats.PagesFailed++
		return ""
	}

	destDir := filepath.Join(m.outputDir, pageDir)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		utils.Errorf("创建页面目录失败 [%s]: %v", destDir, err)
		m.stats.PagesFailed++
		return ""
	}

	rewritten, err := m.rewriter.Rewrite(ctx, resp.Body, timestamp, destDir, pageURL)
	if err != nil {
		utils.Errorf("处理HTML失败 [%s @ %s]: %v", pageURL, timestamp, err)
		m.stats.PagesFailed++
		return ""
	}

	filename := pageFilename(pageURL)
	if err := utils.SaveToFile([]byte(rewritten), destDir, filename); err != nil {
		utils.Errorf("保存页面失败 [%s]: %v", pageURL, err)
		m.stats.PagesFailed++
		return ""
	}

	filePath := filepath.Join(destDir, filename)
	utils.Infof("页面已保存: %s", filePath)
	m.stats.PagesSaved++
	m.guard.PageSaved()
	m.pages = append(m.pages, models.PageRecord{
		SourceURL: pageURL,
		Timestamp: timestamp,
		LocalDir:  pageDir,
		Filename:  filename,
		Depth:     depth,
		SavedAt:   time.Now(),
	})

	if depth < m.config.Depth {
		m.expand(ctx, rewritten, pageURL, timestamp, depth, visited)
	}

	return filePath
}

// expand 从已落盘的页面提取站内链接并递归
// 导航区域链接优先,跨主机链接不递归,兄弟链接之间执行礼貌延迟
func (m *Mirror) expand(ctx context.Context, markup, pageURL, timestamp string, depth int, visited map[string]bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		utils.Warnf("解析页面链接失败 [%s]: %v", pageURL, err)
		return
	}

	host := utils.HostOf(pageURL)
	if host == "" {
		return
	}

	menuLinks := extractMenuLinks(doc, pageURL)
	menuSet := make(map[string]bool, len(menuLinks))
	for _, link := range menuLinks {
		menuSet[link] = true
	}

	// 导航链接优先递归
	for _, link := range menuLinks {
		if utils.HostOf(link) != host {
			continue
		}
		if !m.recurse(ctx, link, timestamp, depth, visited) {
			return
		}
	}

	// 其余站内链接
	for _, link := range extractAnchorLinks(doc, pageURL) {
		if menuSet[link] || utils.HostOf(link) != host {
			continue
		}
		if !m.recurse(ctx, link, timestamp, depth, visited) {
			return
		}
	}
}

// recurse 对单个链接执行防护检查、礼貌延迟和递归下载
// 返回false表示扩展应当整体停止(防护拒绝或上下文取消)
func (m *Mirror) recurse(ctx context.Context, link, timestamp string, depth int, visited map[string]bool) bool {
	if visited[link] {
		return true
	}
	if !m.guard.AllowExpansion() {
		return false
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return false
	}

	m.DownloadPage(ctx, link, timestamp, depth+1, visited)
	return true
}

// Stats 返回当前统计(合并资源下载器的计数)
func (m *Mirror) Stats() models.MirrorStats {
	stats := m.stats
	stats.AssetsSaved, stats.AssetsFailed = m.fetcher.Stats()
	return stats
}

// Pages 返回已落盘的页面记录
func (m *Mirror) Pages() []models.PageRecord {
	return m.pages
}

// extractMenuLinks 提取导航区域内的链接,保持发现顺序并去重
func extractMenuLinks(doc *goquery.Document, pageURL string) []string {
	seen := make(map[string]bool)
	var links []string

	for _, selector := range navSelectors {
		doc.Find(selector).Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
			if link := resolveLink(sel, pageURL); link != "" && !seen[link] {
				seen[link] = true
				links = append(links, link)
			}
		})
	}

	return links
}

// extractAnchorLinks 提取文档内所有锚链接,保持文档顺序并去重
func extractAnchorLinks(doc *goquery.Document, pageURL string) []string {
	seen := make(map[string]bool)
	var links []string

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if link := resolveLink(sel, pageURL); link != "" && !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	})

	return links
}

// resolveLink 清理并解析单个锚链接为绝对URL,不可用返回""
func resolveLink(sel *goquery.Selection, pageURL string) string {
	href, _ := sel.Attr("href")
	if href == "" || shouldSkipRef(href) {
		return ""
	}

	cleaned := utils.CleanURL(href)
	if cleaned == "" {
		return ""
	}

	return utils.JoinURL(pageURL, cleaned)
}

// pageDirName 页面目录名: 主机名(点转下划线)_时间戳
func pageDirName(pageURL, timestamp string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return strings.ReplaceAll(parsed.Host, ".", "_") + "_" + timestamp
}

// pageFilename 页面文件名: URL路径斜杠转下划线,空路径用index.html
func pageFilename(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "index.html"
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return "index.html"
	}
	return strings.ReplaceAll(path, "/", "_") + ".html"
}
