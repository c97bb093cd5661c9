package mirror

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/waybackmirror/internal/utils"
	"golang.org/x/net/html"
	"golang.org/x/sync/semaphore"
)

// assetAttrs 识别的资源引用: 标签→属性
var assetAttrs = []struct {
	tag  string
	attr string
}{
	{"img", "src"},
	{"img", "data-src"},
	{"script", "src"},
	{"link", "href"},
	{"audio", "src"},
	{"video", "src"},
	{"source", "src"},
}

// skipRefPrefixes 不作为可抓取引用处理的前缀
var skipRefPrefixes = []string{"data:", "javascript:", "#", "mailto:", "tel:"}

// shouldSkipRef 判断引用是否跳过(非资源地址)
func shouldSkipRef(ref string) bool {
	for _, prefix := range skipRefPrefixes {
		if strings.HasPrefix(ref, prefix) {
			return true
		}
	}
	return false
}

// assetJob 一次资源改写任务
// result槽位只由对应goroutine写入,汇合后串行读取,无需加锁
type assetJob struct {
	sel     *goquery.Selection
	attr    string
	fullURL string
	result  string
}

// Rewriter 页面改写器
// 职责: 解析捕获页面的HTML,剥离存档注入的元素,并发下载页面引用的
// 资源并把引用改写为本地相对路径,导航链接改写为清理后的绝对URL
type Rewriter struct {
	fetcher     *AssetFetcher
	concurrency int64
}

// NewRewriter 创建改写器
// concurrency是资源下载的并发上限(无界并发会触发存档服务限流)
func NewRewriter(fetcher *AssetFetcher, concurrency int) *Rewriter {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Rewriter{
		fetcher:     fetcher,
		concurrency: int64(concurrency),
	}
}

// Rewrite 处理一个捕获页面的HTML
// 字节输入按宽容UTF-8解码(非法字节丢弃),改写后的文档序列化为文本返回
func (rw *Rewriter) Rewrite(ctx context.Context, content []byte, timestamp, destDir, originalURL string) (string, error) {
	if len(content) == 0 || timestamp == "" || destDir == "" || originalURL == "" {
		return "", fmt.Errorf("HTML处理缺少必要参数")
	}

	text := strings.ToValidUTF8(string(content), "")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return "", fmt.Errorf("解析HTML失败: %w", err)
	}

	base := utils.BaseURL(originalURL)
	if base == "" {
		return "", fmt.Errorf("无法确定基准URL: %s", originalURL)
	}

	stripArchiveElements(doc)

	// 收集资源引用,并先把属性改写为清理后的绝对地址:
	// 下载失败的资源至少保留可用的远程链接,不破坏页面渲染
	jobs := rw.collectAssetJobs(doc, base)

	// 有界并发抓取,全部汇合后再串行应用改写,避免并发修改文档树
	sem := semaphore.NewWeighted(rw.concurrency)
	var wg sync.WaitGroup
	for _, job := range jobs {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(j *assetJob) {
			defer wg.Done()
			defer sem.Release(1)
			j.result = rw.fetcher.Fetch(ctx, j.fullURL, timestamp, destDir)
		}(job)
	}
	wg.Wait()

	for _, job := range jobs {
		if job.result != "" {
			job.sel.SetAttr(job.attr, job.result)
		}
	}

	// 导航链接改写为清理后的绝对URL,离线阅读时未镜像的链接仍可跳转到原站
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if href == "" || shouldSkipRef(href) {
			return
		}

		cleaned := utils.CleanURL(href)
		if cleaned == "" {
			return
		}

		if joined := utils.JoinURL(base, cleaned); joined != "" {
			sel.SetAttr("href", joined)
		}
	})

	return renderDocument(doc)
}

// collectAssetJobs 扫描识别的标签/属性组合,生成资源下载任务
func (rw *Rewriter) collectAssetJobs(doc *goquery.Document, base string) []*assetJob {
	var jobs []*assetJob

	for _, ta := range assetAttrs {
		attr := ta.attr
		doc.Find(ta.tag).Each(func(_ int, sel *goquery.Selection) {
			val, ok := sel.Attr(attr)
			if !ok || val == "" || shouldSkipRef(val) {
				return
			}

			cleaned := utils.CleanURL(val)
			if cleaned == "" {
				return
			}

			fullURL := utils.JoinURL(base, cleaned)
			if fullURL == "" {
				return
			}

			sel.SetAttr(attr, fullURL)
			jobs = append(jobs, &assetJob{sel: sel, attr: attr, fullURL: fullURL})
		})
	}

	return jobs
}

// stripArchiveElements 剥离存档服务注入的元素
// 只移除文本内容提及存档主机的script/style/link/iframe,
// 站点自身的同类标签不受影响
func stripArchiveElements(doc *goquery.Document) {
	doc.Find("script, style, link, iframe").Each(func(_ int, sel *goquery.Selection) {
		if strings.Contains(sel.Text(), utils.ArchiveHost) {
			sel.Remove()
		}
	})
}

// renderDocument 序列化文档树
func renderDocument(doc *goquery.Document) (string, error) {
	var buf bytes.Buffer
	for _, node := range doc.Nodes {
		if err := html.Render(&buf, node); err != nil {
			return "", fmt.Errorf("序列化HTML失败: %w", err)
		}
	}
	return buf.String(), nil
}
