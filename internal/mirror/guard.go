package mirror

import (
	"sync"
	"time"

	"github.com/RecoveryAshes/waybackmirror/internal/utils"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	// defaultMemoryReserve 系统可用内存安全保留值 (256MB)
	defaultMemoryReserve = 256 * 1024 * 1024

	// memoryCheckInterval 内存检查结果缓存时长
	memoryCheckInterval = 5 * time.Second
)

// CrawlGuard 爬取防护器
// 职责: 防止病态的同站链接图拖垮单次镜像任务——
// 限制单次任务处理的页面总数,并在系统可用内存低于保留值时拒绝继续扩展
type CrawlGuard struct {
	maxPages      int
	memoryReserve uint64

	mu        sync.Mutex
	pages     int
	capLogged bool

	// 缓存的内存检查结果(避免每个链接都查询系统)
	lastMemCheck time.Time
	memOK        bool
}

// NewCrawlGuard 创建防护器
func NewCrawlGuard(maxPages int) *CrawlGuard {
	if maxPages < 1 {
		maxPages = 500
	}
	return &CrawlGuard{
		maxPages:      maxPages,
		memoryReserve: defaultMemoryReserve,
		memOK:         true,
	}
}

// PageSaved 记录一个成功落盘的页面
func (g *CrawlGuard) PageSaved() {
	g.mu.Lock()
	g.pages++
	g.mu.Unlock()
}

// AllowExpansion 在链接扩展前调用
// 页面数达到上限或内存吃紧时返回false,调用方停止递归新链接
func (g *CrawlGuard) AllowExpansion() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pages >= g.maxPages {
		if !g.capLogged {
			utils.Warnf("页面数达到上限 (%d),停止扩展新链接", g.maxPages)
			g.capLogged = true
		}
		return false
	}

	return g.memoryAvailable()
}

// memoryAvailable 检查系统可用内存是否高于保留值,结果缓存
// 调用方必须持有g.mu
func (g *CrawlGuard) memoryAvailable() bool {
	now := time.Now()
	if now.Sub(g.lastMemCheck) < memoryCheckInterval {
		return g.memOK
	}
	g.lastMemCheck = now

	vmStat, err := mem.VirtualMemory()
	if err != nil {
		// 无法读取系统内存时不阻止爬取
		utils.Debugf("获取系统内存失败: %v", err)
		g.memOK = true
		return true
	}

	g.memOK = vmStat.Available >= g.memoryReserve
	if !g.memOK {
		utils.Warnf("系统可用内存不足 (%.1f MB < %.1f MB),暂停扩展新链接",
			float64(vmStat.Available)/(1024*1024), float64(g.memoryReserve)/(1024*1024))
	}
	return g.memOK
}
