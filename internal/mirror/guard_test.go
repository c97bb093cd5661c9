package mirror

import (
	"testing"
)

func TestCrawlGuard_PageCap(t *testing.T) {
	guard := NewCrawlGuard(2)

	if !guard.AllowExpansion() {
		t.Fatal("未达上限时应当允许扩展")
	}

	guard.PageSaved()
	if !guard.AllowExpansion() {
		t.Error("1/2页时应当允许扩展")
	}

	guard.PageSaved()
	if guard.AllowExpansion() {
		t.Error("达到上限后应当拒绝扩展")
	}

	// 拒绝是持久的
	if guard.AllowExpansion() {
		t.Error("达到上限后的再次检查仍应拒绝")
	}
}

func TestNewCrawlGuard_DefaultCap(t *testing.T) {
	guard := NewCrawlGuard(0)
	if guard.maxPages != 500 {
		t.Errorf("非法上限应回退默认值500,实际 %d", guard.maxPages)
	}
}
