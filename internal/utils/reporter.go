package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/waybackmirror/internal/models"
	"github.com/schollz/progressbar/v3"
)

// Reporter 报告生成器
type Reporter struct {
	outputDir string
}

// NewReporter 创建报告生成器
func NewReporter(outputDir string) *Reporter {
	return &Reporter{
		outputDir: outputDir,
	}
}

// GenerateReport 生成镜像任务报告,写入 <output>/reports/
func (r *Reporter) GenerateReport(report *models.MirrorReport) error {
	reportsDir := filepath.Join(r.outputDir, "reports")
	if err := os.MkdirAll(reportsDir, 0755); err != nil {
		return fmt.Errorf("创建报告目录失败: %w", err)
	}

	if err := r.saveJSONReport(reportsDir, "mirror_report.json", report); err != nil {
		return err
	}

	// 单独保存页面清单,方便脚本消费
	if err := r.saveJSONReport(reportsDir, "pages.json", report.Pages); err != nil {
		return err
	}

	Infof("✅ 报告已生成: %s", reportsDir)
	return nil
}

// saveJSONReport 保存JSON报告
func (r *Reporter) saveJSONReport(dir string, filename string, data interface{}) error {
	path := filepath.Join(dir, filename)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("写入报告文件失败: %w", err)
	}

	Debugf("保存报告: %s", path)
	return nil
}

// NewProgressBar 创建进度条
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
