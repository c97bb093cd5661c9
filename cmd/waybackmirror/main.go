package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/RecoveryAshes/waybackmirror/internal/core"
	"github.com/RecoveryAshes/waybackmirror/internal/mirror"
	"github.com/RecoveryAshes/waybackmirror/internal/models"
	"github.com/RecoveryAshes/waybackmirror/internal/utils"
	"github.com/RecoveryAshes/waybackmirror/internal/wayback"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// 镜像参数
	targetURL  string
	depth      int
	fromDate   string
	toDate     string
	outputDir  string
	concurrent int
	pageDelay  int
)

var rootCmd = &cobra.Command{
	Use:   "waybackmirror",
	Short: "Wayback Machine站点镜像工具",
	Long: `WaybackMirror - 把网站的历史快照镜像到本地 (Go版本)

从Wayback Machine的CDX索引解析某URL的可用历史捕获,下载页面并把
其中的资源引用改写为本地副本,按深度递归站内链接,在本地还原
站点在某个时间点的样子:
  • CDX快照索引查询(按日期范围过滤,按内容摘要去重)
  • 页面资源(图片/脚本/样式/媒体)并发下载与去重
  • 存档注入元素剥离,链接改写为规范绝对URL
  • 导航链接优先的深度受限递归镜像

使用示例:
  # 交互模式(逐项提示输入)
  waybackmirror

  # 命令行参数
  waybackmirror -u example.com -d 2 --from 20200101 --to 20200201

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 加载配置
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		// 初始化日志系统
		logConfig := utils.LogConfig{
			Level:      config.Logging.Level,
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
		}

		// 命令行参数覆盖配置文件
		if logLevel != "" {
			logConfig.Level = logLevel
		}
		if verbose {
			logConfig.Level = "debug"
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// 信号处理(Ctrl+C优雅退出)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		appConfig, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		// URL未通过参数指定时进入交互模式
		if targetURL == "" {
			if err := promptForInput(); err != nil {
				return err
			}
		}

		// 补全协议
		if !strings.HasPrefix(targetURL, "http://") && !strings.HasPrefix(targetURL, "https://") {
			targetURL = "http://" + targetURL
		}
		if err := models.ValidateURL(targetURL); err != nil {
			return fmt.Errorf("目标URL无效: %w", err)
		}
		if err := models.ValidateDate(fromDate); err != nil {
			return err
		}
		if err := models.ValidateDate(toDate); err != nil {
			return err
		}

		appConfig.MergeCLIFlags(depth, concurrent, pageDelay, outputDir)
		if err := appConfig.Mirror.Validate(); err != nil {
			return fmt.Errorf("镜像配置无效: %w", err)
		}

		return runMirror(ctx, appConfig)
	},
	SilenceUsage: true,
}

// promptForInput 交互模式: 逐项提示输入
func promptForInput() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("请输入要下载的URL (例如 example.com): ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("读取输入失败: %w", err)
	}
	targetURL = strings.TrimSpace(line)
	if targetURL == "" {
		return fmt.Errorf("URL不能为空")
	}

	fmt.Print("请输入最大递归深度 (0-5): ")
	line, err = reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("读取输入失败: %w", err)
	}
	d, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || d < 0 || d > 5 {
		return fmt.Errorf("深度必须是0-5之间的整数")
	}
	depth = d

	fmt.Print("请输入起始日期 (YYYYMMDD,直接回车跳过): ")
	line, _ = reader.ReadString('\n')
	fromDate = strings.TrimSpace(line)

	fmt.Print("请输入结束日期 (YYYYMMDD,直接回车跳过): ")
	line, _ = reader.ReadString('\n')
	toDate = strings.TrimSpace(line)

	return nil
}

// runMirror 执行镜像任务: 查询快照 → 逐快照镜像 → 生成报告
func runMirror(ctx context.Context, appConfig *core.Config) error {
	startTime := time.Now()

	outputRoot, err := filepath.Abs(appConfig.Output.BaseDir)
	if err != nil {
		outputRoot = appConfig.Output.BaseDir
	}

	// 输出根目录创建失败是唯一中止整个任务的条件
	if err := os.MkdirAll(outputRoot, 0755); err != nil {
		return fmt.Errorf("创建输出目录失败 [%s]: %w", outputRoot, err)
	}

	utils.Infof("🚀 开始镜像任务")
	utils.Infof("目标URL: %s", targetURL)
	utils.Infof("递归深度: %d", appConfig.Mirror.Depth)
	utils.Infof("输出目录: %s", outputRoot)

	client := wayback.NewClient(wayback.ClientConfig{
		MaxRetries:     appConfig.Mirror.MaxRetries,
		ConnectTimeout: time.Duration(appConfig.Mirror.ConnectTimeout) * time.Second,
		ReadTimeout:    time.Duration(appConfig.Mirror.ReadTimeout) * time.Second,
		UserAgent:      appConfig.HTTP.UserAgent,
		Headers:        appConfig.HTTP.Headers,
	})

	utils.Infof("查询快照: %s", targetURL)
	snapshots, err := client.ListSnapshots(ctx, targetURL, fromDate, toDate)
	if err != nil {
		// 查询失败与无快照同等对待,不中止进程
		utils.Errorf("查询快照失败: %v", err)
		snapshots = nil
	}

	if len(snapshots) == 0 {
		utils.Warn("指定URL和日期范围内未找到快照")
		return nil
	}

	utils.Infof("找到 %d 个快照", len(snapshots))

	m := mirror.New(appConfig.Mirror, outputRoot, client)
	bar := utils.NewProgressBar(len(snapshots), "镜像快照")

	for i, snapshot := range snapshots {
		if ctx.Err() != nil {
			utils.Warn("收到中断信号,停止处理后续快照")
			break
		}

		captureTime := snapshot.Timestamp
		if t, err := snapshot.CaptureTime(); err == nil {
			captureTime = t.Format("2006-01-02 15:04:05")
		}
		utils.Infof("处理快照 [%d/%d]: %s", i+1, len(snapshots), captureTime)

		if path := m.MirrorCapture(ctx, targetURL, snapshot.Timestamp); path != "" {
			utils.Infof("入口页已保存: %s", path)
		} else {
			utils.Warnf("快照处理失败: %s", snapshot.Timestamp)
		}

		_ = bar.Add(1)

		// 快照之间的固定延迟
		if i < len(snapshots)-1 && appConfig.Mirror.CaptureDelaySeconds > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(time.Duration(appConfig.Mirror.CaptureDelaySeconds) * time.Second):
			}
		}
	}
	fmt.Println()

	// 生成报告
	stats := m.Stats()
	stats.SnapshotCount = len(snapshots)
	stats.Duration = time.Since(startTime).Seconds()

	report := &models.MirrorReport{
		RunID:     models.GenerateRunID(),
		TargetURL: targetURL,
		Domain:    utils.HostOf(targetURL),
		StartTime: startTime,
		EndTime:   time.Now(),
		Duration:  stats.Duration,
		Snapshots: snapshots,
		Pages:     m.Pages(),
		Stats:     stats,
		OutputDir: outputRoot,
		Config:    appConfig.Mirror,
	}

	reporter := utils.NewReporter(outputRoot)
	if err := reporter.GenerateReport(report); err != nil {
		utils.Warnf("生成报告失败: %v", err)
	}

	utils.Infof("✅ 镜像任务完成")
	utils.Infof("页面: 成功 %d, 失败 %d, 跳过 %d", stats.PagesSaved, stats.PagesFailed, stats.PagesSkipped)
	utils.Infof("资源: 成功 %d, 失败 %d", stats.AssetsSaved, stats.AssetsFailed)
	utils.Infof("总耗时: %.2f秒", stats.Duration)

	listOutputDir(outputRoot)
	return nil
}

// listOutputDir 打印输出目录的内容树
func listOutputDir(root string) {
	fmt.Println("\n输出目录内容:")
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return nil
		}
		indent := strings.Repeat("    ", strings.Count(rel, string(os.PathSeparator)))
		if info.IsDir() {
			fmt.Printf("%s%s/\n", indent, info.Name())
		} else {
			fmt.Printf("%s%s\n", indent, info.Name())
		}
		return nil
	})
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出(debug级别日志)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace/debug/info/warn/error)")

	// 镜像参数
	rootCmd.Flags().StringVarP(&targetURL, "url", "u", "", "目标URL (例如 example.com,留空进入交互模式)")
	rootCmd.Flags().IntVarP(&depth, "depth", "d", -1, "递归深度 0-5 (默认使用配置文件)")
	rootCmd.Flags().StringVar(&fromDate, "from", "", "起始日期 (YYYYMMDD)")
	rootCmd.Flags().StringVar(&toDate, "to", "", "结束日期 (YYYYMMDD)")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "输出目录")
	rootCmd.Flags().IntVarP(&concurrent, "concurrent", "n", 0, "资源并发下载数")
	rootCmd.Flags().IntVar(&pageDelay, "page-delay", -1, "页面间礼貌延迟(秒)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
