package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/ByLCY/apodwall/apod"
	"github.com/ByLCY/apodwall/config"
	"github.com/ByLCY/apodwall/pipeline"
)

func main() {
	configPath := flag.String("config", "", "壁纸配置文件路径（为空时使用内置配置）")
	output := flag.String("out", "output/apod.png", "输出路径，扩展名决定格式（png/jpg/gif/tif/bmp）")
	dates := flag.String("date", "", "逗号分隔的日期 YYYY-MM-DD，为空时取当日")
	imagePath := flag.String("image", "", "离线模式：使用本地图片而不访问网络")
	title := flag.String("title", "", "离线模式的标题")
	explanation := flag.String("explanation", "", "离线模式的说明文字")
	backend := flag.String("backend", "raster", "渲染后端：raster 或 canvas")
	debug := flag.String("debug", "", "布局调试 JSON 输出路径")
	concurrency := flag.Int("concurrency", 4, "同时合成的壁纸数量")
	timeout := flag.Duration("timeout", 2*time.Minute, "整体超时时间")
	printConfig := flag.Bool("print-config", false, "打印内置配置并退出")
	verbose := flag.Bool("v", false, "输出调试日志")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *printConfig {
		fmt.Print(config.DefaultSource())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	err := run(ctx, runArgs{
		configPath:  *configPath,
		output:      *output,
		dates:       *dates,
		imagePath:   *imagePath,
		title:       *title,
		explanation: *explanation,
		backend:     *backend,
		debug:       *debug,
		concurrency: *concurrency,
	}, logger)
	if err != nil {
		logger.Error("生成壁纸失败", "err", err)
		if errors.Is(err, apod.ErrNoImage) {
			logger.Info("当天可能是视频，可用 -date 指定其他日期")
		}
		os.Exit(1)
	}
}

type runArgs struct {
	configPath  string
	output      string
	dates       string
	imagePath   string
	title       string
	explanation string
	backend     string
	debug       string
	concurrency int
}

// run 串联配置加载、抓取、排版与渲染。
func run(ctx context.Context, args runArgs, logger *slog.Logger) error {
	settings, err := loadSettings(args.configPath)
	if err != nil {
		return err
	}
	days, err := parseDates(args.dates)
	if err != nil {
		return err
	}
	if args.imagePath != "" && len(days) > 0 {
		return fmt.Errorf("-image 与 -date 不能同时使用")
	}

	outputs, err := pipeline.Run(ctx, pipeline.Options{
		Settings:    settings,
		Dates:       days,
		ImagePath:   args.imagePath,
		Title:       args.title,
		Explanation: args.explanation,
		Output:      args.output,
		DebugPath:   args.debug,
		Backend:     args.backend,
		Concurrency: args.concurrency,
		Client: apod.NewClient(
			apod.WithPageURL(settings.Source.Page),
			apod.WithBaseURL(settings.Source.Base),
			apod.WithLogger(logger),
			apod.WithConcurrency(args.concurrency),
		),
		Logger: logger,
	})
	if err != nil {
		return err
	}
	for _, out := range outputs {
		fmt.Printf("已生成壁纸：%s\n", out.Path)
	}
	return nil
}

func loadSettings(path string) (*config.Settings, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

func parseDates(raw string) ([]time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []time.Time
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := time.Parse(time.DateOnly, part)
		if err != nil {
			return nil, fmt.Errorf("日期 %q 格式应为 YYYY-MM-DD: %w", part, err)
		}
		out = append(out, d)
	}
	return out, nil
}
