package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/ByLCY/apodwall/apod"
	"github.com/ByLCY/apodwall/binding"
	"github.com/ByLCY/apodwall/config"
	"github.com/ByLCY/apodwall/layout"
	"github.com/ByLCY/apodwall/renderer"
	canvasrenderer "github.com/ByLCY/apodwall/renderer/canvas"
	"github.com/ByLCY/apodwall/renderer/raster"
)

// BackendFactory 为每个任务创建独立的测量与渲染后端。
type BackendFactory func(baseDir string) (renderer.Backend, error)

// Options 描述一次运行。
type Options struct {
	Settings *config.Settings
	Dates    []time.Time // 为空时抓取当日页面

	// 离线模式：给定本地图片时不访问网络
	ImagePath   string
	Title       string
	Explanation string

	Output      string // 输出路径，扩展名决定编码格式
	DebugPath   string // 非空时写出布局 JSON
	Backend     string // raster 或 canvas
	Concurrency int

	Client     *apod.Client   // 为空时按 Settings.Source 创建
	NewBackend BackendFactory // 为空时按 Backend 选择
	Logger     *slog.Logger
}

// Output 是一张已写出的壁纸。
type Output struct {
	Path   string
	Target string
	Entry  *apod.Entry
	Result *layout.Result
}

type source struct {
	entry *apod.Entry
	img   image.Image
}

type job struct {
	src    source
	target config.Target
	path   string
}

type composed struct {
	img    image.Image
	result *layout.Result
}

// NewBackend 按名称创建后端：raster（默认）或 canvas。
func NewBackend(name, baseDir string) (renderer.Backend, error) {
	switch strings.ToLower(name) {
	case "", "raster":
		return raster.NewRenderer(baseDir), nil
	case "canvas":
		return canvasrenderer.NewRenderer(baseDir), nil
	default:
		return nil, fmt.Errorf("未知的渲染后端 %q（可选 raster、canvas）", name)
	}
}

// Run 抓取条目、按 (条目 × 目标) 并发排版与合成，全部成功后才写出文件。
func Run(ctx context.Context, opts Options) ([]Output, error) {
	if opts.Settings == nil {
		return nil, errors.New("pipeline: 缺少配置")
	}
	if opts.Output == "" {
		return nil, errors.New("pipeline: 缺少输出路径")
	}
	if _, err := imaging.FormatFromFilename(opts.Output); err != nil {
		return nil, fmt.Errorf("输出格式不受支持 %s: %w", opts.Output, err)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	factory := opts.NewBackend
	if factory == nil {
		name := opts.Backend
		if _, err := NewBackend(name, ""); err != nil {
			return nil, err
		}
		factory = func(baseDir string) (renderer.Backend, error) { return NewBackend(name, baseDir) }
	}

	sources, err := loadSources(ctx, opts, log)
	if err != nil {
		return nil, err
	}

	targets := opts.Settings.Targets
	multi := len(sources)*len(targets) > 1
	jobs := make([]job, 0, len(sources)*len(targets))
	for _, src := range sources {
		for _, t := range targets {
			jobs = append(jobs, job{src: src, target: t, path: OutputPath(opts.Output, src.entry, t.Name, multi)})
		}
	}

	out := make([]composed, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := compose(j, opts.Settings, factory)
			if err != nil {
				return fmt.Errorf("合成 %s 失败: %w", j.path, err)
			}
			log.Debug("wallpaper composed", "target", j.target.Name, "title", j.src.entry.Title,
				"titleLines", len(c.result.Title), "bodyLines", len(c.result.Body), "box", c.result.Box)
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]*layout.Result, len(out))
	for i := range out {
		results[i] = out[i].result
	}
	if opts.DebugPath != "" {
		if err := writeDebug(results, opts.DebugPath); err != nil {
			return nil, err
		}
	}

	outputs := make([]Output, 0, len(jobs))
	for i, j := range jobs {
		if err := save(out[i].img, j.path); err != nil {
			return outputs, err
		}
		log.Info("wallpaper written", "path", j.path, "target", j.target.Name, "date", j.src.entry.Vars()["date"])
		outputs = append(outputs, Output{Path: j.path, Target: j.target.Name, Entry: j.src.entry, Result: out[i].result})
	}
	return outputs, nil
}

func compose(j job, s *config.Settings, factory BackendFactory) (composed, error) {
	backend, err := factory(s.BaseDir)
	if err != nil {
		return composed{}, err
	}
	vars := j.src.entry.Vars()
	b := j.src.img.Bounds()
	result, err := layout.Build(layout.Input{
		Target:      j.target.TargetSpec,
		Source:      layout.Dimensions{Width: b.Dx(), Height: b.Dy()},
		Title:       binding.Interpolate(s.Caption.TitleTemplate, vars),
		Explanation: binding.Interpolate(s.Caption.BodyTemplate, vars),
		Style:       s.StyleFor(j.target),
	}, layout.BuildOptions{Typesetter: backend})
	if err != nil {
		return composed{}, err
	}
	img, err := backend.Render(result, j.src.img)
	if err != nil {
		return composed{}, err
	}
	return composed{img: img, result: result}, nil
}

func loadSources(ctx context.Context, opts Options, log *slog.Logger) ([]source, error) {
	if opts.ImagePath != "" {
		img, err := imaging.Open(opts.ImagePath, imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("读取本地图片 %s 失败: %w", opts.ImagePath, err)
		}
		entry := &apod.Entry{Title: opts.Title, Explanation: opts.Explanation, ImageURL: opts.ImagePath}
		return []source{{entry: entry, img: img}}, nil
	}

	client := opts.Client
	if client == nil {
		client = apod.NewClient(
			apod.WithPageURL(opts.Settings.Source.Page),
			apod.WithBaseURL(opts.Settings.Source.Base),
			apod.WithLogger(log),
		)
	}
	dates := opts.Dates
	if len(dates) == 0 {
		dates = []time.Time{{}}
	}
	entries, err := client.FetchAll(ctx, dates)
	if err != nil {
		return nil, err
	}

	sources := make([]source, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	if client.Concurrency > 0 {
		g.SetLimit(client.Concurrency)
	}
	for i, entry := range entries {
		g.Go(func() error {
			img, err := client.FetchImage(gctx, entry.ImageURL)
			if err != nil {
				return err
			}
			sources[i] = source{entry: entry, img: img}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sources, nil
}

// OutputPath 在产生多张壁纸时为文件名追加 -<日期>-<目标> 后缀。
func OutputPath(base string, entry *apod.Entry, target string, multi bool) string {
	if !multi {
		return base
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if entry != nil && !entry.Date.IsZero() {
		stem += "-" + entry.Date.Format(time.DateOnly)
	}
	return stem + "-" + target + ext
}

func save(img image.Image, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("写入壁纸 %s 失败: %w", path, err)
	}
	return nil
}

func writeDebug(results []*layout.Result, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(results, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
