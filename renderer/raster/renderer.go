package raster

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"sync"

	"github.com/patrickmn/go-cache"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ByLCY/apodwall/fonts"
	"github.com/ByLCY/apodwall/layout"
	"github.com/ByLCY/apodwall/renderer"
)

// Renderer 基于 golang.org/x/image 的 opentype 字体面测量并就地绘制文本。
// 字体面不是并发安全的，所有访问都经过 mu；不同任务应各自创建 Renderer。
type Renderer struct {
	baseDir string
	hinting font.Hinting

	mu     sync.Mutex
	parsed map[string]*opentype.Font // by src
	faces  map[string]font.Face      // by src|size

	// 折行会反复测量同一前缀，按 字体|字号|文本 记忆整串测量结果
	measured *cache.Cache
}

var _ renderer.Backend = (*Renderer)(nil)

// Options configures the raster renderer.
type Options struct {
	BaseDir string
	Hinting font.Hinting
}

type metric struct {
	width, height float64
}

// NewRenderer creates a raster renderer resolving relative font paths against baseDir.
func NewRenderer(baseDir string) *Renderer {
	return NewRendererWithOptions(Options{BaseDir: baseDir, Hinting: font.HintingFull})
}

// NewRendererWithOptions creates a raster renderer with explicit options.
func NewRendererWithOptions(opts Options) *Renderer {
	return &Renderer{
		baseDir:  opts.BaseDir,
		hinting:  opts.Hinting,
		parsed:   map[string]*opentype.Font{},
		faces:    map[string]font.Face{},
		measured: cache.New(cache.NoExpiration, 0),
	}
}

// Measure 实现 layout.Typesetter：宽度为整串前进宽度（含字距），高度为上升部加下降部。
func (r *Renderer) Measure(text string, f layout.FontResource) (float64, float64, error) {
	key := measureKey(f, text)
	if v, ok := r.measured.Get(key); ok {
		m := v.(metric)
		return m.width, m.height, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	face, err := r.faceLocked(f)
	if err != nil {
		return 0, 0, err
	}
	adv := font.MeasureString(face, text)
	m := face.Metrics()
	out := metric{
		width:  float64(adv) / 64,
		height: float64((m.Ascent + m.Descent).Ceil()),
	}
	r.measured.Set(key, out, cache.NoExpiration)
	return out.width, out.height, nil
}

// Render 按顺序绘制：背景与缩放源图、半透明面板、标题行、正文行。
func (r *Renderer) Render(result *layout.Result, src image.Image) (image.Image, error) {
	canvas, err := renderer.Pad(result, src)
	if err != nil {
		return nil, err
	}
	BlendPanel(canvas, result.Box, result.Style.Panel, result.Style.Opacity)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.drawLinesLocked(canvas, result.Title, result.TitleBlock); err != nil {
		return nil, fmt.Errorf("绘制标题失败: %w", err)
	}
	if err := r.drawLinesLocked(canvas, result.Body, result.BodyBlock); err != nil {
		return nil, fmt.Errorf("绘制正文失败: %w", err)
	}
	return canvas, nil
}

// BlendPanel 以给定不透明度把面板颜色叠加到 box 区域。
func BlendPanel(dst draw.Image, box layout.Box, panel layout.Color, opacity float64) {
	if opacity <= 0 || box.Size.Width <= 0 || box.Size.Height <= 0 {
		return
	}
	rect := image.Rect(box.X, box.Y, box.X+box.Size.Width, box.Y+box.Size.Height)
	mask := image.NewUniform(color.Alpha{A: renderer.RGBA(panel, opacity).A})
	draw.DrawMask(dst, rect, image.NewUniform(renderer.RGBA(panel, 1)), image.Point{}, mask, image.Point{}, draw.Over)
}

func (r *Renderer) drawLinesLocked(dst draw.Image, lines []layout.PlacedLine, block layout.LineBlock) error {
	if len(lines) == 0 {
		return nil
	}
	face, err := r.faceLocked(block.Font)
	if err != nil {
		return err
	}
	ascent := face.Metrics().Ascent
	ink := image.NewUniform(renderer.RGBA(block.Color, 1))
	for _, line := range lines {
		d := &font.Drawer{
			Dst:  dst,
			Src:  ink,
			Face: face,
			// 行顶部加上升部即为基线
			Dot: fixed.Point26_6{X: fixed.I(line.X), Y: fixed.I(line.Y) + ascent},
		}
		d.DrawString(line.Content)
	}
	return nil
}

func (r *Renderer) faceLocked(f layout.FontResource) (font.Face, error) {
	if f.Size <= 0 {
		return nil, fmt.Errorf("字体 %s 的字号 %g 必须为正", f.Name, f.Size)
	}
	key := f.Src + "|" + strconv.FormatFloat(f.Size, 'f', -1, 64)
	if face, ok := r.faces[key]; ok {
		return face, nil
	}
	parsed, ok := r.parsed[f.Src]
	if !ok {
		data, err := fonts.Load(f.Src, r.baseDir)
		if err != nil {
			return nil, err
		}
		parsed, err = opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("解析字体 %s 失败: %w", f.Src, err)
		}
		r.parsed[f.Src] = parsed
	}
	// DPI 72 时 Size 即像素字号
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    f.Size,
		DPI:     72,
		Hinting: r.hinting,
	})
	if err != nil {
		return nil, fmt.Errorf("创建字体面 %s(%gpx) 失败: %w", f.Src, f.Size, err)
	}
	r.faces[key] = face
	return face, nil
}

func measureKey(f layout.FontResource, text string) string {
	return f.Src + "|" + strconv.FormatFloat(f.Size, 'f', -1, 64) + "|" + text
}
