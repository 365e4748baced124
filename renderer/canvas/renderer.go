package canvasrenderer

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"sync"

	"github.com/patrickmn/go-cache"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"golang.org/x/image/draw"

	"github.com/ByLCY/apodwall/fonts"
	"github.com/ByLCY/apodwall/layout"
	"github.com/ByLCY/apodwall/renderer"
)

// Renderer draws the caption panel and text via github.com/tdewolff/canvas.
// 画布单位约定为 1mm = 1px，以 DPMM(1) 光栅化后叠加到补边后的源图上。
type Renderer struct {
	baseDir string

	// injected resources
	fontBlobs map[string][]byte // by src

	fontMu       sync.Mutex
	fontFamilies map[string]*canvas.FontFamily

	// 折行逐词测量，按 字体|字号|颜色 复用字体面
	faces *cache.Cache
}

var _ renderer.Backend = (*Renderer)(nil)

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	Fonts   map[string][]byte // 预先注入的字体数据，键为 FontResource.Src
}

// NewRenderer creates a canvas-based renderer rooted at baseDir for resolving font files.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with injected font data and optional baseDir.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:      opts.BaseDir,
		fontBlobs:    map[string][]byte{},
		fontFamilies: map[string]*canvas.FontFamily{},
		faces:        cache.New(cache.NoExpiration, 0),
	}
	for src, data := range opts.Fonts {
		if src == "" || len(data) == 0 {
			continue
		}
		r.fontBlobs[src] = data
	}
	return r
}

// Measure 实现 layout.Typesetter。字号为 px，与字体系统交互时在边界做 px(=mm)↔pt 换算。
func (r *Renderer) Measure(text string, font layout.FontResource) (float64, float64, error) {
	face, err := r.fontFace(font, layout.Color{R: 255, G: 255, B: 255})
	if err != nil {
		return 0, 0, err
	}
	m := face.Metrics()
	return face.TextWidth(text), m.Ascent + math.Abs(m.Descent), nil
}

// Render 将面板与文本绘制为矢量，光栅化后以 Over 叠加到背景画布。
func (r *Renderer) Render(result *layout.Result, src image.Image) (image.Image, error) {
	base, err := renderer.Pad(result, src)
	if err != nil {
		return nil, err
	}

	width := float64(result.Target.Canvas.Width)
	height := float64(result.Target.Canvas.Height)
	c := canvas.New(width, height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

	r.drawPanel(ctx, result.Box, result.Style)
	if err := r.drawLines(ctx, result.Title, result.TitleBlock); err != nil {
		return nil, fmt.Errorf("绘制标题失败: %w", err)
	}
	if err := r.drawLines(ctx, result.Body, result.BodyBlock); err != nil {
		return nil, fmt.Errorf("绘制正文失败: %w", err)
	}

	overlay := rasterizer.Draw(c, canvas.DPMM(1.0), canvas.LinearColorSpace{})
	draw.Draw(base, base.Bounds(), overlay, overlay.Bounds().Min, draw.Over)
	return base, nil
}

// drawPanel 绘制半透明面板（无描边）。
func (r *Renderer) drawPanel(ctx *canvas.Context, box layout.Box, style layout.CaptionStyle) {
	if style.Opacity <= 0 || box.Size.Width <= 0 || box.Size.Height <= 0 {
		return
	}
	ctx.SetFillColor(renderer.RGBA(style.Panel, style.Opacity))
	ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
	ctx.DrawPath(float64(box.X), float64(box.Y), canvas.Rectangle(float64(box.Size.Width), float64(box.Size.Height)))
}

func (r *Renderer) drawLines(ctx *canvas.Context, lines []layout.PlacedLine, block layout.LineBlock) error {
	if len(lines) == 0 {
		return nil
	}
	face, err := r.fontFace(block.Font, block.Color)
	if err != nil {
		return err
	}
	// 基线位置：以行顶部加上字体上升部
	ascent := face.Metrics().Ascent
	for _, line := range lines {
		textLine := canvas.NewTextLine(face, line.Content, canvas.Left)
		ctx.DrawText(float64(line.X), float64(line.Y)+ascent, textLine)
	}
	return nil
}

func (r *Renderer) fontFace(font layout.FontResource, col layout.Color) (*canvas.FontFace, error) {
	if font.Size <= 0 {
		return nil, fmt.Errorf("字体 %s 的字号 %g 必须为正", font.Name, font.Size)
	}
	key := faceKey(font, col)
	if v, ok := r.faces.Get(key); ok {
		return v.(*canvas.FontFace), nil
	}
	family, err := r.ensureFontFamily(font)
	if err != nil {
		return nil, err
	}
	face := family.Face(toPt(font.Size), colorFromLayout(col), canvas.FontRegular, canvas.FontNormal)
	r.faces.Set(key, face, cache.NoExpiration)
	return face, nil
}

func faceKey(font layout.FontResource, col layout.Color) string {
	return fmt.Sprintf("%s|%s|%d,%d,%d", font.Src, strconv.FormatFloat(font.Size, 'f', -1, 64), col.R, col.G, col.B)
}

func (r *Renderer) ensureFontFamily(font layout.FontResource) (*canvas.FontFamily, error) {
	key := font.Src
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if family, ok := r.fontFamilies[key]; ok {
		return family, nil
	}

	familyName := font.Name
	if familyName == "" {
		familyName = "Body"
	}
	family := canvas.NewFontFamily(familyName)
	data, err := r.loadFontBytes(font)
	if err != nil {
		return nil, err
	}
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("加载字体 %s 失败: %w", font.Src, err)
	}
	r.fontFamilies[key] = family
	return family, nil
}

func (r *Renderer) loadFontBytes(font layout.FontResource) ([]byte, error) {
	if blob, ok := r.fontBlobs[font.Src]; ok {
		return blob, nil
	}
	return fonts.Load(font.Src, r.baseDir)
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// toPt 将像素字号（画布中 1px 记为 1mm）转换为点(pt)。
func toPt(px float64) float64 { return px * layout.MmToPt }
