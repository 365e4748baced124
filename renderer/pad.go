package renderer

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"github.com/ByLCY/apodwall/layout"
)

// Pad 创建目标尺寸的画布：整块（含保留区域）先铺背景色，再把按 Fit 缩放后的源图叠加到偏移处。
// 缩放使用 Lanczos 滤波；源图尺寸与布局记录不一致时报错。
func Pad(result *layout.Result, src image.Image) (*image.RGBA, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if src == nil {
		return nil, fmt.Errorf("源图为空")
	}
	b := src.Bounds()
	if got := (layout.Dimensions{Width: b.Dx(), Height: b.Dy()}); got != result.Source {
		return nil, fmt.Errorf("%w: 源图实际尺寸 %dx%d 与布局记录 %dx%d 不一致",
			layout.ErrInvalidDimensions, got.Width, got.Height, result.Source.Width, result.Source.Height)
	}
	if err := result.Target.Validate(); err != nil {
		return nil, err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, result.Target.Canvas.Width, result.Target.Canvas.Height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(RGBA(result.Style.Background, 1)), image.Point{}, draw.Src)

	fit := result.Fit
	var scaled image.Image = src
	if fit.Scaled.Width != b.Dx() || fit.Scaled.Height != b.Dy() {
		scaled = imaging.Resize(src, fit.Scaled.Width, fit.Scaled.Height, imaging.Lanczos)
	}
	dst := image.Rect(fit.OffsetX, fit.OffsetY, fit.OffsetX+fit.Scaled.Width, fit.OffsetY+fit.Scaled.Height)
	// 透明区域露出背景色，输出始终不透明
	draw.Draw(canvas, dst, scaled, scaled.Bounds().Min, draw.Over)
	return canvas, nil
}

// RGBA 将布局颜色与不透明度转换为预乘 alpha 的 color.RGBA。
func RGBA(c layout.Color, alpha float64) color.RGBA {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	a := alpha * 255
	return color.RGBA{
		R: uint8(float64(clamp8(c.R))*alpha + 0.5),
		G: uint8(float64(clamp8(c.G))*alpha + 0.5),
		B: uint8(float64(clamp8(c.B))*alpha + 0.5),
		A: uint8(a + 0.5),
	}
}

func clamp8(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
