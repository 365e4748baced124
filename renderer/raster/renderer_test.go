package raster

import (
	"image"
	"image/color"
	"testing"

	"github.com/ByLCY/apodwall/layout"
)

var (
	titleFont = layout.FontResource{Name: "Title", Src: "embed:goregular", Size: 24}
	bodyFont  = layout.FontResource{Name: "Body", Src: "embed:goregular", Size: 16}
)

func TestMeasureUsesWholeStringAdvance(t *testing.T) {
	r := NewRenderer("")
	w1, h1, err := r.Measure("Hello", bodyFont)
	if err != nil {
		t.Fatalf("Measure 出错: %v", err)
	}
	if w1 <= 0 || h1 <= 0 {
		t.Fatalf("测量结果应为正: %gx%g", w1, h1)
	}
	w2, h2, err := r.Measure("Hello world", bodyFont)
	if err != nil {
		t.Fatalf("Measure 出错: %v", err)
	}
	if w2 <= w1 || h2 != h1 {
		t.Fatalf("更长字符串应更宽且行高不变: %g/%g %g/%g", w1, w2, h1, h2)
	}
	// 再次测量命中缓存，结果必须一致
	again, hAgain, err := r.Measure("Hello world", bodyFont)
	if err != nil || again != w2 || hAgain != h2 {
		t.Fatalf("缓存结果不一致: %g %g %v", again, hAgain, err)
	}
	empty, _, err := r.Measure("", bodyFont)
	if err != nil || empty != 0 {
		t.Fatalf("空字符串宽度应为 0: %g %v", empty, err)
	}
	big, bh, err := r.Measure("Hello", titleFont)
	if err != nil || big <= w1 || bh <= h1 {
		t.Fatalf("大字号应更宽更高: %g %g %v", big, bh, err)
	}
}

func TestMeasureRejectsBadFonts(t *testing.T) {
	r := NewRenderer("")
	if _, _, err := r.Measure("x", layout.FontResource{Src: "embed:nope", Size: 12}); err == nil {
		t.Fatalf("未知字体应报错")
	}
	if _, _, err := r.Measure("x", layout.FontResource{Src: "embed:goregular", Size: 0}); err == nil {
		t.Fatalf("字号为 0 应报错")
	}
}

func TestWrapWithOpentypeStaysWithinWidth(t *testing.T) {
	r := NewRenderer("")
	text := "The Andromeda Galaxy is the nearest large spiral galaxy to our Milky Way and can be seen with the unaided eye"
	lines, err := layout.Wrap(text, 180, bodyFont, r)
	if err != nil {
		t.Fatalf("Wrap 出错: %v", err)
	}
	if len(lines) < 2 {
		t.Fatalf("期望折成多行，实际 %d", len(lines))
	}
	for _, ln := range lines {
		if ln.Width > 180 {
			t.Fatalf("行 %q 宽度 %d 超出限制", ln.Content, ln.Width)
		}
	}
}

func whiteImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

func buildResult(t *testing.T, r *Renderer) *layout.Result {
	t.Helper()
	white := layout.Color{R: 255, G: 255, B: 255}
	res, err := layout.Build(layout.Input{
		Target:      layout.TargetSpec{Name: "small", Canvas: layout.Dimensions{Width: 400, Height: 300}},
		Source:      layout.Dimensions{Width: 400, Height: 300},
		Title:       "Colliding Galaxies",
		Explanation: "Just a few hundred million years ago this spiral was minding its own business.",
		Style: layout.CaptionStyle{
			BoxWidth:   layout.Percent(50),
			MarginX:    5,
			MarginY:    5,
			Spacer:     10,
			Opacity:    0.5,
			TitleColor: white,
			BodyColor:  white,
			TitleFont:  titleFont,
			BodyFont:   bodyFont,
		},
	}, layout.BuildOptions{Typesetter: r})
	if err != nil {
		t.Fatalf("Build 出错: %v", err)
	}
	return res
}

func TestRenderComposesPanelAndText(t *testing.T) {
	r := NewRenderer("")
	res := buildResult(t, r)
	img, err := r.Render(res, whiteImage(400, 300))
	if err != nil {
		t.Fatalf("Render 出错: %v", err)
	}
	out := img.(*image.RGBA)
	if out.Bounds() != image.Rect(0, 0, 400, 300) {
		t.Fatalf("输出尺寸错误: %v", out.Bounds())
	}

	box := res.Box
	// 面板右下角只覆盖了边距，应为白色压暗一半
	corner := out.RGBAAt(box.X+box.Size.Width-2, box.Y+box.Size.Height-2)
	if corner.R < 110 || corner.R > 145 {
		t.Fatalf("面板像素应约为 127，实际 %v", corner)
	}
	if got := out.RGBAAt(2, 2); got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Fatalf("面板外像素应保持白色，实际 %v", got)
	}

	title := res.Title[0]
	bright := 0
	for y := title.Y; y < title.Y+res.TitleBlock.LineHeight; y++ {
		for x := title.X; x < title.X+title.Width; x++ {
			if out.RGBAAt(x, y).R > 200 {
				bright++
			}
		}
	}
	if bright == 0 {
		t.Fatalf("标题区域内没有绘制任何白色字形")
	}
}

func TestRenderRejectsMismatchedSource(t *testing.T) {
	r := NewRenderer("")
	res := buildResult(t, r)
	if _, err := r.Render(res, whiteImage(10, 10)); err == nil {
		t.Fatalf("源图尺寸不一致时应报错")
	}
}

func TestBlendPanelZeroOpacityIsNoop(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range dst.Pix {
		dst.Pix[i] = 0xff
	}
	BlendPanel(dst, layout.Box{Size: layout.Dimensions{Width: 4, Height: 4}}, layout.Color{}, 0)
	if dst.RGBAAt(1, 1).R != 0xff {
		t.Fatalf("不透明度为 0 时不应改变像素")
	}
	BlendPanel(dst, layout.Box{Size: layout.Dimensions{Width: 2, Height: 2}}, layout.Color{}, 1)
	if dst.RGBAAt(1, 1).R != 0 || dst.RGBAAt(3, 3).R != 0xff {
		t.Fatalf("完全不透明面板只应覆盖 box 区域")
	}
}

func TestRenderPlacesTextInsideLineRows(t *testing.T) {
	r := NewRenderer("")
	res := buildResult(t, r)
	src := image.NewNRGBA(image.Rect(0, 0, 400, 300))
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 0xff
	}
	img, err := r.Render(res, src)
	if err != nil {
		t.Fatalf("Render 出错: %v", err)
	}
	out := img.(*image.RGBA)

	inRows := func(y int) bool {
		for _, ln := range res.Title {
			if y >= ln.Y-1 && y <= ln.Y+res.TitleBlock.LineHeight {
				return true
			}
		}
		for _, ln := range res.Body {
			if y >= ln.Y-1 && y <= ln.Y+res.BodyBlock.LineHeight {
				return true
			}
		}
		return false
	}
	box := res.Box
	bright := 0
	for y := 0; y < 300; y++ {
		for x := 0; x < 400; x++ {
			if out.RGBAAt(x, y).R <= 128 {
				continue
			}
			bright++
			if x < box.X-1 || x > box.X+box.Size.Width || y < box.Y || y >= box.Y+box.Size.Height {
				t.Fatalf("亮像素 (%d,%d) 落在面板 %+v 之外", x, y, box)
			}
			if !inRows(y) {
				t.Fatalf("亮像素 (%d,%d) 不在任何文本行的范围内", x, y)
			}
		}
	}
	if bright == 0 {
		t.Fatalf("没有绘制任何文本")
	}
}
