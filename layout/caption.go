package layout

// CaptionLayout 是字幕面板的排版结果。
type CaptionLayout struct {
	Box             Box          `json:"box"`
	TitleLineHeight int          `json:"titleLineHeight"`
	BodyLineHeight  int          `json:"bodyLineHeight"`
	TitleHeight     int          `json:"titleHeight"`
	BodyHeight      int          `json:"bodyHeight"`
	Title           []PlacedLine `json:"title"`
	Body            []PlacedLine `json:"body"`
}

// ResolveBoxWidth 将配置的面板宽度换算为像素，并在绘制前拒绝超出目标宽度的配置。
func ResolveBoxWidth(target TargetSpec, style CaptionStyle) (int, error) {
	w := style.BoxWidth.Pixels(target.Canvas.Width)
	if w <= 0 {
		return 0, invalidDimensions("字幕面板宽度 %s 解析为 %dpx，必须为正", style.BoxWidth, w)
	}
	if w > target.Canvas.Width {
		return 0, layoutOverflow(ErrBoxTooWide, "面板 %dpx，目标 %q 宽 %dpx", w, target.Name, target.Canvas.Width)
	}
	if 2*style.MarginX >= w {
		return 0, invalidDimensions("水平边距 %dpx 使面板 %dpx 内没有文本空间", style.MarginX, w)
	}
	return w, nil
}

// TextWidth 返回面板内可用于折行的宽度。
func TextWidth(boxWidth int, style CaptionStyle) int { return boxWidth - 2*style.MarginX }

// Caption 根据已折好的标题行与正文行计算面板尺寸、位置与每一行的绘制坐标。
// 面板高度完全由内容推导，底边与有效区域底部齐平，与图片补边无关。
func Caption(title, body []TextLine, target TargetSpec, style CaptionStyle) (CaptionLayout, error) {
	if err := target.Validate(); err != nil {
		return CaptionLayout{}, err
	}
	if style.MarginX < 0 || style.MarginY < 0 || style.Spacer < 0 || style.LineSpacing < 0 {
		return CaptionLayout{}, invalidDimensions("边距 %d/%d、间隔 %d 与行距 %d 不能为负",
			style.MarginX, style.MarginY, style.Spacer, style.LineSpacing)
	}
	boxWidth, err := ResolveBoxWidth(target, style)
	if err != nil {
		return CaptionLayout{}, err
	}

	titleLH, titleH := blockMetrics(title, style.LineSpacing)
	bodyLH, bodyH := blockMetrics(body, style.LineSpacing)
	boxHeight := 2*style.MarginY + titleH + style.Spacer + bodyH

	effective := target.EffectiveHeight()
	if boxHeight > effective {
		return CaptionLayout{}, layoutOverflow(ErrBoxTooTall, "面板 %dpx，目标 %q 有效高度 %dpx", boxHeight, target.Name, effective)
	}

	box := Box{
		X:    floorDiv(target.Canvas.Width-boxWidth, 2),
		Y:    effective - boxHeight,
		Size: Dimensions{Width: boxWidth, Height: boxHeight},
	}

	out := CaptionLayout{
		Box:             box,
		TitleLineHeight: titleLH,
		BodyLineHeight:  bodyLH,
		TitleHeight:     titleH,
		BodyHeight:      bodyH,
		Title:           make([]PlacedLine, 0, len(title)),
		Body:            make([]PlacedLine, 0, len(body)),
	}

	cursorY := box.Y + style.MarginY
	for _, line := range title {
		// 标题在整个目标宽度内居中，而不仅是在面板内
		out.Title = append(out.Title, PlacedLine{
			TextLine: line,
			X:        floorDiv(target.Canvas.Width-line.Width, 2),
			Y:        cursorY,
			Align:    "center",
		})
		cursorY += titleLH + style.LineSpacing
	}
	if len(title) > 0 {
		cursorY -= style.LineSpacing
	}
	cursorY += style.Spacer

	bodyX := box.X + style.MarginX
	for _, line := range body {
		out.Body = append(out.Body, PlacedLine{
			TextLine: line,
			X:        bodyX,
			Y:        cursorY,
			Align:    "left",
		})
		cursorY += bodyLH + style.LineSpacing
	}
	return out, nil
}

// blockMetrics 返回块内统一行高（最大行高）与块总高度。
func blockMetrics(lines []TextLine, spacing int) (lineHeight, height int) {
	if len(lines) == 0 {
		return 0, 0
	}
	for _, ln := range lines {
		if ln.Height > lineHeight {
			lineHeight = ln.Height
		}
	}
	n := len(lines)
	return lineHeight, lineHeight*n + spacing*(n-1)
}
