package layout

import "fmt"

// Build 串联等比适配、折行与字幕排版，生成渲染器可以直接使用的结果。
// 配置错误（面板宽度超出画布等）在任何测量之前返回。
func Build(in Input, opts BuildOptions) (*Result, error) {
	if opts.Typesetter == nil {
		return nil, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	if err := in.Target.Validate(); err != nil {
		return nil, err
	}
	boxWidth, err := ResolveBoxWidth(in.Target, in.Style)
	if err != nil {
		return nil, err
	}
	if in.Style.Opacity < 0 || in.Style.Opacity > 1 {
		return nil, fmt.Errorf("layout: 面板不透明度 %g 应位于 [0,1]", in.Style.Opacity)
	}

	fit, err := Fit(in.Source, in.Target)
	if err != nil {
		return nil, fmt.Errorf("适配源图失败: %w", err)
	}

	textWidth := TextWidth(boxWidth, in.Style)
	titleLines, err := Wrap(in.Title, textWidth, in.Style.TitleFont, opts.Typesetter)
	if err != nil {
		return nil, fmt.Errorf("标题折行失败: %w", err)
	}
	bodyLines, err := Wrap(in.Explanation, textWidth, in.Style.BodyFont, opts.Typesetter)
	if err != nil {
		return nil, fmt.Errorf("正文折行失败: %w", err)
	}

	caption, err := Caption(titleLines, bodyLines, in.Target, in.Style)
	if err != nil {
		return nil, err
	}

	return &Result{
		Target: in.Target,
		Source: in.Source,
		Fit:    fit,
		Box:    caption.Box,
		TitleBlock: LineBlock{
			Font:       in.Style.TitleFont,
			Color:      in.Style.TitleColor,
			Lines:      titleLines,
			LineHeight: caption.TitleLineHeight,
			Height:     caption.TitleHeight,
		},
		BodyBlock: LineBlock{
			Font:       in.Style.BodyFont,
			Color:      in.Style.BodyColor,
			Lines:      bodyLines,
			LineHeight: caption.BodyLineHeight,
			Height:     caption.BodyHeight,
		},
		Title: caption.Title,
		Body:  caption.Body,
		Style: in.Style,
	}, nil
}
