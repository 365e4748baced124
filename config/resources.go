package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/apodwall/dsl"
	"github.com/ByLCY/apodwall/fonts"
	"github.com/ByLCY/apodwall/layout"
)

// ResourceSet 收集 resources 段中声明的字体与颜色。
type ResourceSet struct {
	Fonts  map[string]layout.FontResource
	Colors map[string]layout.Color
}

func collectResources(doc *dsl.Document) (ResourceSet, error) {
	res := ResourceSet{
		Fonts:  map[string]layout.FontResource{},
		Colors: map[string]layout.Color{},
	}

	for _, section := range doc.Sections {
		if section.Resources == nil || section.Resources.Block == nil {
			continue
		}
		for _, stmt := range section.Resources.Block.Statements {
			if stmt.Command == nil {
				continue
			}
			switch stmt.Command.Name {
			case "font":
				font, err := parseFontResource(stmt.Command)
				if err != nil {
					return res, err
				}
				res.Fonts[font.Name] = font
			case "color":
				name, value := parseColorResource(stmt.Command)
				if name == "" || value == "" {
					return res, fmt.Errorf("%s: color 需要名称与取值", stmt.Command.Pos)
				}
				c, err := parseColor(value)
				if err != nil {
					return res, fmt.Errorf("%s: %w", stmt.Command.Pos, err)
				}
				res.Colors[name] = c
			default:
				return res, fmt.Errorf("%s: resources 中未知的声明 %q", stmt.Command.Pos, stmt.Command.Name)
			}
		}
	}

	// 未声明字体时使用内置 Go 字体
	if _, ok := res.Fonts["Title"]; !ok {
		res.Fonts["Title"] = layout.FontResource{Name: "Title", Src: fonts.Default, Size: 24}
	}
	if _, ok := res.Fonts["Body"]; !ok {
		res.Fonts["Body"] = layout.FontResource{Name: "Body", Src: fonts.Default, Size: 16}
	}
	return res, nil
}

func parseFontResource(cmd *dsl.Command) (layout.FontResource, error) {
	if len(cmd.Args) == 0 {
		return layout.FontResource{}, fmt.Errorf("%s: font 需要名称", cmd.Pos)
	}
	font := layout.FontResource{
		Name: cmd.Args[0].Value,
		Src:  fonts.Default,
	}
	if cmd.Block == nil {
		return font, fmt.Errorf("%s: 字体 %s 缺少 size", cmd.Pos, font.Name)
	}
	for _, stmt := range cmd.Block.Statements {
		a := stmt.Assignment
		if a == nil {
			continue
		}
		switch a.Key {
		case "src":
			font.Src = valueToString(a.Value)
		case "size":
			l, err := layout.ParseLength(valueToString(a.Value))
			if err != nil {
				return font, fmt.Errorf("%s: 字体 %s: %w", a.Pos, font.Name, err)
			}
			if l.Unit == layout.UnitPercent {
				return font, fmt.Errorf("%s: 字体 %s 的字号不能使用百分比", a.Pos, font.Name)
			}
			font.Size = l.Float(0)
		default:
			return font, fmt.Errorf("%s: font 中未知的键 %q", a.Pos, a.Key)
		}
	}
	if font.Size <= 0 {
		return font, fmt.Errorf("%s: 字体 %s 的字号 %g 必须为正", cmd.Pos, font.Name, font.Size)
	}
	if font.Src == "" {
		return font, fmt.Errorf("%s: 字体 %s 的 src 为空", cmd.Pos, font.Name)
	}
	return font, nil
}

// parseColorResource 读取 `color Name = #RRGGBB`，等号可省略。
func parseColorResource(cmd *dsl.Command) (string, string) {
	if len(cmd.Args) == 0 {
		return "", ""
	}
	name := cmd.Args[0].Value
	value := ""
	if len(cmd.Args) > 1 {
		value = cmd.Args[len(cmd.Args)-1].Value
	}
	return name, value
}

func parseTarget(section *dsl.TargetSection, res ResourceSet) (Target, error) {
	t := Target{TargetSpec: layout.TargetSpec{Name: section.Name}}
	params := section.Params
	if len(params) < 2 {
		return t, fmt.Errorf("%s: target %s 需要宽度与高度", section.Pos, section.Name)
	}
	var err error
	if t.Canvas.Width, err = parsePixels(params[0].Value); err != nil {
		return t, fmt.Errorf("%s: target %s 宽度: %w", section.Pos, section.Name, err)
	}
	if t.Canvas.Height, err = parsePixels(params[1].Value); err != nil {
		return t, fmt.Errorf("%s: target %s 高度: %w", section.Pos, section.Name, err)
	}
	for key, val := range parseArgs(params[2:]) {
		switch key {
		case "reserve":
			if t.Reserved, err = parsePixels(val); err != nil {
				return t, fmt.Errorf("%s: target %s 保留高度: %w", section.Pos, section.Name, err)
			}
		default:
			return t, fmt.Errorf("%s: target %s 未知参数 %q", section.Pos, section.Name, key)
		}
	}

	if section.Block != nil {
		for _, stmt := range section.Block.Statements {
			a := stmt.Assignment
			if a == nil {
				continue
			}
			switch a.Key {
			case "background":
				if t.Background, err = resolveColor(valueToString(a.Value), res); err != nil {
					return t, fmt.Errorf("%s: %w", a.Pos, err)
				}
			case "reserve":
				if t.Reserved, err = parsePixels(valueToString(a.Value)); err != nil {
					return t, fmt.Errorf("%s: %w", a.Pos, err)
				}
			default:
				return t, fmt.Errorf("%s: target 中未知的键 %q", a.Pos, a.Key)
			}
		}
	}

	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("%s: %w", section.Pos, err)
	}
	return t, nil
}

// parseArgs 将 `key value key value` 形式的参数转为映射。
func parseArgs(args []*dsl.Lexeme) map[string]string {
	result := map[string]string{}
	for cursor := 0; cursor < len(args)-1; cursor += 2 {
		result[args[cursor].Value] = args[cursor+1].Value
	}
	if len(args)%2 == 1 {
		result[args[len(args)-1].Value] = ""
	}
	return result
}

func parseCaption(section *dsl.CaptionSection, res ResourceSet) (Caption, error) {
	white := layout.Color{R: 255, G: 255, B: 255}
	c := Caption{
		Style: layout.CaptionStyle{
			BoxWidth:   layout.Percent(50),
			MarginX:    5,
			MarginY:    5,
			Spacer:     15,
			Opacity:    0.5,
			TitleColor: white,
			BodyColor:  white,
			TitleFont:  res.Fonts["Title"],
			BodyFont:   res.Fonts["Body"],
		},
		TitleTemplate: "${title}",
		BodyTemplate:  "${explanation}",
	}
	if section == nil || section.Block == nil {
		return c, nil
	}

	for _, stmt := range section.Block.Statements {
		if a := stmt.Assignment; a != nil {
			if err := applyCaptionAssignment(&c.Style, a, res); err != nil {
				return c, fmt.Errorf("%s: %w", a.Pos, err)
			}
			continue
		}
		cmd := stmt.Command
		if cmd == nil {
			continue
		}
		font, color, text, err := parseTextCommand(cmd, res)
		if err != nil {
			return c, fmt.Errorf("%s: %w", cmd.Pos, err)
		}
		switch cmd.Name {
		case "title":
			c.Style.TitleFont, c.Style.TitleColor = font, orColor(color, c.Style.TitleColor)
			if text != nil {
				c.TitleTemplate = *text
			}
		case "body":
			c.Style.BodyFont, c.Style.BodyColor = font, orColor(color, c.Style.BodyColor)
			if text != nil {
				c.BodyTemplate = *text
			}
		default:
			return c, fmt.Errorf("%s: caption 中未知的命令 %q", cmd.Pos, cmd.Name)
		}
	}
	return c, nil
}

func applyCaptionAssignment(style *layout.CaptionStyle, a *dsl.Assignment, res ResourceSet) error {
	raw := valueToString(a.Value)
	var err error
	switch a.Key {
	case "width":
		l, perr := layout.ParseLength(raw)
		if perr != nil {
			return perr
		}
		if l.Unit == layout.UnitPT {
			l = layout.Px(float64(l.Pixels(0)))
		}
		style.BoxWidth = l
	case "margin":
		if style.MarginX, err = parsePixels(raw); err == nil {
			style.MarginY = style.MarginX
		}
	case "margin-x":
		style.MarginX, err = parsePixels(raw)
	case "margin-y":
		style.MarginY, err = parsePixels(raw)
	case "spacer":
		style.Spacer, err = parsePixels(raw)
	case "line-spacing":
		style.LineSpacing, err = parsePixels(raw)
	case "opacity":
		style.Opacity, err = parseOpacity(raw)
	case "panel":
		style.Panel, err = resolveColor(raw, res)
	default:
		return fmt.Errorf("caption 中未知的键 %q", a.Key)
	}
	return err
}

// parseTextCommand 解析 `title <Font> [color <Color>] { "模板" }`。
func parseTextCommand(cmd *dsl.Command, res ResourceSet) (layout.FontResource, *layout.Color, *string, error) {
	if len(cmd.Args) == 0 {
		return layout.FontResource{}, nil, nil, fmt.Errorf("%s 需要字体名", cmd.Name)
	}
	font, ok := res.Fonts[cmd.Args[0].Value]
	if !ok {
		return font, nil, nil, fmt.Errorf("未定义的字体 %q", cmd.Args[0].Value)
	}
	var color *layout.Color
	for key, val := range parseArgs(cmd.Args[1:]) {
		switch key {
		case "color":
			c, err := resolveColor(val, res)
			if err != nil {
				return font, nil, nil, err
			}
			color = &c
		case "size":
			l, err := layout.ParseLength(val)
			if err != nil {
				return font, nil, nil, err
			}
			font.Size = l.Float(0)
			if font.Size <= 0 {
				return font, nil, nil, fmt.Errorf("字号 %q 必须为正", val)
			}
		default:
			return font, nil, nil, fmt.Errorf("%s 未知参数 %q", cmd.Name, key)
		}
	}
	var text *string
	if cmd.Block != nil {
		s := extractText(cmd.Block)
		text = &s
	}
	return font, color, text, nil
}

func orColor(c *layout.Color, fallback layout.Color) layout.Color {
	if c == nil {
		return fallback
	}
	return *c
}

func extractText(block *dsl.Block) string {
	var builder strings.Builder
	for _, stmt := range block.Statements {
		if stmt.Text != nil {
			builder.WriteString(string(stmt.Text.Value))
		}
	}
	return builder.String()
}

// parsePixels 解析 px/pt 长度为整像素，拒绝百分比与负值。
func parsePixels(value string) (int, error) {
	l, err := layout.ParseLength(value)
	if err != nil {
		return 0, err
	}
	if l.Unit == layout.UnitPercent {
		return 0, fmt.Errorf("长度 %q 不能使用百分比", value)
	}
	px := l.Pixels(0)
	if px < 0 {
		return 0, fmt.Errorf("长度 %q 不能为负", value)
	}
	return px, nil
}

// parseOpacity 接受 0..1 的小数或百分比。
func parseOpacity(value string) (float64, error) {
	v := strings.TrimSpace(value)
	scale := 1.0
	if strings.HasSuffix(v, "%") {
		v = strings.TrimSuffix(v, "%")
		scale = 100
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("无法解析不透明度 %q: %w", value, err)
	}
	f /= scale
	if f < 0 || f > 1 {
		return 0, fmt.Errorf("不透明度 %q 超出 [0,1]", value)
	}
	return f, nil
}

func resolveColor(value string, res ResourceSet) (layout.Color, error) {
	if c, ok := res.Colors[value]; ok {
		return c, nil
	}
	if strings.HasPrefix(value, "#") {
		return parseColor(value)
	}
	return layout.Color{}, fmt.Errorf("未定义的颜色 %q", value)
}

func parseColor(value string) (layout.Color, error) {
	hex := strings.TrimPrefix(value, "#")
	if len(hex) == 3 {
		hex = strings.Repeat(hex[0:1], 2) + strings.Repeat(hex[1:2], 2) + strings.Repeat(hex[2:3], 2)
	}
	if len(hex) != 6 {
		return layout.Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return layout.Color{}, fmt.Errorf("颜色值 %s 无法解析: %w", value, err)
	}
	return layout.Color{R: int(n >> 16 & 0xff), G: int(n >> 8 & 0xff), B: int(n & 0xff)}, nil
}

func valueToString(val *dsl.Value) string {
	if val == nil {
		return ""
	}
	switch {
	case val.String != nil:
		return string(*val.String)
	case val.Number != nil:
		return *val.Number
	case val.Color != nil:
		return *val.Color
	case val.Expr != nil:
		var builder strings.Builder
		for _, part := range val.Expr.Parts {
			builder.WriteString(part.Value)
		}
		return builder.String()
	default:
		return ""
	}
}
