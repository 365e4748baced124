package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ByLCY/apodwall/apod"
	"github.com/ByLCY/apodwall/dsl"
	"github.com/ByLCY/apodwall/layout"
)

//go:embed default.wallpaper
var defaultSource string

// Settings 是配置文件解析后的完整结果。
type Settings struct {
	Name    string                         `json:"name"`
	Version string                         `json:"version"`
	BaseDir string                         `json:"baseDir"` // 相对字体路径的解析目录
	Source  Source                         `json:"source"`
	Fonts   map[string]layout.FontResource `json:"fonts"`
	Colors  map[string]layout.Color        `json:"colors"`
	Targets []Target                       `json:"targets"`
	Caption Caption                        `json:"caption"`
}

// Source 描述天文图页面的地址。
type Source struct {
	Page string `json:"page"` // 当日页面
	Base string `json:"base"` // 归档页面与相对图片链接的前缀
}

// Target 是一个输出画布及其背景色。
type Target struct {
	layout.TargetSpec
	Background layout.Color `json:"background"`
}

// Caption 汇总说明面板样式与标题/正文模板。
type Caption struct {
	Style         layout.CaptionStyle `json:"style"`
	TitleTemplate string              `json:"titleTemplate"`
	BodyTemplate  string              `json:"bodyTemplate"`
}

// StyleFor 返回带有目标背景色的面板样式。
func (s *Settings) StyleFor(t Target) layout.CaptionStyle {
	style := s.Caption.Style
	style.Background = t.Background
	return style
}

// Target 按名称查找目标画布。
func (s *Settings) Target(name string) (Target, bool) {
	for _, t := range s.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return Target{}, false
}

// Default 解析内置的默认配置。
func Default() (*Settings, error) {
	doc, err := dsl.Parse("default.wallpaper", strings.NewReader(defaultSource))
	if err != nil {
		return nil, fmt.Errorf("解析内置配置失败: %w", err)
	}
	return FromDocument(doc, "")
}

// DefaultSource 返回内置配置的原文，便于用户导出后修改。
func DefaultSource() string { return defaultSource }

// Load 读取并解析配置文件，相对字体路径以文件所在目录为基准。
func Load(path string) (*Settings, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开配置文件 %s: %w", path, err)
	}
	defer file.Close()

	doc, err := dsl.Parse(path, file)
	if err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	return FromDocument(doc, filepath.Dir(path))
}

// FromDocument 将语法树转换为 Settings。未知键、未定义的字体或颜色都会报错并带上位置。
func FromDocument(doc *dsl.Document, baseDir string) (*Settings, error) {
	if doc == nil {
		return nil, fmt.Errorf("配置文档为空")
	}
	res, err := collectResources(doc)
	if err != nil {
		return nil, err
	}
	s := &Settings{
		Name:    doc.Name,
		Version: doc.Version,
		BaseDir: baseDir,
		Fonts:   res.Fonts,
		Colors:  res.Colors,
	}

	var caption *dsl.CaptionSection
	for _, section := range doc.Sections {
		switch {
		case section.Source != nil:
			if err := parseSource(section.Source, &s.Source); err != nil {
				return nil, err
			}
		case section.Target != nil:
			t, err := parseTarget(section.Target, res)
			if err != nil {
				return nil, err
			}
			if _, dup := s.Target(t.Name); dup {
				return nil, fmt.Errorf("%s: 目标 %q 重复定义", section.Target.Pos, t.Name)
			}
			s.Targets = append(s.Targets, t)
		case section.Caption != nil:
			if caption != nil {
				return nil, fmt.Errorf("caption 段只能出现一次")
			}
			caption = section.Caption
		}
	}

	if len(s.Targets) == 0 {
		return nil, fmt.Errorf("配置 %s 未定义任何 target", doc.Name)
	}
	s.Caption, err = parseCaption(caption, res)
	if err != nil {
		return nil, err
	}
	if s.Source.Page == "" {
		s.Source.Page = DefaultPageURL
	}
	if s.Source.Base == "" {
		s.Source.Base = DefaultBaseURL
	}
	return s, nil
}

// 未配置 source 时使用的站点地址。
const (
	DefaultPageURL = apod.DefaultPageURL
	DefaultBaseURL = apod.DefaultBaseURL
)

func parseSource(section *dsl.SourceSection, out *Source) error {
	if section.Block == nil {
		return nil
	}
	for _, stmt := range section.Block.Statements {
		a := stmt.Assignment
		if a == nil {
			continue
		}
		switch strings.ToLower(a.Key) {
		case "page":
			out.Page = valueToString(a.Value)
		case "base":
			out.Base = valueToString(a.Value)
		default:
			return fmt.Errorf("%s: source 中未知的键 %q", a.Pos, a.Key)
		}
	}
	return nil
}
