package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// EmbedPrefix 标记内置字体来源，例如 "embed:goregular"。
const EmbedPrefix = "embed:"

// Default 是未指定字体来源时使用的内置字体。
const Default = EmbedPrefix + "goregular"

var builtin = map[string][]byte{
	"goregular":    goregular.TTF,
	"gobold":       gobold.TTF,
	"goitalic":     goitalic.TTF,
	"gobolditalic": gobolditalic.TTF,
	"gomedium":     gomedium.TTF,
	"gomono":       gomono.TTF,
}

// Names 返回全部内置字体名（已排序）。
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load 返回字体文件的字节数据。src 可写为 "embed:goregular"、绝对路径，
// 或相对 baseDir 的路径；baseDir 为空时不允许相对路径。
func Load(src, baseDir string) ([]byte, error) {
	if src == "" {
		src = Default
	}
	if strings.HasPrefix(src, EmbedPrefix) {
		name := strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(src, EmbedPrefix), ".ttf"))
		data, ok := builtin[name]
		if !ok {
			return nil, fmt.Errorf("找不到内置字体 %s（可选: %s）", src, strings.Join(Names(), ", "))
		}
		return data, nil
	}
	path := src
	if !filepath.IsAbs(path) {
		if baseDir == "" {
			return nil, fmt.Errorf("未指定资源目录时不允许直接使用字体路径：%s（请改用 embed:）", src)
		}
		path = filepath.Join(baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", src, err)
	}
	return data, nil
}
