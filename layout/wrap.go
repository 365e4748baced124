package layout

import (
	"fmt"
	"math"
	"strings"
)

// Wrap 使用贪心算法将文本按像素宽度折行。
// 每个候选行（当前行 + " " + 下一个词）都整体测量一次，不做词宽累加：
// 比例字体的字距与空格宽度会让累加结果与整串测量不一致。
// 单个词本身超宽时独占一行，不在词内拆分。
func Wrap(text string, maxWidth int, font FontResource, ts Typesetter) ([]TextLine, error) {
	if ts == nil {
		return nil, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	if maxWidth <= 0 {
		return nil, invalidDimensions("折行宽度 %d 必须为正", maxWidth)
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []TextLine{}, nil
	}

	lines := make([]TextLine, 0, 4)
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		w, _, err := measure(ts, candidate, font)
		if err != nil {
			return nil, err
		}
		if w <= maxWidth {
			current = candidate
			continue
		}
		line, err := measureLine(ts, current, font)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
		current = word
	}
	line, err := measureLine(ts, current, font)
	if err != nil {
		return nil, err
	}
	return append(lines, line), nil
}

func measureLine(ts Typesetter, content string, font FontResource) (TextLine, error) {
	w, h, err := measure(ts, content, font)
	if err != nil {
		return TextLine{}, err
	}
	return TextLine{Content: content, Width: w, Height: h}, nil
}

// measure 调用后端并把结果向上取整为像素，拒绝非有限或负数尺寸。
func measure(ts Typesetter, text string, font FontResource) (int, int, error) {
	w, h, err := ts.Measure(text, font)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: 字体 %s(%gpx) 测量 %q: %w", ErrMeasurement, font.Name, font.Size, text, err)
	}
	if !finiteNonNegative(w) || !finiteNonNegative(h) {
		return 0, 0, fmt.Errorf("%w: 字体 %s(%gpx) 测量 %q 得到非法尺寸 %gx%g", ErrMeasurement, font.Name, font.Size, text, w, h)
	}
	return int(math.Ceil(w)), int(math.Ceil(h)), nil
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
