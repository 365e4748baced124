package layout

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDimensions 表示流水线中出现了非正的宽高或非法的尺寸参数。
	ErrInvalidDimensions = errors.New("layout: 尺寸无效")
	// ErrMeasurement 表示排版后端测量失败，或返回了非有限/负数的尺寸。
	ErrMeasurement = errors.New("layout: 文本测量失败")
	// ErrLayoutOverflow 表示字幕面板无法放入目标画布，属于配置错误。
	ErrLayoutOverflow = errors.New("layout: 字幕面板超出画布")

	// ErrBoxTooWide 与 ErrBoxTooTall 区分两种溢出，二者都满足 errors.Is(err, ErrLayoutOverflow)。
	ErrBoxTooWide = fmt.Errorf("%w（面板宽度超过目标宽度）", ErrLayoutOverflow)
	ErrBoxTooTall = fmt.Errorf("%w（面板高度超过有效高度）", ErrLayoutOverflow)
)

func invalidDimensions(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidDimensions, fmt.Sprintf(format, args...))
}

func layoutOverflow(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
