package layout

import "math"

// Fit 计算将源图等比缩放进目标有效区域（不裁剪）所需的尺寸与居中偏移。
// 源图相对更高时左右补边，相对更宽时在有效区域内上下补边，宽高比相同则铺满。
func Fit(src Dimensions, target TargetSpec) (Placement, error) {
	if err := src.Validate(); err != nil {
		return Placement{}, err
	}
	if err := target.Validate(); err != nil {
		return Placement{}, err
	}
	tw := target.Canvas.Width
	eh := target.EffectiveHeight()

	// 交叉相乘比较宽高比，避免浮点相等判断
	lhs := int64(src.Width) * int64(eh)
	rhs := int64(tw) * int64(src.Height)

	switch {
	case lhs < rhs:
		scale := float64(eh) / float64(src.Height)
		w := scaledSide(src.Width, scale)
		return Placement{
			Scaled:  Dimensions{Width: w, Height: eh},
			OffsetX: floorDiv(tw-w, 2),
			Scale:   scale,
		}, nil
	case lhs > rhs:
		scale := float64(tw) / float64(src.Width)
		h := scaledSide(src.Height, scale)
		return Placement{
			Scaled:  Dimensions{Width: tw, Height: h},
			OffsetY: floorDiv(eh-h, 2),
			Scale:   scale,
		}, nil
	default:
		return Placement{
			Scaled: Dimensions{Width: tw, Height: eh},
			Scale:  float64(tw) / float64(src.Width),
		}, nil
	}
}

func scaledSide(side int, scale float64) int {
	v := int(math.Round(float64(side) * scale))
	if v < 1 {
		return 1
	}
	return v
}

// floorDiv 是向下取整的整数除法，负数时与截断除法不同。
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
