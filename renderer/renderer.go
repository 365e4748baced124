package renderer

import (
	"image"

	"github.com/ByLCY/apodwall/layout"
)

// Renderer 将布局结果与源图合成为最终壁纸。
// 返回的图像尺寸等于目标画布；出错时不返回部分结果。
type Renderer interface {
	Render(result *layout.Result, src image.Image) (image.Image, error)
}

// Backend 同时提供测量与合成能力，流水线每个任务各自构造一个。
type Backend interface {
	Renderer
	layout.Typesetter
}
