package layout

// BuildOptions 配置布局阶段所需的依赖，例如排版后端。
type BuildOptions struct {
	Typesetter Typesetter
}

// Typesetter 报告字符串在指定字体下渲染后的像素宽高。
// 布局只依赖这一能力，任何字体后端实现它即可。
type Typesetter interface {
	Measure(text string, font FontResource) (width, height float64, err error)
}
