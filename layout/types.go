package layout

// 该文件定义布局输入与结果，供排版计算、渲染与调试 JSON 共用。
// 所有坐标与尺寸均为像素，原点位于画布左上角。

// Dimensions 表示像素宽高，二者都必须为正数。
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Validate 检查宽高是否为正。
func (d Dimensions) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return invalidDimensions("尺寸 %dx%d 必须为正", d.Width, d.Height)
	}
	return nil
}

// TargetSpec 描述目标画布以及底部保留区域（例如系统任务栏）。
type TargetSpec struct {
	Name     string     `json:"name"`
	Canvas   Dimensions `json:"canvas"`
	Reserved int        `json:"reserved"`
}

// EffectiveHeight 返回扣除保留区域后的可用高度。
func (t TargetSpec) EffectiveHeight() int { return t.Canvas.Height - t.Reserved }

// Validate 检查画布尺寸、保留区域与有效高度。
func (t TargetSpec) Validate() error {
	if err := t.Canvas.Validate(); err != nil {
		return err
	}
	if t.Reserved < 0 {
		return invalidDimensions("目标 %q 的保留高度 %d 不能为负", t.Name, t.Reserved)
	}
	if t.EffectiveHeight() <= 0 {
		return invalidDimensions("目标 %q 的有效高度 %d-%d 必须为正", t.Name, t.Canvas.Height, t.Reserved)
	}
	return nil
}

// FontResource 是字体句柄：字体来源加像素字号。src 可以是文件路径或 embed:* 内置字体。
type FontResource struct {
	Name string  `json:"name"`
	Src  string  `json:"src"`
	Size float64 `json:"size"` // px
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// TextLine 表示一行已测量的文本，单词之间以单个空格连接。
type TextLine struct {
	Content string `json:"content"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// LineBlock 是共享同一字体的一组行。
// LineHeight 为块内最大行高，统一作为每行的纵向步进。
type LineBlock struct {
	Font       FontResource `json:"font"`
	Color      Color        `json:"color"`
	Lines      []TextLine   `json:"lines"`
	LineHeight int          `json:"lineHeight"`
	Height     int          `json:"height"`
}

// Box 是字幕面板所在的矩形。
type Box struct {
	X    int        `json:"x"`
	Y    int        `json:"y"`
	Size Dimensions `json:"size"`
}

// PlacedLine 记录一行文本的绘制位置，Y 为行顶部，基线由渲染器按字体上升部换算。
type PlacedLine struct {
	TextLine
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Align string `json:"align"` // left/center
}

// Placement 为源图缩放到有效区域后的尺寸与偏移。
type Placement struct {
	Scaled  Dimensions `json:"scaled"`
	OffsetX int        `json:"offsetX"`
	OffsetY int        `json:"offsetY"`
	Scale   float64    `json:"scale"`
}

// CaptionStyle 汇总字幕面板的全部布局常量。
type CaptionStyle struct {
	BoxWidth    Length       `json:"boxWidth"` // px，或 UnitPercent 表示目标宽度的百分比
	MarginX     int          `json:"marginX"`
	MarginY     int          `json:"marginY"`
	Spacer      int          `json:"spacer"`
	LineSpacing int          `json:"lineSpacing"`
	Opacity     float64      `json:"opacity"`
	Panel       Color        `json:"panel"`
	Background  Color        `json:"background"`
	TitleColor  Color        `json:"titleColor"`
	BodyColor   Color        `json:"bodyColor"`
	TitleFont   FontResource `json:"titleFont"`
	BodyFont    FontResource `json:"bodyFont"`
}

// Input 是一次合成所需的全部值。
type Input struct {
	Target      TargetSpec   `json:"target"`
	Source      Dimensions   `json:"source"`
	Title       string       `json:"title"`
	Explanation string       `json:"explanation"`
	Style       CaptionStyle `json:"style"`
}

// Result 保存一次布局的完整结果，渲染器只依赖它与源图。
type Result struct {
	Target     TargetSpec   `json:"target"`
	Source     Dimensions   `json:"source"`
	Fit        Placement    `json:"fit"`
	Box        Box          `json:"box"`
	TitleBlock LineBlock    `json:"titleBlock"`
	BodyBlock  LineBlock    `json:"bodyBlock"`
	Title      []PlacedLine `json:"title"`
	Body       []PlacedLine `json:"body"`
	Style      CaptionStyle `json:"style"`
}
