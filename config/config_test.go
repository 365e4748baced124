package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ByLCY/apodwall/dsl"
	"github.com/ByLCY/apodwall/layout"
)

func TestDefaultSettings(t *testing.T) {
	s, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	if s.Source.Page != DefaultPageURL || s.Source.Base != DefaultBaseURL {
		t.Fatalf("unexpected source %+v", s.Source)
	}
	if len(s.Targets) != 1 {
		t.Fatalf("expected one target, got %d", len(s.Targets))
	}
	desk := s.Targets[0]
	if desk.Name != "desktop" || desk.Canvas != (layout.Dimensions{Width: 1920, Height: 1080}) || desk.Reserved != 30 {
		t.Fatalf("unexpected target %+v", desk)
	}
	if desk.Background != (layout.Color{}) {
		t.Fatalf("background should be black, got %+v", desk.Background)
	}

	st := s.Caption.Style
	if st.BoxWidth != layout.Percent(50) || st.MarginX != 5 || st.MarginY != 5 || st.Spacer != 15 || st.LineSpacing != 0 {
		t.Fatalf("unexpected caption geometry %+v", st)
	}
	if st.Opacity != 0.5 {
		t.Fatalf("unexpected opacity %g", st.Opacity)
	}
	white := layout.Color{R: 255, G: 255, B: 255}
	if st.TitleColor != white || st.BodyColor != white {
		t.Fatalf("text colors should be white: %+v %+v", st.TitleColor, st.BodyColor)
	}
	if st.TitleFont.Size != 24 || st.BodyFont.Size != 16 || st.TitleFont.Src != "embed:goregular" {
		t.Fatalf("unexpected fonts %+v %+v", st.TitleFont, st.BodyFont)
	}
	if s.Caption.TitleTemplate != "${title}" || s.Caption.BodyTemplate != "${explanation}" {
		t.Fatalf("unexpected templates %q %q", s.Caption.TitleTemplate, s.Caption.BodyTemplate)
	}
	if got := s.StyleFor(desk); got.Background != desk.Background || got.Opacity != st.Opacity {
		t.Fatalf("StyleFor should copy style and background")
	}
}

func TestLoadResolvesBaseDirAndUnits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wall.wallpaper")
	src := `wallpaper Custom v2 {
  resources {
    font Big {
      src: "fonts/Big.ttf"
      size: 18pt
    }
    color Gold = #fc0
  }
  target uhd 3840 2160 {
    background: #102030
  }
  target small 800 600 reserve 20px
  caption {
    width: 600px
    margin: 8px
    opacity: 75%
    panel: Gold
    title Big color Gold size 30px { "${title:-Untitled}" }
  }
}
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if s.BaseDir != dir {
		t.Fatalf("expected base dir %s, got %s", dir, s.BaseDir)
	}
	if s.Name != "Custom" || s.Version != "v2" {
		t.Fatalf("unexpected header %s %s", s.Name, s.Version)
	}
	if len(s.Targets) != 2 || s.Targets[1].Reserved != 20 || s.Targets[0].Background != (layout.Color{R: 0x10, G: 0x20, B: 0x30}) {
		t.Fatalf("unexpected targets %+v", s.Targets)
	}
	if small, ok := s.Target("small"); !ok || small.Canvas.Width != 800 {
		t.Fatalf("Target lookup failed: %+v %v", small, ok)
	}
	if big := s.Fonts["Big"]; big.Size != 24 || big.Src != "fonts/Big.ttf" {
		t.Fatalf("18pt should become 24px, got %+v", big)
	}
	st := s.Caption.Style
	if st.BoxWidth != layout.Px(600) || st.MarginX != 8 || st.MarginY != 8 || st.Opacity != 0.75 {
		t.Fatalf("unexpected style %+v", st)
	}
	gold := layout.Color{R: 0xff, G: 0xcc}
	if st.Panel != gold || st.TitleColor != gold {
		t.Fatalf("expected gold panel and title, got %+v %+v", st.Panel, st.TitleColor)
	}
	if st.TitleFont.Name != "Big" || st.TitleFont.Size != 30 {
		t.Fatalf("inline size should override font size, got %+v", st.TitleFont)
	}
	// body 未声明时沿用内置 Body 字体与默认模板
	if st.BodyFont.Name != "Body" || s.Caption.BodyTemplate != "${explanation}" {
		t.Fatalf("unexpected body defaults %+v %q", st.BodyFont, s.Caption.BodyTemplate)
	}
	if s.Caption.TitleTemplate != "${title:-Untitled}" {
		t.Fatalf("unexpected title template %q", s.Caption.TitleTemplate)
	}
	if s.Source.Page != DefaultPageURL {
		t.Fatalf("missing source should fall back to defaults")
	}
}

func TestFromDocumentErrors(t *testing.T) {
	cases := map[string]string{
		"no target":        `wallpaper X v1 { caption { width: 50% } }`,
		"unknown key":      "wallpaper X v1 {\n target d 100 100\n caption {\n  colour: #fff\n }\n}",
		"unknown font":     "wallpaper X v1 {\n target d 100 100\n caption {\n  title Missing { \"x\" }\n }\n}",
		"unknown color":    "wallpaper X v1 {\n target d 100 100 {\n  background: Nope\n }\n}",
		"bad opacity":      "wallpaper X v1 {\n target d 100 100\n caption {\n  opacity: 1.5\n }\n}",
		"percent margin":   "wallpaper X v1 {\n target d 100 100\n caption {\n  margin-x: 5%\n }\n}",
		"duplicate target": "wallpaper X v1 {\n target d 100 100\n target d 200 200\n}",
		"reserve too big":  "wallpaper X v1 {\n target d 100 100 reserve 100px\n}",
		"missing height":   "wallpaper X v1 {\n target d 100\n}",
		"font no size":     "wallpaper X v1 {\n resources {\n  font F {\n   src: \"embed:gomono\"\n  }\n }\n target d 100 100\n}",
	}
	for name, src := range cases {
		doc, err := dsl.ParseString(src)
		if err != nil {
			t.Fatalf("%s: parse error %v", name, err)
		}
		if _, err := FromDocument(doc, ""); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestErrorsCarryPositions(t *testing.T) {
	doc, err := dsl.Parse("bad.wallpaper", strings.NewReader("wallpaper X v1 {\n target d 100 100\n caption {\n  colour: #fff\n }\n}"))
	if err != nil {
		t.Fatalf("parse error %v", err)
	}
	_, err = FromDocument(doc, "")
	if err == nil || !strings.Contains(err.Error(), "bad.wallpaper:4") {
		t.Fatalf("error should point at line 4, got %v", err)
	}
}

func TestParseColor(t *testing.T) {
	cases := map[string]layout.Color{
		"#FFFFFF": {R: 255, G: 255, B: 255},
		"#0F62FE": {R: 0x0f, G: 0x62, B: 0xfe},
		"#abc":    {R: 0xaa, G: 0xbb, B: 0xcc},
	}
	for in, want := range cases {
		got, err := parseColor(in)
		if err != nil || got != want {
			t.Errorf("parseColor(%s) = %+v, %v", in, got, err)
		}
	}
	for _, bad := range []string{"#12", "#zzzzzz", "#1234567"} {
		if _, err := parseColor(bad); err == nil {
			t.Errorf("parseColor(%s) should fail", bad)
		}
	}
}
