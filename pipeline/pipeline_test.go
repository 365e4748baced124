package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/ByLCY/apodwall/apod"
	"github.com/ByLCY/apodwall/config"
	"github.com/ByLCY/apodwall/layout"
)

const page = `<html><body>
<center><p>2024 March %d<br>
<a href="image/2403/pic.png"><img src="image/2403/pic_s.png"></a>
</center>
<center>
<b> Day %d </b> <br>
</center>
<b> Explanation: </b> A short caption about the sky. <p> <center>
</body></html>`

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	pic := encodePNG(t, 300, 100)
	mux := http.NewServeMux()
	for day := 1; day <= 3; day++ {
		body := fmt.Sprintf(page, day, day)
		mux.HandleFunc(fmt.Sprintf("/apod/ap24030%d.html", day), func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, body)
		})
	}
	mux.HandleFunc("/apod/astropix.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, page, 3, 3)
	})
	mux.HandleFunc("/apod/image/2403/pic.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write(pic)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func smallSettings(t *testing.T, srv *httptest.Server) *config.Settings {
	t.Helper()
	s, err := config.Default()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	if srv != nil {
		s.Source = config.Source{Page: srv.URL + "/apod/astropix.html", Base: srv.URL + "/apod/"}
	}
	s.Targets = []config.Target{{
		TargetSpec: layout.TargetSpec{Name: "small", Canvas: layout.Dimensions{Width: 640, Height: 360}, Reserved: 20},
	}}
	return s
}

func decodeSize(t *testing.T, path string) image.Point {
	t.Helper()
	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	return img.Bounds().Size()
}

func TestRunFetchesAndWritesToday(t *testing.T) {
	srv := newServer(t)
	out := filepath.Join(t.TempDir(), "out", "apod.png")
	debug := filepath.Join(t.TempDir(), "layout.json")

	outputs, err := Run(context.Background(), Options{
		Settings:  smallSettings(t, srv),
		Output:    out,
		DebugPath: debug,
		Logger:    quiet,
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(outputs) != 1 || outputs[0].Path != out {
		t.Fatalf("unexpected outputs %+v", outputs)
	}
	if got := decodeSize(t, out); got != (image.Point{X: 640, Y: 360}) {
		t.Fatalf("unexpected output size %v", got)
	}
	res := outputs[0].Result
	if len(res.Title) != 1 || res.Title[0].Content != "Day 3" {
		t.Fatalf("title not interpolated: %+v", res.Title)
	}
	if res.Box.Y+res.Box.Size.Height != 340 {
		t.Fatalf("box should sit on the effective bottom, got %+v", res.Box)
	}
	if _, err := os.Stat(debug); err != nil {
		t.Fatalf("debug json not written: %v", err)
	}
}

func TestRunMultipleDatesAndTargets(t *testing.T) {
	srv := newServer(t)
	s := smallSettings(t, srv)
	s.Targets = append(s.Targets, config.Target{
		TargetSpec: layout.TargetSpec{Name: "wide", Canvas: layout.Dimensions{Width: 800, Height: 300}},
		Background: layout.Color{R: 20, G: 20, B: 20},
	})
	dir := t.TempDir()
	dates := []time.Time{
		time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC),
	}
	outputs, err := Run(context.Background(), Options{
		Settings:    s,
		Dates:       dates,
		Output:      filepath.Join(dir, "wall.jpg"),
		Backend:     "raster",
		Concurrency: 2,
		Logger:      quiet,
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	want := []string{
		"wall-2024-03-01-small.jpg",
		"wall-2024-03-01-wide.jpg",
		"wall-2024-03-02-small.jpg",
		"wall-2024-03-02-wide.jpg",
	}
	if len(outputs) != len(want) {
		t.Fatalf("expected %d outputs, got %d", len(want), len(outputs))
	}
	for i, name := range want {
		if filepath.Base(outputs[i].Path) != name {
			t.Fatalf("output %d: expected %s, got %s", i, name, outputs[i].Path)
		}
	}
	if got := decodeSize(t, outputs[1].Path); got != (image.Point{X: 800, Y: 300}) {
		t.Fatalf("unexpected wide size %v", got)
	}
}

func TestRunOfflineWithCanvasBackend(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "local.png")
	if err := os.WriteFile(src, encodePNG(t, 100, 200), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	out := filepath.Join(dir, "local-wall.png")
	outputs, err := Run(context.Background(), Options{
		Settings:    smallSettings(t, nil),
		ImagePath:   src,
		Title:       "Local",
		Explanation: "Composed without touching the network.",
		Output:      out,
		Backend:     "canvas",
		Logger:      quiet,
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(outputs) != 1 || outputs[0].Result.Fit.Scaled.Height != 340 {
		t.Fatalf("unexpected outputs %+v", outputs)
	}
	img, err := imaging.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	// 竖图左右补边为黑色背景
	if r, g, b, _ := img.At(2, 2).RGBA(); r != 0 || g != 0 || b != 0 {
		t.Fatalf("pillarbox should be black, got %v", img.At(2, 2))
	}
}

func TestRunFailsBeforeWriting(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "local.png")
	if err := os.WriteFile(src, encodePNG(t, 10, 10), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	s := smallSettings(t, nil)
	s.Caption.Style.BoxWidth = layout.Px(2000)
	out := filepath.Join(dir, "never.png")
	_, err := Run(context.Background(), Options{Settings: s, ImagePath: src, Output: out, Logger: quiet})
	if !errors.Is(err, layout.ErrLayoutOverflow) {
		t.Fatalf("expected ErrLayoutOverflow, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("no file should be written on failure")
	}

	if _, err := Run(context.Background(), Options{Settings: s, ImagePath: src, Output: filepath.Join(dir, "x.xyz")}); err == nil {
		t.Fatalf("unsupported extension should fail")
	}
	if _, err := Run(context.Background(), Options{Settings: s, ImagePath: src, Output: out, Backend: "svg"}); err == nil {
		t.Fatalf("unknown backend should fail")
	}
}

func TestRunPropagatesVideoDay(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/apod/astropix.html", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<center><b> Video </b><br></center><iframe src="x"></iframe>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	_, err := Run(context.Background(), Options{
		Settings: smallSettings(t, srv),
		Output:   filepath.Join(t.TempDir(), "v.png"),
		Logger:   quiet,
	})
	if !errors.Is(err, apod.ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
}

func TestOutputPath(t *testing.T) {
	e := &apod.Entry{Date: time.Date(2024, time.May, 6, 0, 0, 0, 0, time.UTC)}
	if got := OutputPath("out/a.png", e, "desk", false); got != "out/a.png" {
		t.Fatalf("single output should keep the name, got %s", got)
	}
	if got := OutputPath("out/a.png", e, "desk", true); got != "out/a-2024-05-06-desk.png" {
		t.Fatalf("unexpected name %s", got)
	}
	if got := OutputPath("a.png", &apod.Entry{}, "desk", true); got != "a-desk.png" {
		t.Fatalf("undated entry should only get the target suffix, got %s", got)
	}
}
