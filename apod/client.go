package apod

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	// 额外注册 image.Decode 可识别的格式
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// 站点默认地址。
const (
	DefaultPageURL = "https://apod.nasa.gov/apod/astropix.html"
	DefaultBaseURL = "https://apod.nasa.gov/apod/"
)

const maxBodySize = 64 << 20

var (
	// ErrStatus 表示服务端返回了非 2xx 状态码。
	ErrStatus = errors.New("unexpected http status")
)

// Client 抓取天文图页面与图片。所有请求共享同一个限速器。
type Client struct {
	HTTP        *http.Client
	PageURL     string
	BaseURL     string
	UserAgent   string
	Limiter     *rate.Limiter
	Logger      *slog.Logger
	Concurrency int // FetchAll 的最大并发数
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient 替换底层 http.Client。
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.HTTP = h } }

// WithPageURL 设置当日页面地址。
func WithPageURL(u string) Option { return func(c *Client) { c.PageURL = u } }

// WithBaseURL 设置归档页面与相对链接的前缀。
func WithBaseURL(u string) Option { return func(c *Client) { c.BaseURL = u } }

// WithRateLimit 设置请求速率；r 为 rate.Inf 时不限速。
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) { c.Limiter = rate.NewLimiter(r, burst) }
}

// WithLogger 设置日志输出。
func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.Logger = l } }

// WithConcurrency 设置 FetchAll 的并发上限。
func WithConcurrency(n int) Option { return func(c *Client) { c.Concurrency = n } }

// NewClient 创建带默认超时、限速与地址的客户端。
func NewClient(opts ...Option) *Client {
	c := &Client{
		HTTP:        &http.Client{Timeout: 30 * time.Second},
		PageURL:     DefaultPageURL,
		BaseURL:     DefaultBaseURL,
		UserAgent:   "apodwall/1.0",
		Limiter:     rate.NewLimiter(rate.Every(250*time.Millisecond), 2),
		Logger:      slog.Default(),
		Concurrency: 4,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PageURLFor 返回指定日期的页面地址；零值日期对应当日页面。
func (c *Client) PageURLFor(date time.Time) string {
	if date.IsZero() {
		return c.PageURL
	}
	return c.BaseURL + "ap" + date.Format("060102") + ".html"
}

// Fetch 下载并解析一天的页面。
func (c *Client) Fetch(ctx context.Context, date time.Time) (*Entry, error) {
	pageURL := c.PageURLFor(date)
	body, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	entry, err := ParsePage(string(body), pageURL)
	if err != nil {
		return nil, fmt.Errorf("解析 %s 失败: %w", pageURL, err)
	}
	if entry.Date.IsZero() {
		entry.Date = date
	}
	c.Logger.Debug("apod page parsed", "url", pageURL, "title", entry.Title, "image", entry.ImageURL)
	return entry, nil
}

// FetchAll 并发抓取多天页面，结果与 dates 顺序一致；任一失败即取消其余请求。
func (c *Client) FetchAll(ctx context.Context, dates []time.Time) ([]*Entry, error) {
	entries := make([]*Entry, len(dates))
	g, ctx := errgroup.WithContext(ctx)
	if c.Concurrency > 0 {
		g.SetLimit(c.Concurrency)
	}
	for i, date := range dates {
		g.Go(func() error {
			entry, err := c.Fetch(ctx, date)
			if err != nil {
				return err
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// FetchImage 下载并解码图片，按 EXIF 方向自动旋转。
func (c *Client) FetchImage(ctx context.Context, imageURL string) (image.Image, error) {
	body, err := c.get(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(body), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("解码图片 %s 失败: %w", imageURL, err)
	}
	b := img.Bounds()
	c.Logger.Debug("apod image decoded", "url", imageURL, "width", b.Dx(), "height", b.Dy())
	return img, nil
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("等待限速 %s: %w", target, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求 %s 失败: %w", target, err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求 %s 失败: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s 返回 %d", ErrStatus, target, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("读取 %s 失败: %w", target, err)
	}
	c.Logger.Debug("http get", "url", target, "status", resp.StatusCode, "bytes", len(body), "elapsed", time.Since(start))
	return body, nil
}
