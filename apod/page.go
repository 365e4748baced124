package apod

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

var (
	// ErrNoImage 表示页面没有图片链接（例如当天是视频）。
	ErrNoImage = errors.New("apod page has no image")
	// ErrNoMatch 表示页面缺少标题或说明。
	ErrNoMatch = errors.New("apod page layout not recognized")
)

var (
	imagePattern       = regexp.MustCompile(`(?i)<a\s+href="(image/[^"]*)"\s*>`)
	titlePattern       = regexp.MustCompile(`(?is)<center>\s*<b>\s*(.*?)\s*</b>\s*<br>`)
	explanationPattern = regexp.MustCompile(`(?is)<b>\s*Explanation:\s*</b>(.*?)<p>\s*<center>`)
	datePattern        = regexp.MustCompile(`(?is)<p>\s*(\d{4}\s+[a-z]+\s+\d{1,2})\s*<br>`)
)

// Entry 是一天的天文图条目。
type Entry struct {
	Date        time.Time `json:"date"`
	Title       string    `json:"title"`
	Explanation string    `json:"explanation"`
	ImageURL    string    `json:"imageUrl"`
	PageURL     string    `json:"pageUrl"`
}

// Vars 返回用于标题/正文模板插值的变量。
func (e *Entry) Vars() map[string]string {
	vars := map[string]string{
		"title":       e.Title,
		"explanation": e.Explanation,
		"image":       e.ImageURL,
		"page":        e.PageURL,
		"date":        "",
	}
	if !e.Date.IsZero() {
		vars["date"] = e.Date.Format(time.DateOnly)
	}
	return vars
}

// ParsePage 从页面 HTML 中提取图片链接、标题与说明；相对链接按 base 解析。
func ParsePage(page, base string) (*Entry, error) {
	entry := &Entry{PageURL: base}

	m := imagePattern.FindStringSubmatch(page)
	if m == nil {
		return nil, ErrNoImage
	}
	imageURL, err := resolve(base, html.UnescapeString(m[1]))
	if err != nil {
		return nil, err
	}
	entry.ImageURL = imageURL

	if m = titlePattern.FindStringSubmatch(page); m == nil {
		return nil, fmt.Errorf("%w: 未找到标题", ErrNoMatch)
	}
	entry.Title = StripHTML(m[1])

	if m = explanationPattern.FindStringSubmatch(page); m == nil {
		return nil, fmt.Errorf("%w: 未找到说明", ErrNoMatch)
	}
	entry.Explanation = StripHTML(m[1])

	if m = datePattern.FindStringSubmatch(page); m != nil {
		if d, err := time.Parse("2006 January 2", strings.Join(strings.Fields(m[1]), " ")); err == nil {
			entry.Date = d
		}
	}
	return entry, nil
}

// StripHTML 去掉标签、反转义实体并把空白折叠为单个空格。
func StripHTML(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			// 块级换行标签视为空白
			if name, _ := z.TagName(); string(name) == "br" || string(name) == "p" {
				b.WriteByte(' ')
			}
		}
	}
}

func resolve(base, ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("图片链接 %q 无效: %w", ref, err)
	}
	if base == "" {
		return r.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("页面地址 %q 无效: %w", base, err)
	}
	return b.ResolveReference(r).String(), nil
}
