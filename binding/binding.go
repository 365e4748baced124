package binding

import (
	"regexp"
	"sort"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate 将文本中的 ${name} 替换为 vars 中的值，支持 ${name:-默认值}。
// 变量不存在且未给出默认值时保留原占位符。
func Interpolate(text string, vars map[string]string) string {
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		name, fallback, hasFallback := splitFallback(groups[1])
		if name == "" {
			return match
		}
		if val, ok := vars[name]; ok && (val != "" || !hasFallback) {
			return val
		}
		if hasFallback {
			return fallback
		}
		return match
	})
}

// Names 返回文本中引用到的变量名（去重、排序）。
func Names(text string) []string {
	seen := map[string]struct{}{}
	for _, groups := range exprPattern.FindAllStringSubmatch(text, -1) {
		name, _, _ := splitFallback(groups[1])
		if name != "" {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func splitFallback(expr string) (name, fallback string, ok bool) {
	if i := strings.Index(expr, ":-"); i != -1 {
		return strings.TrimSpace(expr[:i]), expr[i+2:], true
	}
	return strings.TrimSpace(expr), "", false
}
