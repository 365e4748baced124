package layout

import (
	"encoding/json"
	"os"
)

// WriteDebugJSON 将布局结果输出为 JSON，便于调试或可视化。
// 多个结果（多日期、多目标）写成一个数组。
func WriteDebugJSON(results []*Result, path string) error {
	if len(results) == 0 {
		return nil
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
