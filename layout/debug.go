package layout

import (
	"encoding/json"
	"os"
)

// WriteDebugJSON 将各条目的组合结果输出为 JSON，便于调试或可视化。
func WriteDebugJSON(plans []RenderPlan, path string) error {
	if plans == nil {
		plans = []RenderPlan{}
	}
	data, err := json.MarshalIndent(struct {
		Plans []RenderPlan `json:"plans"`
	}{plans}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
