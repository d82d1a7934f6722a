package setting

import (
	"encoding/json"

	"github.com/zintix-labs/megaodds/errs"
	"gopkg.in/yaml.v3"
)

// GetGameSettingByYAML 解析 YAML，補預設值並檢查 timing / bet units
func GetGameSettingByYAML(data []byte) (*GameSetting, error) {
	return load(data, yaml.Unmarshal, "yaml")
}

// GetGameSettingByJSON JSON 中的 timing 以奈秒整數表示
func GetGameSettingByJSON(data []byte) (*GameSetting, error) {
	return load(data, json.Unmarshal, "json")
}

func load(data []byte, unmarshal func([]byte, any) error, format string) (*GameSetting, error) {
	gs := &GameSetting{}
	if err := unmarshal(data, gs); err != nil {
		return nil, errs.Wrap(err, "game setting: invalid "+format)
	}
	if err := gs.init(); err != nil {
		return nil, errs.Wrap(err, "game setting: "+gs.GameName)
	}
	return gs, nil
}
