package setting

import (
	"bytes"

	"github.com/zintix-labs/megaodds/errs"
	"gopkg.in/yaml.v3"
)

// DecodeFixed 把 gs.Fixed（各玩法自己的參數）解到 out。
// out 先填好預設值，設定檔只覆寫需要的欄位；未知欄位一律報錯，拼錯的 key 不會被默默忽略。
func DecodeFixed[T any](gs *GameSetting, out *T) error {
	if len(gs.Fixed) == 0 {
		return nil
	}
	raw, err := yaml.Marshal(gs.Fixed)
	if err != nil {
		return errs.Wrap(err, "fixed: marshal "+gs.GameName)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return errs.Wrap(err, "fixed: decode "+gs.GameName)
	}
	return nil
}
