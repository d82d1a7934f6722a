package demo_configs

import (
	"embed"
)

// FS 內建的 16 款遊戲設定
//
//go:embed *.yaml
var FS embed.FS
