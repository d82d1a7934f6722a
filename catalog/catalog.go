package catalog

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zintix-labs/megaodds/errs"
	"github.com/zintix-labs/megaodds/setting"
)

var (
	ErrDupID   = errs.NewFatal("duplicate game id")
	ErrDupName = errs.NewFatal("duplicate game name")
)

// Entry 目錄中的一款遊戲；Name 即大廳選擇用的識別碼
type Entry struct {
	GID        setting.GID
	Name       string
	ConfigName string
}

type Summary struct {
	GID      setting.GID      `json:"gid"`
	Name     string           `json:"name"`
	Title    string           `json:"title"`
	Logic    setting.LogicKey `json:"logic"`
	Payout   setting.Payout   `json:"payout"`
	BetUnits []int            `json:"bet_units"`
}

type Catalog struct {
	byID   map[setting.GID]Entry
	byName map[string]Entry
	ids    []setting.GID       // 用來穩定排序
	unique map[string]struct{} // 一組遊戲，檔名需唯一
	config *multiFS
	frozen bool
}

func New(cfg ...fs.FS) (*Catalog, error) {
	multFS, err := newMultiFS(cfg...)
	if err != nil {
		return nil, errs.Wrap(err, "can not create catalog")
	}
	return &Catalog{
		byID:   map[setting.GID]Entry{},
		byName: map[string]Entry{},
		ids:    make([]setting.GID, 0, 32),
		unique: map[string]struct{}{},
		config: multFS,
	}, nil
}

func normName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register 一次註冊一批；任一筆不合法則整批都不寫入
func (c *Catalog) Register(metas ...Entry) error {
	if c.frozen {
		return errs.NewWarn("can not register when catalog already frozen")
	}
	seenID := map[setting.GID]struct{}{}
	seenName := map[string]struct{}{}
	seenCfg := map[string]struct{}{}
	for i := range metas {
		meta := &metas[i]
		meta.Name = normName(meta.Name)
		if meta.Name == "" {
			return errs.NewFatal("game name required")
		}
		if err := validFileName(meta.ConfigName); err != nil {
			return err
		}
		if _, ok := c.config.index[meta.ConfigName]; !ok {
			return errs.NewFatal(fmt.Sprintf("config file not found: %s", meta.ConfigName))
		}
		if _, ok := c.byID[meta.GID]; ok {
			return ErrDupID
		}
		if _, ok := seenID[meta.GID]; ok {
			return ErrDupID
		}
		if _, ok := c.byName[meta.Name]; ok {
			return ErrDupName
		}
		if _, ok := seenName[meta.Name]; ok {
			return ErrDupName
		}
		_, used := c.unique[meta.ConfigName]
		_, seen := seenCfg[meta.ConfigName]
		if used || seen {
			return errs.NewFatal(fmt.Sprintf("duplicate config name: %s", meta.ConfigName))
		}
		seenID[meta.GID] = struct{}{}
		seenName[meta.Name] = struct{}{}
		seenCfg[meta.ConfigName] = struct{}{}
	}
	for _, meta := range metas {
		c.unique[meta.ConfigName] = struct{}{}
		c.byID[meta.GID] = meta
		c.byName[meta.Name] = meta
		c.ids = append(c.ids, meta.GID)
	}
	sort.Slice(c.ids, func(i, j int) bool { return c.ids[i] < c.ids[j] })
	return nil
}

func (c *Catalog) GetByID(id setting.GID) (Entry, bool) {
	m, ok := c.byID[id]
	return m, ok
}

func (c *Catalog) GetByName(name string) (Entry, bool) {
	m, ok := c.byName[normName(name)]
	return m, ok
}

func (c *Catalog) IDs() []setting.GID {
	if len(c.ids) == 0 {
		return nil
	}
	return append([]setting.GID(nil), c.ids...)
}

// All 依 GID 排序
func (c *Catalog) All() []Entry {
	m := make([]Entry, 0, len(c.ids))
	for _, id := range c.ids {
		m = append(m, c.byID[id])
	}
	return m
}

func (c *Catalog) Cfg() *multiFS {
	return c.config
}

func (c *Catalog) Freeze() {
	c.frozen = true
}

func (c *Catalog) IsFrozen() bool {
	return c.frozen
}

func validFileName(file string) error {
	if file == "" {
		return errs.NewFatal("empty config filename")
	}
	// 不能包含路徑
	if strings.ContainsAny(file, `/\:`) {
		return errs.NewFatal(fmt.Sprintf("invalid config filename: %q (must be a basename; no / \\\\ :) ", file))
	}
	if !isConfigFile(file) {
		return errs.NewFatal(fmt.Sprintf("invalid config filename: %q (must end with .yaml, .yml, or .json)", file))
	}
	if strings.HasPrefix(file, ".") {
		return errs.NewFatal(fmt.Sprintf("invalid config filename: %q (cannot start with '.')", file))
	}
	return nil
}

func isConfigFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// ParseGameSetting 依副檔名解析 YAML/JSON 設定
func ParseGameSetting(filename string, raw []byte) (*setting.GameSetting, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return setting.GetGameSettingByYAML(raw)
	case ".json":
		return setting.GetGameSettingByJSON(raw)
	default:
		return nil, errs.NewFatal(fmt.Sprintf("unsupported config format: %q", filename))
	}
}

// GameSettingById
//
// 會讀取 fs.FS 中的 YAML/JSON 設定、補預設值並執行基本檢查後回傳
func (c *Catalog) GameSettingById(id setting.GID) (*setting.GameSetting, error) {
	e, ok := c.GetByID(id)
	if !ok {
		return nil, errs.ErrUnknownGame.Withf("gid %d", id)
	}
	return c.load(e)
}

// GameSettingByName 以大廳識別碼取得設定
func (c *Catalog) GameSettingByName(name string) (*setting.GameSetting, error) {
	e, ok := c.GetByName(name)
	if !ok {
		return nil, errs.ErrUnknownGame.Withf("game %q", name)
	}
	return c.load(e)
}

func (c *Catalog) load(e Entry) (*setting.GameSetting, error) {
	src, ok := c.config.GetFS(e.ConfigName)
	if !ok {
		return nil, errs.NewWarn("file name dose not exist in catalog")
	}
	raw, err := fs.ReadFile(src, e.ConfigName)
	if err != nil {
		return nil, errs.Wrap(err, "catalog parse file error")
	}
	return ParseGameSetting(e.ConfigName, raw)
}

type multiFS struct {
	src   []fs.FS
	index map[string]int // name -> src index
}

func newMultiFS(src ...fs.FS) (*multiFS, error) {
	if len(src) == 0 {
		return nil, errs.NewFatal("no fs provided")
	}
	for i, s := range src {
		if s == nil {
			return nil, errs.NewFatal(fmt.Sprintf("fs[%d] is nil", i))
		}
	}

	m := &multiFS{
		src:   src,
		index: make(map[string]int, 64),
	}

	// 建立索引並檢查跨來源重複檔名
	for i := 0; i < len(src); i++ {
		err := fs.WalkDir(src[i], ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				// 設定目錄必須是平的，只允許根目錄
				if path == "." {
					return nil
				}
				return errs.NewFatal(fmt.Sprintf("config FS must be flat (no subdirectories): %q", path))
			}
			if strings.HasPrefix(path, ".") || !isConfigFile(path) {
				return nil
			}
			if prev, ok := m.index[path]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate config %q in fs[%d] and fs[%d]", path, prev, i))
			}
			m.index[path] = i
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *multiFS) GetFS(name string) (fs.FS, bool) {
	if id, ok := m.index[name]; ok {
		return m.src[id], ok
	}
	return nil, false
}

// Names 依檔名排序的設定檔清單
func (m *multiFS) Names() []string {
	names := make([]string, 0, len(m.index))
	for n := range m.index {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Sources exposes config FS sources for read-only iteration.
func (m *multiFS) Sources() []fs.FS {
	if m == nil || len(m.src) == 0 {
		return nil
	}
	return append([]fs.FS(nil), m.src...)
}
