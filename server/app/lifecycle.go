package app

import "context"

// Component 可啟動 / 可關閉的元件。
//   - Run 阻塞直到元件停止。
//   - Shutdown 要求優雅關閉，須尊重 ctx 期限。
type Component interface {
	Run() error
	Shutdown(ctx context.Context) error
}

// Funcs 以兩個函式組成 Component
type Funcs struct {
	RunFn      func() error
	ShutdownFn func(ctx context.Context) error
}

func (f Funcs) Run() error {
	if f.RunFn == nil {
		return nil
	}
	return f.RunFn()
}

func (f Funcs) Shutdown(ctx context.Context) error {
	if f.ShutdownFn == nil {
		return nil
	}
	return f.ShutdownFn(ctx)
}
