package netsvr

import (
	"net/http"

	"github.com/zintix-labs/megaodds/server/app"
)

// NetSvr 路由 + 服務啟停。
//   - 只給最外層 (server.Run / cmd) 使用，handler 只面向 NetRouter。
//   - 實作 app.Component，可直接交給 app.App 管理生命週期。
//   - 目前實作為 chi (net/http)；換框架只要提供相容 net/http handler 的實作。
type NetSvr interface {
	NetRouter
	app.Component
}

// NetRouter 純路由行為；Group 回呼只拿得到 NetRouter，看不到 Run/Shutdown。
// 路徑參數以 {name} 表示，handler 內用 Param 取值。
type NetRouter interface {
	// middleware
	Use(middleware func(http.Handler) http.Handler)

	// 註冊路由
	Get(path string, h http.HandlerFunc)
	Post(path string, h http.HandlerFunc)
	Put(path string, h http.HandlerFunc)
	Delete(path string, h http.HandlerFunc)

	// 群組路由
	Group(path string, fn func(NetRouter))

	// Handler 整棵路由，給 httptest 使用
	Handler() http.Handler
}
