package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/zintix-labs/megaodds/errs"
	"github.com/zintix-labs/megaodds/server/httperr"
)

// Recover 攔下 handler panic，記錄 stack 後回 500。http.ErrAbortHandler 照常往上拋。
func Recover(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				if log != nil {
					log.Error("panic recovered",
						slog.String("path", r.URL.Path),
						slog.String("req_id", GetReqIdNumPart(r)),
						slog.Any("panic", rec),
						slog.String("stack", string(debug.Stack())))
				}
				httperr.Errs(w, errs.NewFatal(fmt.Sprintf("internal error: %v", rec)))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
