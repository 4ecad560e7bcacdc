package middleware

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/conduit-lang/mapper/internal/web/response"
)

// Recovery turns a panic into a 500 error body and logs it with a stack.
func Recovery(log *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}

				log.Error("panic recovered",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Any("panic", p),
					zap.Stack("stack"),
				)
				response.Error(w, fmt.Errorf("internal server error"))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
