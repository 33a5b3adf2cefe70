package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"sleepwise/internal/apperr"
	"sleepwise/internal/auth"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// errorBody 对外错误响应；issues 只在校验失败时出现
type errorBody struct {
	Error  string         `json:"error"`
	Issues []apperr.Issue `json:"issues,omitempty"`
}

// okBody 写操作的确认
type okBody struct {
	Message string `json:"message"`
	Result  any    `json:"result,omitempty"`
}

// resultBody 列表接口统一包一层 result
type resultBody struct {
	Result any `json:"result"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError 完整错误只写日志，调用方只拿到通用信息
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("route", routeOf(r)),
		zap.Int("status", status),
		zap.String("kind", apperr.KindOf(err).String()),
		zap.Error(err),
	}
	if id := auth.IdentityFrom(r.Context()); id != nil {
		fields = append(fields, zap.String("uid", id.ID))
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", fields...)
	} else {
		logger.Debug("Request rejected", fields...)
	}
	writeJSON(w, status, errorBody{Error: apperr.PublicMessage(err), Issues: apperr.IssuesOf(err)})
}

// readBody 读取请求体，超过 maxBytes 视为校验失败
func readBody(r *http.Request, maxBytes int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return nil, apperr.Validation(apperr.Issue{Reason: "unreadable request body"})
	}
	if int64(len(body)) > maxBytes {
		return nil, apperr.Validation(apperr.Issue{Reason: "request body too large"})
	}
	return body, nil
}

// routeOf 返回匹配到的路由模板，未匹配时退回原始路径
func routeOf(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// identityOf 鉴权中间件之后调用，identity 一定存在
func identityOf(r *http.Request) *auth.Identity {
	return auth.IdentityFrom(r.Context())
}
