package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"sleepwise/internal/service"
	"sleepwise/internal/validation"

	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// InsightHandler /insights
type InsightHandler struct {
	insights     service.InsightService
	maxBodyBytes int64
	logger       *zap.Logger
}

func NewInsightHandler(insights service.InsightService, maxBodyBytes int64, logger *zap.Logger) *InsightHandler {
	return &InsightHandler{insights: insights, maxBodyBytes: maxBodyBytes, logger: logger}
}

// CreateInsight POST /insights
func (h *InsightHandler) CreateInsight(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, h.maxBodyBytes)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	m, err := validation.ParseHealthMetrics(body)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	in, err := h.insights.Submit(r.Context(), identityOf(r).ID, m)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, okBody{Message: "ok", Result: in})
}

// ListInsights GET /insights?key=<上一页最后一条的 id>
func (h *InsightHandler) ListInsights(w http.ResponseWriter, r *http.Request) {
	page, err := h.insights.List(r.Context(), identityOf(r).ID, r.URL.Query().Get("key"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resultBody{Result: page})
}

// ExportInsights GET /insights/export
func (h *InsightHandler) ExportInsights(w http.ResponseWriter, r *http.Request) {
	records, err := h.insights.Export(r.Context(), identityOf(r).ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	data, err := GenerateInsightsExport(records)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	filename := fmt.Sprintf("insights_%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
