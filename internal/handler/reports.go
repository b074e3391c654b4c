package handler

import (
	"fmt"
	"net/http"
	"time"

	"invoicing/internal/dto"
	"invoicing/internal/service"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportsHandler struct{ svc service.ReportService }

func NewReportsHandler(svc service.ReportService) *ReportsHandler {
	return &ReportsHandler{svc: svc}
}

// Summary godoc
// @Summary      Revenue summary
// @Description  Totals per payment status for the invoices matching the filter.
// @Tags         reports
// @Produce      json
// @Param        search    query string false "Client name or invoice number"
// @Param        status    query string false "Unpaid | Paid | Overdue | Pending"
// @Param        date_from query string false "YYYY-MM-DD"
// @Param        date_to   query string false "YYYY-MM-DD"
// @Param        client_id query string false "Client UUID"
// @Success      200  {object} dto.ReportSummary
// @Router       /v1/reports/summary [get]
func (h *ReportsHandler) Summary(c *gin.Context) {
	var filter dto.InvoiceFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Summary(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ExportXLSX GET /v1/reports/export.xlsx
func (h *ReportsHandler) ExportXLSX(c *gin.Context) {
	var filter dto.InvoiceFilter
	if !bindQuery(c, &filter) {
		return
	}
	data, err := h.svc.ExportXLSX(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	attach(c, "xlsx")
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ExportPDF GET /v1/reports/export.pdf
func (h *ReportsHandler) ExportPDF(c *gin.Context) {
	var filter dto.InvoiceFilter
	if !bindQuery(c, &filter) {
		return
	}
	data, err := h.svc.ExportPDF(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	attach(c, "pdf")
	c.Data(http.StatusOK, "application/pdf", data)
}

func attach(c *gin.Context, ext string) {
	name := fmt.Sprintf("invoices_%s.%s", time.Now().Format("2006-01-02"), ext)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
}
