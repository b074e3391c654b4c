package handler

import (
	"fmt"
	"net/http"

	"invoicing/internal/apierror"
	"invoicing/internal/dto"
	"invoicing/internal/service"

	"github.com/gin-gonic/gin"
)

type InvoicesHandler struct{ svc service.InvoiceService }

func NewInvoicesHandler(svc service.InvoiceService) *InvoicesHandler {
	return &InvoicesHandler{svc: svc}
}

// Create godoc
// @Summary      Create an invoice
// @Description  Computes totals from the line items and assigns the next INV-#### number unless one is supplied.
// @Description  Non-numeric quantities, prices and percentages count as 0.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        body body dto.CreateInvoiceRequest true "Invoice"
// @Success      201  {object} dto.InvoiceResponse
// @Failure      404  {object} apierror.APIError "clientId does not exist"
// @Failure      409  {object} apierror.APIError "number already taken"
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/invoices [post]
func (h *InvoicesHandler) Create(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary      List invoices
// @Description  Paginated, newest first.
// @Tags         invoices
// @Produce      json
// @Param        search    query string false "Client name or invoice number"
// @Param        status    query string false "Unpaid | Paid | Overdue | Pending"
// @Param        date_from query string false "YYYY-MM-DD"
// @Param        date_to   query string false "YYYY-MM-DD"
// @Param        client_id query string false "Client UUID"
// @Param        page      query int    false "Page (default 1)"
// @Param        limit     query int    false "Page size (default 50, max 500)"
// @Success      200  {object} dto.InvoiceListResponse
// @Router       /v1/invoices [get]
func (h *InvoicesHandler) List(c *gin.Context) {
	var filter dto.InvoiceFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get GET /v1/invoices/:id
func (h *InvoicesHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// NextNumber godoc
// @Summary      Preview the next invoice number
// @Description  The number is not reserved; a concurrent creation may take it.
// @Tags         invoices
// @Produce      json
// @Success      200  {object} dto.NextNumberResponse
// @Router       /v1/invoices/next-number [get]
func (h *InvoicesHandler) NextNumber(c *gin.Context) {
	number, err := h.svc.NextNumber(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NextNumberResponse{Number: number})
}

// Totals godoc
// @Summary      Compute totals for draft line items
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        body body dto.TotalsRequest true "Line items"
// @Success      200  {object} billing.Totals
// @Description  Drafts are not validated: non-numeric or missing values count as 0.
// @Failure      400  {object} apierror.APIError "malformed JSON"
// @Router       /v1/invoices/totals [post]
func (h *InvoicesHandler) Totals(c *gin.Context) {
	var req dto.TotalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return
	}
	c.JSON(http.StatusOK, h.svc.PreviewTotals(req.LineItems()))
}

// UpdateStatus godoc
// @Summary      Set the payment status
// @Description  Any status may replace any other.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id   path string                  true "Invoice UUID"
// @Param        body body dto.UpdateStatusRequest true "New status"
// @Success      200  {object} dto.InvoiceResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/invoices/{id}/status [patch]
func (h *InvoicesHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.UpdateStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateStatus(c.Request.Context(), id, req.PaymentStatus)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete DELETE /v1/invoices/:id
func (h *InvoicesHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PDF godoc
// @Summary      Download the invoice as PDF
// @Tags         invoices
// @Produce      application/pdf
// @Param        id path string true "Invoice UUID"
// @Success      200
// @Failure      404  {object} apierror.APIError
// @Router       /v1/invoices/{id}/pdf [get]
func (h *InvoicesHandler) PDF(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	name, data, err := h.svc.RenderPDF(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, "application/pdf", data)
}

// Email godoc
// @Summary      Email the invoice PDF
// @Description  Queues the email; delivery happens in the background.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id   path string                  true "Invoice UUID"
// @Param        body body dto.EmailInvoiceRequest true "Recipient"
// @Success      202
// @Failure      404  {object} apierror.APIError
// @Failure      503  {object} apierror.APIError
// @Router       /v1/invoices/{id}/email [post]
func (h *InvoicesHandler) Email(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.EmailInvoiceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.EmailInvoice(c.Request.Context(), id, req); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": true})
}
