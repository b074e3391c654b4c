package handler

import (
	"net/http"

	"invoicing/internal/dto"
	"invoicing/internal/service"

	"github.com/gin-gonic/gin"
)

type ClientsHandler struct{ svc service.ClientService }

func NewClientsHandler(svc service.ClientService) *ClientsHandler {
	return &ClientsHandler{svc: svc}
}

// Create godoc
// @Summary      Create a client
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        body body dto.CreateClientRequest true "Client"
// @Success      201  {object} dto.ClientResponse
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/clients [post]
func (h *ClientsHandler) Create(c *gin.Context) {
	var req dto.CreateClientRequest
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
// @Summary      List clients
// @Description  Newest first. search matches name, email or phone.
// @Tags         clients
// @Produce      json
// @Param        search query string false "Free-text search"
// @Success      200  {array}  dto.ClientResponse
// @Router       /v1/clients [get]
func (h *ClientsHandler) List(c *gin.Context) {
	var filter dto.ClientFilter
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

// Get GET /v1/clients/:id
func (h *ClientsHandler) Get(c *gin.Context) {
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

// Update godoc
// @Summary      Update a client
// @Description  Only the fields present in the body change.
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        id   path string                  true "Client UUID"
// @Param        body body dto.UpdateClientRequest true "Fields to change"
// @Success      200  {object} dto.ClientResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/clients/{id} [put]
func (h *ClientsHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.UpdateClientRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete DELETE /v1/clients/:id
func (h *ClientsHandler) Delete(c *gin.Context) {
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
