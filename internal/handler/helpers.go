package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"invoicing/internal/apierror"
	"invoicing/internal/billing"
	"invoicing/internal/middleware"
	"invoicing/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Amounts go out as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true

	// Decimal-backed fields validate as float64 so min/max/gt tags apply.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		switch v := field.Interface().(type) {
		case decimal.Decimal:
			return v.InexactFloat64()
		case billing.Lenient:
			return v.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{}, billing.Lenient{})

	// Report fields under their JSON/query names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			if name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]; name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

func runValidation(c *gin.Context, req interface{}) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		// drop the root struct name: "items[0].quantity"
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		fields[ns] = fe.Tag()
	}
	c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
	return false
}

// parseID reads the :id path parameter. Writes a 400 and returns false when
// it is not a UUID.
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps service sentinels to HTTP statuses. Anything
// unrecognised is logged and answered with a bare 500.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvoiceNotFound), errors.Is(err, service.ErrClientNotFound):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case errors.Is(err, service.ErrDuplicateNumber):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.Is(err, service.ErrNegativeTotal):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
	case errors.Is(err, service.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
	case errors.Is(err, service.ErrQueueUnavailable):
		c.JSON(http.StatusServiceUnavailable, apierror.New(service.ErrQueueUnavailable.Error()))
	default:
		log.Error().Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Msg("unhandled service error")
		c.JSON(http.StatusInternalServerError, apierror.New("internal server error"))
	}
}
