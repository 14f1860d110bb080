// Package handlers implements the REST endpoints of the Preventix server.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/preventix/preventix/internal/api"
	"github.com/preventix/preventix/internal/auth"
	"github.com/preventix/preventix/internal/domain/services"
)

// Handler bundles the services behind the REST endpoints
type Handler struct {
	authSvc       *services.AuthService
	assessmentSvc *services.AssessmentService
	jwt           *auth.JWTManager
	validate      *validator.Validate
	log           *slog.Logger
}

// New creates the handler set
func New(authSvc *services.AuthService, assessmentSvc *services.AssessmentService, jwt *auth.JWTManager) *Handler {
	v := validator.New()
	// Report field errors under their JSON names, not Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handler{
		authSvc:       authSvc,
		assessmentSvc: assessmentSvc,
		jwt:           jwt,
		validate:      v,
		log:           slog.Default().With(slog.String("component", "handlers")),
	}
}

// decodeAndValidate parses the JSON body into dst and runs struct validation.
// On failure it writes the error response and returns false.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			h.writeValidationErrors(w, verrs)
			return false
		}
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeJSON writes a JSON response with the given status
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError writes an error envelope with a string detail
func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, api.NewErrorDetail(msg))
}

// writeValidationErrors writes a 422 envelope with field-level detail
func (h *Handler) writeValidationErrors(w http.ResponseWriter, verrs validator.ValidationErrors) {
	fields := make([]api.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, api.FieldError{
			Loc: []string{"body", fe.Field()},
			Msg: validationMessage(fe),
		})
	}
	h.writeJSON(w, http.StatusUnprocessableEntity, api.NewFieldErrorDetail(fields))
}

// validationMessage renders one validation failure as a short human message
func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "email":
		return "value is not a valid email address"
	case "min":
		return "value is too short (minimum " + fe.Param() + ")"
	case "gte":
		return "value must be at least " + fe.Param()
	case "lte":
		return "value must be at most " + fe.Param()
	default:
		return "invalid value"
	}
}
