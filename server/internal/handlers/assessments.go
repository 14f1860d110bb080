package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/preventix/preventix/internal/api"
	"github.com/preventix/preventix/internal/auth"
	"github.com/preventix/preventix/internal/domain/repositories"
	"github.com/preventix/preventix/internal/report"
)

// Predict handles POST /predict. The assessment is persisted before the
// response is written.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	var in api.HealthInput
	if !h.decodeAndValidate(w, r, &in) {
		return
	}

	pred, stored, err := h.assessmentSvc.Run(r.Context(), userCtx.UserID, in)
	if err != nil {
		h.log.Error("assessment failed",
			slog.String("user_id", userCtx.UserID),
			slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "assessment failed")
		return
	}

	h.log.Info("assessment stored",
		slog.String("user_id", userCtx.UserID),
		slog.String("assessment_id", stored.ID),
		slog.String("diabetes_category", stored.RiskCategoryDiabetes),
		slog.String("hypertension_category", stored.RiskCategoryHypertension))
	h.writeJSON(w, http.StatusOK, pred)
}

// RecentAssessments handles GET /assessments/recent
func (h *Handler) RecentAssessments(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
	}

	rows, err := h.assessmentSvc.Recent(r.Context(), userCtx.UserID, limit)
	if err != nil {
		h.log.Error("listing assessments failed",
			slog.String("user_id", userCtx.UserID),
			slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "failed to list assessments")
		return
	}

	h.writeJSON(w, http.StatusOK, rows)
}

// PredictPDF handles POST /predict/current-pdf. It scores the input and
// streams the rendered report without saving anything; a download must not
// show up in the user's assessment history.
func (h *Handler) PredictPDF(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	var in api.HealthInput
	if !h.decodeAndValidate(w, r, &in) {
		return
	}

	pred := h.assessmentSvc.Evaluate(in)
	h.writePDF(r.Context(), w, userCtx.UserID, pred, "health_report.pdf")
}

// AssessmentPDF handles GET /assessments/{id}/pdf. It re-scores the stored
// input snapshot and streams the rendered report.
func (h *Handler) AssessmentPDF(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	id := mux.Vars(r)["id"]
	assessment, err := h.assessmentSvc.Get(r.Context(), userCtx.UserID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrAssessmentNotFound) {
			h.writeError(w, http.StatusNotFound, "assessment not found")
			return
		}
		h.log.Error("loading assessment failed",
			slog.String("user_id", userCtx.UserID),
			slog.String("assessment_id", id),
			slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "failed to load assessment")
		return
	}

	var in api.HealthInput
	if err := json.Unmarshal(assessment.Input, &in); err != nil {
		h.log.Error("stored input snapshot is unreadable",
			slog.String("assessment_id", id),
			slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "failed to load assessment")
		return
	}

	pred := h.assessmentSvc.Evaluate(in)
	h.writePDF(r.Context(), w, userCtx.UserID, pred, "health_report_"+id+".pdf")
}

// writePDF renders the prediction as a PDF and streams it as a download
func (h *Handler) writePDF(ctx context.Context, w http.ResponseWriter, userID string, pred *api.PredictionResponse, filename string) {
	var profile *api.UserProfile
	if user, err := h.authSvc.GetUser(ctx, userID); err == nil {
		p := toUserProfile(user)
		profile = &p
	}

	pdf, err := report.GeneratePDF(profile, pred, time.Now())
	if err != nil {
		h.log.Error("pdf generation failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "report generation failed")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		h.log.Warn("failed to write pdf response", slog.String("error", err.Error()))
	}
}
