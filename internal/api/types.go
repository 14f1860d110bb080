// Package api defines the wire types shared by the Preventix REST server and
// the Go client. All request and response bodies are JSON.
package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// UserProfile is the public representation of a user account.
type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Age       *int      `json:"age,omitempty"`
	Gender    *string   `json:"gender,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	FullName string  `json:"full_name" validate:"required,min=2"`
	Age      *int    `json:"age,omitempty" validate:"omitempty,gte=18,lte=120"`
	Gender   *string `json:"gender,omitempty"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse is returned by register, login and refresh. RefreshToken is a
// distinct, longer-lived credential; older deployments that omit it fall back
// to using the access token for both roles.
type TokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	TokenType    string      `json:"token_type"`
	User         UserProfile `json:"user"`
}

// UpdateProfileRequest is the body of PUT /auth/me. Nil fields are unchanged.
type UpdateProfileRequest struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,min=2"`
	Age      *int    `json:"age,omitempty" validate:"omitempty,gte=18,lte=120"`
	Gender   *string `json:"gender,omitempty"`
}

// HealthInput is the biometric payload submitted for a risk assessment.
// Ranges mirror the clinically plausible bounds enforced by the backend.
type HealthInput struct {
	// Demographics
	Age    float64 `json:"age" validate:"gte=0,lte=120"`
	Gender float64 `json:"gender" validate:"gte=0,lte=1"` // 0=female, 1=male

	// Vitals and blood markers
	BMI              float64 `json:"bmi" validate:"gte=10,lte=60"`
	BloodPressure    float64 `json:"blood_pressure" validate:"gte=80,lte=200"` // systolic, mmHg
	CholesterolLevel float64 `json:"cholesterol_level" validate:"gte=100,lte=400"`
	GlucoseLevel     float64 `json:"glucose_level" validate:"gte=50,lte=300"` // fasting, mg/dL

	// Lifestyle
	PhysicalActivity float64 `json:"physical_activity" validate:"gte=0,lte=10"`
	SmokingStatus    float64 `json:"smoking_status" validate:"gte=0,lte=2"` // 0=never, 1=former, 2=current
	AlcoholIntake    float64 `json:"alcohol_intake" validate:"gte=0,lte=5"`
	FamilyHistory    float64 `json:"family_history" validate:"gte=0,lte=1"`

	// Optional markers and metrics
	HbA1c        *float64 `json:"hba1c,omitempty" validate:"omitempty,gte=3,lte=15"`
	DailySteps   *float64 `json:"daily_steps,omitempty" validate:"omitempty,gte=0,lte=50000"`
	SleepHours   *float64 `json:"sleep_hours,omitempty" validate:"omitempty,gte=0,lte=12"`
	SleepQuality *float64 `json:"sleep_quality,omitempty" validate:"omitempty,gte=0,lte=10"`
	StressLevel  *float64 `json:"stress_level,omitempty" validate:"omitempty,gte=0,lte=10"`
}

// RiskFactor describes one contributor to a risk score.
type RiskFactor struct {
	Factor      string `json:"factor"`
	Impact      string `json:"impact"` // High, Moderate, Low
	Description string `json:"description"`
}

// PredictionResponse is the result of POST /predict.
type PredictionResponse struct {
	DiabetesRisk             float64 `json:"diabetes_risk"`     // probability, 0..1
	HypertensionRisk         float64 `json:"hypertension_risk"` // probability, 0..1
	DiabetesConfidence       string  `json:"diabetes_confidence"`
	HypertensionConfidence   string  `json:"hypertension_confidence"`
	RiskCategoryDiabetes     string  `json:"risk_category_diabetes"`
	RiskCategoryHypertension string  `json:"risk_category_hypertension"`

	MetabolicHealthScore      float64 `json:"metabolic_health_score"`      // 0..100
	CardiovascularHealthScore float64 `json:"cardiovascular_health_score"` // 0..100

	NutritionRecommendations []string `json:"nutrition_recommendations"`
	FitnessRecommendations   []string `json:"fitness_recommendations"`
	LifestyleRecommendations []string `json:"lifestyle_recommendations"`

	TopDiabetesFactors     []RiskFactor `json:"top_diabetes_factors"`
	TopHypertensionFactors []RiskFactor `json:"top_hypertension_factors"`
}

// RecentAssessment is one row of GET /assessments/recent. Risk values are
// percentages here, not probabilities.
type RecentAssessment struct {
	ID                        string  `json:"id"`
	Date                      string  `json:"date"` // YYYY-MM-DD
	DiabetesRisk              float64 `json:"diabetes_risk"`
	HypertensionRisk          float64 `json:"hypertension_risk"`
	MetabolicHealthScore      float64 `json:"metabolic_health_score"`
	CardiovascularHealthScore float64 `json:"cardiovascular_health_score"`
	OverallScore              float64 `json:"overall_score"`
	RiskCategoryDiabetes      string  `json:"risk_category_diabetes"`
	RiskCategoryHypertension  string  `json:"risk_category_hypertension"`
}

// FieldError is one entry of a 422 validation failure detail.
type FieldError struct {
	Loc []string `json:"loc"`
	Msg string   `json:"msg"`
}

func (f FieldError) String() string {
	return fmt.Sprintf("%s: %s", strings.Join(f.Loc, "."), f.Msg)
}

// ErrorResponse is the generic error envelope: detail is either a plain
// string or a list of field errors (422).
type ErrorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

// Message returns the detail as a plain string, flattening field errors.
func (e *ErrorResponse) Message() string {
	if len(e.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Detail, &s); err == nil {
		return s
	}
	fields := e.FieldErrors()
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.String())
	}
	return strings.Join(parts, "; ")
}

// FieldErrors returns the detail as field errors, or nil when the detail is a
// plain string.
func (e *ErrorResponse) FieldErrors() []FieldError {
	var fields []FieldError
	if err := json.Unmarshal(e.Detail, &fields); err != nil {
		return nil
	}
	return fields
}

// NewErrorDetail builds an ErrorResponse with a string detail.
func NewErrorDetail(msg string) ErrorResponse {
	raw, _ := json.Marshal(msg)
	return ErrorResponse{Detail: raw}
}

// NewFieldErrorDetail builds an ErrorResponse with field-level detail.
func NewFieldErrorDetail(fields []FieldError) ErrorResponse {
	raw, _ := json.Marshal(fields)
	return ErrorResponse{Detail: raw}
}
