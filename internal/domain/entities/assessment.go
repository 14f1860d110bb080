package entities

import (
	"encoding/json"
	"time"
)

// Assessment is one stored risk evaluation for a user. Risk values are
// probabilities in [0, 1]; health scores are 0 to 100.
type Assessment struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	// Input is the submitted biometric snapshot, kept verbatim so an
	// assessment can be re-rendered or re-scored later.
	Input json.RawMessage `json:"input" db:"input"`

	DiabetesRisk             float64 `json:"diabetes_risk" db:"diabetes_risk"`
	HypertensionRisk         float64 `json:"hypertension_risk" db:"hypertension_risk"`
	RiskCategoryDiabetes     string  `json:"risk_category_diabetes" db:"risk_category_diabetes"`
	RiskCategoryHypertension string  `json:"risk_category_hypertension" db:"risk_category_hypertension"`
	DiabetesConfidence       string  `json:"diabetes_confidence" db:"diabetes_confidence"`
	HypertensionConfidence   string  `json:"hypertension_confidence" db:"hypertension_confidence"`

	MetabolicHealthScore      float64 `json:"metabolic_health_score" db:"metabolic_health_score"`
	CardiovascularHealthScore float64 `json:"cardiovascular_health_score" db:"cardiovascular_health_score"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// OverallScore is the mean of the two health scores
func (a *Assessment) OverallScore() float64 {
	return (a.MetabolicHealthScore + a.CardiovascularHealthScore) / 2
}
