package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/preventix/preventix/internal/api"
	"github.com/preventix/preventix/internal/domain/entities"
	"github.com/preventix/preventix/internal/domain/repositories"
	"github.com/preventix/preventix/internal/pkg/idgen"
	"github.com/preventix/preventix/internal/scoring"
)

// AssessmentService runs risk assessments and serves assessment history
type AssessmentService struct {
	assessmentRepo repositories.AssessmentRepository
}

// NewAssessmentService creates a new assessment service
func NewAssessmentService(assessmentRepo repositories.AssessmentRepository) *AssessmentService {
	return &AssessmentService{assessmentRepo: assessmentRepo}
}

// Evaluate scores the input without persisting anything. It backs report
// generation, where a download must not add a row to the user's history.
func (s *AssessmentService) Evaluate(in api.HealthInput) *api.PredictionResponse {
	return toPrediction(scoring.Score(in))
}

// Run scores the input, persists the assessment for the user, and returns
// the full prediction.
func (s *AssessmentService) Run(ctx context.Context, userID string, in api.HealthInput) (*api.PredictionResponse, *entities.Assessment, error) {
	res := scoring.Score(in)

	snapshot, err := json.Marshal(in)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode input snapshot: %w", err)
	}

	assessment := &entities.Assessment{
		ID:                        idgen.GenerateID(),
		UserID:                    userID,
		Input:                     snapshot,
		DiabetesRisk:              res.DiabetesRisk,
		HypertensionRisk:          res.HypertensionRisk,
		RiskCategoryDiabetes:      res.RiskCategoryDiabetes,
		RiskCategoryHypertension:  res.RiskCategoryHypertension,
		DiabetesConfidence:        res.DiabetesConfidence,
		HypertensionConfidence:    res.HypertensionConfidence,
		MetabolicHealthScore:      res.MetabolicHealthScore,
		CardiovascularHealthScore: res.CardiovascularHealthScore,
		CreatedAt:                 time.Now(),
	}
	if err := s.assessmentRepo.Create(ctx, assessment); err != nil {
		return nil, nil, fmt.Errorf("failed to store assessment: %w", err)
	}

	return toPrediction(res), assessment, nil
}

// Get retrieves one of the user's stored assessments
func (s *AssessmentService) Get(ctx context.Context, userID, id string) (*entities.Assessment, error) {
	return s.assessmentRepo.GetByID(ctx, userID, id)
}

// Recent returns the user's newest assessments as summary rows. Risk values
// are converted from probabilities to percentages.
func (s *AssessmentService) Recent(ctx context.Context, userID string, limit int) ([]api.RecentAssessment, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	rows, err := s.assessmentRepo.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}

	out := make([]api.RecentAssessment, 0, len(rows))
	for _, a := range rows {
		out = append(out, api.RecentAssessment{
			ID:                        a.ID,
			Date:                      a.CreatedAt.Format("2006-01-02"),
			DiabetesRisk:              toPercent(a.DiabetesRisk),
			HypertensionRisk:          toPercent(a.HypertensionRisk),
			MetabolicHealthScore:      a.MetabolicHealthScore,
			CardiovascularHealthScore: a.CardiovascularHealthScore,
			OverallScore:              a.OverallScore(),
			RiskCategoryDiabetes:      a.RiskCategoryDiabetes,
			RiskCategoryHypertension:  a.RiskCategoryHypertension,
		})
	}
	return out, nil
}

// toPercent converts a probability to a percentage rounded to one decimal
func toPercent(p float64) float64 {
	return math.Round(p*1000) / 10
}

func toPrediction(res *scoring.Result) *api.PredictionResponse {
	return &api.PredictionResponse{
		DiabetesRisk:              res.DiabetesRisk,
		HypertensionRisk:          res.HypertensionRisk,
		DiabetesConfidence:        res.DiabetesConfidence,
		HypertensionConfidence:    res.HypertensionConfidence,
		RiskCategoryDiabetes:      res.RiskCategoryDiabetes,
		RiskCategoryHypertension:  res.RiskCategoryHypertension,
		MetabolicHealthScore:      res.MetabolicHealthScore,
		CardiovascularHealthScore: res.CardiovascularHealthScore,
		NutritionRecommendations:  res.NutritionRecommendations,
		FitnessRecommendations:    res.FitnessRecommendations,
		LifestyleRecommendations:  res.LifestyleRecommendations,
		TopDiabetesFactors:        res.TopDiabetesFactors,
		TopHypertensionFactors:    res.TopHypertensionFactors,
	}
}
