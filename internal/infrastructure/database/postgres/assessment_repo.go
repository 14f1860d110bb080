package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/preventix/preventix/internal/domain/entities"
	"github.com/preventix/preventix/internal/domain/repositories"
	"github.com/preventix/preventix/internal/pkg/idgen"
	"github.com/preventix/preventix/internal/pkg/metrics"
)

// AssessmentRepository implements the AssessmentRepository interface for PostgreSQL
type AssessmentRepository struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewAssessmentRepository creates a new PostgreSQL assessment repository
func NewAssessmentRepository(db *sqlx.DB) repositories.AssessmentRepository {
	return &AssessmentRepository{
		db:  db,
		log: slog.Default().With(slog.String("repo", "assessment")),
	}
}

// assessmentRow represents an assessment as stored in the database
type assessmentRow struct {
	ID                        string    `db:"id"`
	UserID                    string    `db:"user_id"`
	Input                     []byte    `db:"input"`
	DiabetesRisk              float64   `db:"diabetes_risk"`
	HypertensionRisk          float64   `db:"hypertension_risk"`
	RiskCategoryDiabetes      string    `db:"risk_category_diabetes"`
	RiskCategoryHypertension  string    `db:"risk_category_hypertension"`
	DiabetesConfidence        string    `db:"diabetes_confidence"`
	HypertensionConfidence    string    `db:"hypertension_confidence"`
	MetabolicHealthScore      float64   `db:"metabolic_health_score"`
	CardiovascularHealthScore float64   `db:"cardiovascular_health_score"`
	CreatedAt                 time.Time `db:"created_at"`
}

// toEntity converts an assessmentRow to a domain entity
func (r *assessmentRow) toEntity() *entities.Assessment {
	return &entities.Assessment{
		ID:                        r.ID,
		UserID:                    r.UserID,
		Input:                     json.RawMessage(r.Input),
		DiabetesRisk:              r.DiabetesRisk,
		HypertensionRisk:          r.HypertensionRisk,
		RiskCategoryDiabetes:      r.RiskCategoryDiabetes,
		RiskCategoryHypertension:  r.RiskCategoryHypertension,
		DiabetesConfidence:        r.DiabetesConfidence,
		HypertensionConfidence:    r.HypertensionConfidence,
		MetabolicHealthScore:      r.MetabolicHealthScore,
		CardiovascularHealthScore: r.CardiovascularHealthScore,
		CreatedAt:                 r.CreatedAt,
	}
}

// assessmentRowFromEntity converts a domain entity to an assessmentRow
func assessmentRowFromEntity(a *entities.Assessment) *assessmentRow {
	return &assessmentRow{
		ID:                        a.ID,
		UserID:                    a.UserID,
		Input:                     []byte(a.Input),
		DiabetesRisk:              a.DiabetesRisk,
		HypertensionRisk:          a.HypertensionRisk,
		RiskCategoryDiabetes:      a.RiskCategoryDiabetes,
		RiskCategoryHypertension:  a.RiskCategoryHypertension,
		DiabetesConfidence:        a.DiabetesConfidence,
		HypertensionConfidence:    a.HypertensionConfidence,
		MetabolicHealthScore:      a.MetabolicHealthScore,
		CardiovascularHealthScore: a.CardiovascularHealthScore,
		CreatedAt:                 a.CreatedAt,
	}
}

// Create stores a new assessment
func (r *AssessmentRepository) Create(ctx context.Context, assessment *entities.Assessment) error {
	start := time.Now()
	var err error
	defer func() {
		metrics.RecordDBOperation("assessment", "create", time.Since(start), 1, err)
	}()

	if assessment.ID == "" {
		assessment.ID = idgen.GenerateID()
	}

	r.log.Debug("creating assessment",
		slog.String("id", assessment.ID),
		slog.String("user_id", assessment.UserID))

	row := assessmentRowFromEntity(assessment)

	query := `INSERT INTO assessments (
			id, user_id, input, diabetes_risk, hypertension_risk,
			risk_category_diabetes, risk_category_hypertension,
			diabetes_confidence, hypertension_confidence,
			metabolic_health_score, cardiovascular_health_score, created_at
		) VALUES (
			:id, :user_id, :input, :diabetes_risk, :hypertension_risk,
			:risk_category_diabetes, :risk_category_hypertension,
			:diabetes_confidence, :hypertension_confidence,
			:metabolic_health_score, :cardiovascular_health_score, :created_at
		)`

	_, err = r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}

	return nil
}

// GetByID retrieves an assessment owned by the given user
func (r *AssessmentRepository) GetByID(ctx context.Context, userID, id string) (*entities.Assessment, error) {
	start := time.Now()
	var err error
	var rowCount int64
	defer func() {
		metrics.RecordDBOperation("assessment", "get_by_id", time.Since(start), rowCount, err)
	}()

	var row assessmentRow
	query := `
		SELECT id, user_id, input, diabetes_risk, hypertension_risk,
		       risk_category_diabetes, risk_category_hypertension,
		       diabetes_confidence, hypertension_confidence,
		       metabolic_health_score, cardiovascular_health_score, created_at
		FROM assessments
		WHERE id = $1 AND user_id = $2`

	err = r.db.GetContext(ctx, &row, query, id, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			err = repositories.ErrAssessmentNotFound
			return nil, err
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	rowCount = 1
	return row.toEntity(), nil
}

// ListRecent returns a user's newest assessments, newest first
func (r *AssessmentRepository) ListRecent(ctx context.Context, userID string, limit int) ([]*entities.Assessment, error) {
	start := time.Now()
	var err error
	var rowCount int64
	defer func() {
		metrics.RecordDBOperation("assessment", "list_recent", time.Since(start), rowCount, err)
	}()

	var rows []assessmentRow
	query := `
		SELECT id, user_id, input, diabetes_risk, hypertension_risk,
		       risk_category_diabetes, risk_category_hypertension,
		       diabetes_confidence, hypertension_confidence,
		       metabolic_health_score, cardiovascular_health_score, created_at
		FROM assessments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	err = r.db.SelectContext(ctx, &rows, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}

	rowCount = int64(len(rows))
	out := make([]*entities.Assessment, len(rows))
	for i := range rows {
		out[i] = rows[i].toEntity()
	}
	return out, nil
}
