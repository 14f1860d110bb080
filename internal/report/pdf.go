// Package report renders risk assessments as PDF documents.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/preventix/preventix/internal/api"
	"github.com/preventix/preventix/internal/pkg/metrics"
)

// GeneratePDF renders the prediction as a one-page report for the given user.
func GeneratePDF(user *api.UserProfile, pred *api.PredictionResponse, generatedAt time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Preventix Health Risk Report", false)
	pdf.AddPage()

	// Title block
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Preventix Health Risk Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(110, 110, 110)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s", generatedAt.Format("January 2, 2006 15:04")), "", 1, "C", false, 0, "")
	if user != nil {
		pdf.CellFormat(0, 6, fmt.Sprintf("Prepared for %s (%s)", user.FullName, user.Email), "", 1, "C", false, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	// Risk summary table
	sectionTitle(pdf, "Risk Summary")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(60, 8, "Condition", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 8, "Risk", "1", 0, "C", true, 0, "")
	pdf.CellFormat(45, 8, "Category", "1", 0, "C", true, 0, "")
	pdf.CellFormat(45, 8, "Confidence", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	riskRow(pdf, "Type 2 Diabetes", pred.DiabetesRisk, pred.RiskCategoryDiabetes, pred.DiabetesConfidence)
	riskRow(pdf, "Hypertension", pred.HypertensionRisk, pred.RiskCategoryHypertension, pred.HypertensionConfidence)
	pdf.Ln(4)

	// Health scores
	sectionTitle(pdf, "Health Scores")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Metabolic health: %.0f / 100", pred.MetabolicHealthScore), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Cardiovascular health: %.0f / 100", pred.CardiovascularHealthScore), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// Contributing factors
	if len(pred.TopDiabetesFactors) > 0 || len(pred.TopHypertensionFactors) > 0 {
		sectionTitle(pdf, "Key Risk Factors")
		factorList(pdf, "Diabetes", pred.TopDiabetesFactors)
		factorList(pdf, "Hypertension", pred.TopHypertensionFactors)
		pdf.Ln(2)
	}

	// Recommendations
	sectionTitle(pdf, "Recommendations")
	bulletList(pdf, "Nutrition", pred.NutritionRecommendations)
	bulletList(pdf, "Fitness", pred.FitnessRecommendations)
	bulletList(pdf, "Lifestyle", pred.LifestyleRecommendations)

	// Footer disclaimer
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(110, 110, 110)
	pdf.MultiCell(0, 4, "This report is generated from a statistical risk model and is not a medical diagnosis. Discuss the results with a qualified clinician.", "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		metrics.ReportsGenerated.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	metrics.ReportsGenerated.WithLabelValues("success").Inc()
	return buf.Bytes(), nil
}

func sectionTitle(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
}

func riskRow(pdf *fpdf.Fpdf, name string, risk float64, category, confidence string) {
	pdf.CellFormat(60, 8, name, "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, fmt.Sprintf("%.1f%%", risk*100), "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 8, category, "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 8, confidence, "1", 1, "C", false, 0, "")
}

func factorList(pdf *fpdf.Fpdf, label string, factors []api.RiskFactor) {
	if len(factors) == 0 {
		return
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, label, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, f := range factors {
		pdf.MultiCell(0, 5, fmt.Sprintf("  - %s (%s impact): %s", f.Factor, f.Impact, f.Description), "", "L", false)
	}
}

func bulletList(pdf *fpdf.Fpdf, label string, items []string) {
	if len(items) == 0 {
		return
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, label, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, item := range items {
		pdf.MultiCell(0, 5, "  - "+item, "", "L", false)
	}
}
