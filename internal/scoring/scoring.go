// Package scoring computes chronic-disease risk from biometric input with a
// transparent weighted logistic model. Factor weights follow the published
// factor analysis for type 2 diabetes and essential hypertension; the model
// is deterministic so the same input always yields the same assessment.
package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/preventix/preventix/internal/api"
	"github.com/preventix/preventix/internal/pkg/metrics"
)

// Result is a complete risk evaluation for one input snapshot.
type Result struct {
	DiabetesRisk             float64
	HypertensionRisk         float64
	RiskCategoryDiabetes     string
	RiskCategoryHypertension string
	DiabetesConfidence       string
	HypertensionConfidence   string

	MetabolicHealthScore      float64
	CardiovascularHealthScore float64

	NutritionRecommendations []string
	FitnessRecommendations   []string
	LifestyleRecommendations []string

	TopDiabetesFactors     []api.RiskFactor
	TopHypertensionFactors []api.RiskFactor
}

// factor is one weighted model input. value is normalized to [0, 1];
// negative weights are protective.
type factor struct {
	name        string
	weight      float64
	value       float64
	description string
}

func (f factor) contribution() float64 { return f.weight * f.value }

// Score evaluates both risk models for the given input.
func Score(in api.HealthInput) *Result {
	start := time.Now()

	dFactors := diabetesFactors(in)
	hFactors := hypertensionFactors(in)

	dRisk := logistic(dFactors, -2.2)
	hRisk := logistic(hFactors, -2.4)

	res := &Result{
		DiabetesRisk:             round3(dRisk),
		HypertensionRisk:         round3(hRisk),
		RiskCategoryDiabetes:     Category(dRisk),
		RiskCategoryHypertension: Category(hRisk),
		DiabetesConfidence:       confidence(dRisk, diabetesCompleteness(in)),
		HypertensionConfidence:   confidence(hRisk, hypertensionCompleteness(in)),

		MetabolicHealthScore:      metabolicScore(in),
		CardiovascularHealthScore: cardiovascularScore(in),

		TopDiabetesFactors:     topFactors(dFactors, 3),
		TopHypertensionFactors: topFactors(hFactors, 3),
	}
	res.NutritionRecommendations,
		res.FitnessRecommendations,
		res.LifestyleRecommendations = recommendations(in, res)

	metrics.ScoringDuration.WithLabelValues("weighted_logistic").
		Observe(float64(time.Since(start).Milliseconds()))
	metrics.Assessments.WithLabelValues(res.RiskCategoryDiabetes, res.RiskCategoryHypertension).Inc()

	return res
}

// Category maps a risk probability to its named band.
func Category(risk float64) string {
	switch {
	case risk < 0.25:
		return "Low"
	case risk < 0.50:
		return "Moderate"
	case risk < 0.75:
		return "High"
	default:
		return "Very High"
	}
}

func diabetesFactors(in api.HealthInput) []factor {
	f := []factor{
		{"Fasting glucose", 2.8, scale(in.GlucoseLevel, 70, 200), "Elevated fasting glucose is the strongest predictor of type 2 diabetes"},
		{"BMI", 1.6, scale(in.BMI, 18, 45), "Excess body mass drives insulin resistance"},
		{"Age", 1.2, scale(in.Age, 20, 80), "Diabetes incidence rises with age"},
		{"Family history", 0.9, in.FamilyHistory, "A first-degree relative with diabetes roughly doubles risk"},
		{"Smoking", 0.4, scale(in.SmokingStatus, 0, 2), "Smoking worsens insulin sensitivity"},
		{"Physical activity", -1.0, scale(in.PhysicalActivity, 0, 10), "Regular activity improves glucose handling"},
	}
	if in.HbA1c != nil {
		f = append(f, factor{"HbA1c", 2.2, scale(*in.HbA1c, 4, 12), "Glycated hemoglobin reflects three months of glucose exposure"})
	}
	if in.DailySteps != nil {
		f = append(f, factor{"Daily steps", -0.4, scale(*in.DailySteps, 0, 12000), "Step count is a proxy for incidental activity"})
	}
	return f
}

func hypertensionFactors(in api.HealthInput) []factor {
	f := []factor{
		{"Systolic blood pressure", 3.0, scale(in.BloodPressure, 90, 180), "Current blood pressure dominates hypertension risk"},
		{"Age", 1.4, scale(in.Age, 20, 80), "Arterial stiffness increases with age"},
		{"BMI", 1.2, scale(in.BMI, 18, 45), "Excess body mass raises vascular load"},
		{"Cholesterol", 1.0, scale(in.CholesterolLevel, 120, 300), "Atherosclerosis and hypertension share lipid pathways"},
		{"Smoking", 0.6, scale(in.SmokingStatus, 0, 2), "Nicotine acutely and chronically raises blood pressure"},
		{"Alcohol intake", 0.5, scale(in.AlcoholIntake, 0, 5), "Heavy drinking raises blood pressure"},
		{"Physical activity", -0.8, scale(in.PhysicalActivity, 0, 10), "Aerobic exercise lowers resting blood pressure"},
	}
	if in.StressLevel != nil {
		f = append(f, factor{"Stress level", 0.4, scale(*in.StressLevel, 0, 10), "Chronic stress sustains elevated blood pressure"})
	}
	if in.SleepHours != nil {
		// Short sleep is the risk; 7h or more contributes nothing.
		f = append(f, factor{"Sleep duration", 0.4, scale(7-*in.SleepHours, 0, 4), "Short sleep is associated with hypertension"})
	}
	return f
}

func logistic(factors []factor, bias float64) float64 {
	z := bias
	for _, f := range factors {
		z += f.contribution()
	}
	return 1 / (1 + math.Exp(-z))
}

// metabolicScore deducts from 100 for each metabolic red flag.
func metabolicScore(in api.HealthInput) float64 {
	score := 100.0
	switch {
	case in.GlucoseLevel > 126:
		score -= 30
	case in.GlucoseLevel > 100:
		score -= 15
	}
	switch {
	case in.BMI > 35:
		score -= 25
	case in.BMI > 30:
		score -= 15
	case in.BMI > 25:
		score -= 8
	}
	if in.HbA1c != nil {
		switch {
		case *in.HbA1c > 6.5:
			score -= 20
		case *in.HbA1c > 5.7:
			score -= 10
		}
	}
	return math.Max(score, 0)
}

// cardiovascularScore deducts from 100 for each cardiovascular red flag.
func cardiovascularScore(in api.HealthInput) float64 {
	score := 100.0
	switch {
	case in.BloodPressure > 140:
		score -= 25
	case in.BloodPressure > 130:
		score -= 15
	case in.BloodPressure > 120:
		score -= 8
	}
	switch {
	case in.CholesterolLevel > 240:
		score -= 20
	case in.CholesterolLevel > 200:
		score -= 10
	}
	switch {
	case in.PhysicalActivity < 3:
		score -= 15
	case in.PhysicalActivity < 5:
		score -= 8
	}
	switch {
	case in.SmokingStatus == 2:
		score -= 20
	case in.SmokingStatus == 1:
		score -= 5
	}
	return math.Max(score, 0)
}

// confidence grades how decisive a prediction is. Probabilities near either
// extreme are easier to trust; missing optional markers degrade the grade.
func confidence(risk, completeness float64) string {
	grade := 0 // 0=Low 1=Moderate 2=High
	switch {
	case risk < 0.2 || risk > 0.8:
		grade = 2
	case risk < 0.35 || risk > 0.65:
		grade = 1
	}
	if completeness < 0.5 && grade > 0 {
		grade--
	}
	switch grade {
	case 2:
		return "High"
	case 1:
		return "Moderate"
	default:
		return "Low"
	}
}

func diabetesCompleteness(in api.HealthInput) float64 {
	present, total := 0.0, 2.0
	if in.HbA1c != nil {
		present++
	}
	if in.DailySteps != nil {
		present++
	}
	return present / total
}

func hypertensionCompleteness(in api.HealthInput) float64 {
	present, total := 0.0, 3.0
	if in.StressLevel != nil {
		present++
	}
	if in.SleepHours != nil {
		present++
	}
	if in.SleepQuality != nil {
		present++
	}
	return present / total
}

// topFactors returns the n largest positive contributors, strongest first.
func topFactors(factors []factor, n int) []api.RiskFactor {
	sorted := make([]factor, len(factors))
	copy(sorted, factors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].contribution() > sorted[j].contribution()
	})

	out := make([]api.RiskFactor, 0, n)
	for _, f := range sorted {
		c := f.contribution()
		if c <= 0 || len(out) == n {
			break
		}
		impact := "Low"
		switch {
		case c >= 1.0:
			impact = "High"
		case c >= 0.5:
			impact = "Moderate"
		}
		out = append(out, api.RiskFactor{
			Factor:      f.name,
			Impact:      impact,
			Description: f.description,
		})
	}
	return out
}

// scale normalizes v onto [0, 1] between lo and hi, clamping outside values.
func scale(v, lo, hi float64) float64 {
	if v <= lo {
		return 0
	}
	if v >= hi {
		return 1
	}
	return (v - lo) / (hi - lo)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
