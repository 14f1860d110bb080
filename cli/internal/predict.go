package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/preventix/preventix/internal/api"
)

// healthInputFlags collects the biometric flags shared by predict and report
type healthInputFlags struct {
	age              float64
	gender           string
	bmi              float64
	bloodPressure    float64
	cholesterol      float64
	glucose          float64
	physicalActivity float64
	smokingStatus    string
	alcoholIntake    float64
	familyHistory    bool

	hba1c        float64
	dailySteps   float64
	sleepHours   float64
	sleepQuality float64
	stressLevel  float64
}

func (f *healthInputFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.age, "age", 0, "Age in years (required)")
	cmd.Flags().StringVar(&f.gender, "gender", "female", "Gender (female, male)")
	cmd.Flags().Float64Var(&f.bmi, "bmi", 0, "Body mass index (required)")
	cmd.Flags().Float64Var(&f.bloodPressure, "blood-pressure", 0, "Systolic blood pressure in mmHg (required)")
	cmd.Flags().Float64Var(&f.cholesterol, "cholesterol", 0, "Total cholesterol in mg/dL (required)")
	cmd.Flags().Float64Var(&f.glucose, "glucose", 0, "Fasting glucose in mg/dL (required)")
	cmd.Flags().Float64Var(&f.physicalActivity, "activity", 0, "Physical activity, hours per week")
	cmd.Flags().StringVar(&f.smokingStatus, "smoking", "never", "Smoking status (never, former, current)")
	cmd.Flags().Float64Var(&f.alcoholIntake, "alcohol", 0, "Alcohol intake, drinks per day")
	cmd.Flags().BoolVar(&f.familyHistory, "family-history", false, "Family history of diabetes or hypertension")

	cmd.Flags().Float64Var(&f.hba1c, "hba1c", 0, "HbA1c percentage (optional)")
	cmd.Flags().Float64Var(&f.dailySteps, "steps", 0, "Average daily steps (optional)")
	cmd.Flags().Float64Var(&f.sleepHours, "sleep-hours", 0, "Average sleep per night, hours (optional)")
	cmd.Flags().Float64Var(&f.sleepQuality, "sleep-quality", 0, "Sleep quality, 0-10 (optional)")
	cmd.Flags().Float64Var(&f.stressLevel, "stress", 0, "Stress level, 0-10 (optional)")

	cmd.MarkFlagRequired("age")
	cmd.MarkFlagRequired("bmi")
	cmd.MarkFlagRequired("blood-pressure")
	cmd.MarkFlagRequired("cholesterol")
	cmd.MarkFlagRequired("glucose")
}

// toInput converts the flags to the API payload. Optional markers are included
// only when their flag was set.
func (f *healthInputFlags) toInput(cmd *cobra.Command) (api.HealthInput, error) {
	in := api.HealthInput{
		Age:              f.age,
		BMI:              f.bmi,
		BloodPressure:    f.bloodPressure,
		CholesterolLevel: f.cholesterol,
		GlucoseLevel:     f.glucose,
		PhysicalActivity: f.physicalActivity,
		AlcoholIntake:    f.alcoholIntake,
	}

	switch strings.ToLower(f.gender) {
	case "female", "f":
		in.Gender = 0
	case "male", "m":
		in.Gender = 1
	default:
		return in, fmt.Errorf("invalid gender %q (must be female or male)", f.gender)
	}

	switch strings.ToLower(f.smokingStatus) {
	case "never":
		in.SmokingStatus = 0
	case "former":
		in.SmokingStatus = 1
	case "current":
		in.SmokingStatus = 2
	default:
		return in, fmt.Errorf("invalid smoking status %q (must be never, former or current)", f.smokingStatus)
	}

	if f.familyHistory {
		in.FamilyHistory = 1
	}

	if cmd.Flags().Changed("hba1c") {
		in.HbA1c = &f.hba1c
	}
	if cmd.Flags().Changed("steps") {
		in.DailySteps = &f.dailySteps
	}
	if cmd.Flags().Changed("sleep-hours") {
		in.SleepHours = &f.sleepHours
	}
	if cmd.Flags().Changed("sleep-quality") {
		in.SleepQuality = &f.sleepQuality
	}
	if cmd.Flags().Changed("stress") {
		in.StressLevel = &f.stressLevel
	}

	return in, nil
}

func newPredictCommand() *cobra.Command {
	var flags healthInputFlags

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Run a health risk assessment",
		Long:  `Submit biometrics to the server and display the diabetes and hypertension risk assessment. The assessment is stored in your history.`,
		Example: `  # Run an assessment with the core markers
  preventix predict --age 45 --bmi 27 --blood-pressure 125 --cholesterol 195 --glucose 98 --activity 4

  # Include optional lab results
  preventix predict --age 45 --bmi 27 --blood-pressure 125 --cholesterol 195 --glucose 98 --hba1c 5.4 --steps 8000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := getCliContext(cmd)

			in, err := flags.toInput(cmd)
			if err != nil {
				return err
			}

			pred, err := cliCtx.Client.Predict(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("assessment failed: %w", err)
			}

			return printMarkdown(predictionMarkdown(pred))
		},
	}

	flags.register(cmd)
	return cmd
}

// predictionMarkdown renders a prediction as a markdown document
func predictionMarkdown(pred *api.PredictionResponse) string {
	var b strings.Builder

	b.WriteString("# Health Risk Assessment\n\n")
	b.WriteString("## Risk Summary\n\n")
	b.WriteString("| Condition | Risk | Category | Confidence |\n")
	b.WriteString("|-----------|------|----------|------------|\n")
	fmt.Fprintf(&b, "| Diabetes | %.1f%% | %s | %s |\n",
		pred.DiabetesRisk*100, pred.RiskCategoryDiabetes, pred.DiabetesConfidence)
	fmt.Fprintf(&b, "| Hypertension | %.1f%% | %s | %s |\n\n",
		pred.HypertensionRisk*100, pred.RiskCategoryHypertension, pred.HypertensionConfidence)

	b.WriteString("## Health Scores\n\n")
	fmt.Fprintf(&b, "- Metabolic health: **%.0f / 100**\n", pred.MetabolicHealthScore)
	fmt.Fprintf(&b, "- Cardiovascular health: **%.0f / 100**\n\n", pred.CardiovascularHealthScore)

	if len(pred.TopDiabetesFactors) > 0 {
		b.WriteString("## Key Diabetes Factors\n\n")
		for _, f := range pred.TopDiabetesFactors {
			fmt.Fprintf(&b, "- **%s** (%s impact): %s\n", f.Factor, f.Impact, f.Description)
		}
		b.WriteString("\n")
	}
	if len(pred.TopHypertensionFactors) > 0 {
		b.WriteString("## Key Hypertension Factors\n\n")
		for _, f := range pred.TopHypertensionFactors {
			fmt.Fprintf(&b, "- **%s** (%s impact): %s\n", f.Factor, f.Impact, f.Description)
		}
		b.WriteString("\n")
	}

	writeRecommendations(&b, "Nutrition", pred.NutritionRecommendations)
	writeRecommendations(&b, "Fitness", pred.FitnessRecommendations)
	writeRecommendations(&b, "Lifestyle", pred.LifestyleRecommendations)

	return b.String()
}

func writeRecommendations(b *strings.Builder, title string, recs []string) {
	if len(recs) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s Recommendations\n\n", title)
	for _, r := range recs {
		fmt.Fprintf(b, "- %s\n", r)
	}
	b.WriteString("\n")
}
