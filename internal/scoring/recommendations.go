package scoring

import "github.com/preventix/preventix/internal/api"

// recommendations derives nutrition, fitness and lifestyle advice from the
// input and the computed risks. Every list always has at least one entry.
func recommendations(in api.HealthInput, res *Result) (nutrition, fitness, lifestyle []string) {
	// Nutrition
	if in.GlucoseLevel > 100 || (in.HbA1c != nil && *in.HbA1c > 5.7) {
		nutrition = append(nutrition,
			"Limit refined carbohydrates and added sugars; prefer whole grains and legumes",
			"Spread carbohydrate intake evenly across meals to avoid glucose spikes")
	}
	if in.CholesterolLevel > 200 {
		nutrition = append(nutrition,
			"Replace saturated fats with olive oil, nuts and fatty fish")
	}
	if in.BloodPressure > 130 {
		nutrition = append(nutrition,
			"Reduce sodium to under 2300 mg per day; favor a DASH-style diet")
	}
	if in.BMI > 25 {
		nutrition = append(nutrition,
			"Aim for a modest calorie deficit; 5-10% weight loss measurably lowers both risks")
	}
	if len(nutrition) == 0 {
		nutrition = append(nutrition,
			"Maintain your current balanced diet rich in vegetables, fiber and lean protein")
	}

	// Fitness
	switch {
	case in.PhysicalActivity < 3:
		fitness = append(fitness,
			"Start with 20-30 minutes of brisk walking most days",
			"Build up gradually; consistency matters more than intensity")
	case in.PhysicalActivity < 6:
		fitness = append(fitness,
			"Work toward 150 minutes of moderate aerobic activity per week",
			"Add two resistance training sessions per week")
	default:
		fitness = append(fitness,
			"Keep up your current activity level; vary intensity to sustain it")
	}
	if in.DailySteps != nil && *in.DailySteps < 6000 {
		fitness = append(fitness,
			"Increase daily steps toward 8000; short walks after meals blunt glucose peaks")
	}

	// Lifestyle
	if in.SmokingStatus == 2 {
		lifestyle = append(lifestyle,
			"Quitting smoking is the single most effective change for your cardiovascular risk")
	} else if in.SmokingStatus == 1 {
		lifestyle = append(lifestyle,
			"Staying smoke-free continues to lower your residual risk each year")
	}
	if in.AlcoholIntake > 2 {
		lifestyle = append(lifestyle,
			"Reduce alcohol to at most one drink per day")
	}
	if in.StressLevel != nil && *in.StressLevel > 6 {
		lifestyle = append(lifestyle,
			"Practice a daily stress-reduction routine; chronic stress sustains elevated blood pressure")
	}
	if in.SleepHours != nil && *in.SleepHours < 7 {
		lifestyle = append(lifestyle,
			"Target 7-9 hours of sleep; short sleep worsens both glucose control and blood pressure")
	}
	if res.RiskCategoryDiabetes == "High" || res.RiskCategoryDiabetes == "Very High" ||
		res.RiskCategoryHypertension == "High" || res.RiskCategoryHypertension == "Very High" {
		lifestyle = append(lifestyle,
			"Discuss these results with a clinician; screening labs can confirm your risk level")
	}
	if len(lifestyle) == 0 {
		lifestyle = append(lifestyle,
			"Keep annual checkups to track these markers over time")
	}

	return nutrition, fitness, lifestyle
}
