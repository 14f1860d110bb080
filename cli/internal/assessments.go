package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newAssessmentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assessments",
		Short: "Browse your assessment history",
	}

	cmd.AddCommand(newAssessmentsRecentCommand())
	cmd.AddCommand(newAssessmentsPDFCommand())

	return cmd
}

func newAssessmentsRecentCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List your most recent assessments",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := getCliContext(cmd)

			rows, err := cliCtx.Client.RecentAssessments(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to list assessments: %w", err)
			}

			if len(rows) == 0 {
				fmt.Println("No assessments yet. Run 'preventix predict' to create one.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tDIABETES\tHYPERTENSION\tOVERALL SCORE")
			for _, row := range rows {
				fmt.Fprintf(w, "%s\t%s\t%.1f%% (%s)\t%.1f%% (%s)\t%.0f\n",
					row.ID,
					row.Date,
					row.DiabetesRisk, row.RiskCategoryDiabetes,
					row.HypertensionRisk, row.RiskCategoryHypertension,
					row.OverallScore,
				)
			}
			w.Flush()

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of assessments to show")

	return cmd
}

func newAssessmentsPDFCommand() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "pdf ASSESSMENT_ID",
		Short: "Download the PDF report for a stored assessment",
		Args:  cobra.ExactArgs(1),
		Example: `  # Download the report for an assessment from 'assessments recent'
  preventix assessments pdf 1234567890 --out my-report.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := getCliContext(cmd)

			pdf, err := cliCtx.Client.AssessmentReportPDF(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("report download failed: %w", err)
			}

			if err := os.WriteFile(outPath, pdf, 0o644); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}

			fmt.Printf("✓ Report written to %s (%d bytes)\n", outPath, len(pdf))
			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "health_report.pdf", "Output file path")

	return cmd
}
