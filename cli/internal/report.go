package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newReportCommand() *cobra.Command {
	var (
		flags   healthInputFlags
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a PDF health report",
		Long:  `Score your biometrics and download the rendered PDF report. Unlike 'predict', nothing is added to your assessment history.`,
		Example: `  # Write the report to the default file
  preventix report --age 45 --bmi 27 --blood-pressure 125 --cholesterol 195 --glucose 98 --out my-report.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := getCliContext(cmd)

			in, err := flags.toInput(cmd)
			if err != nil {
				return err
			}

			pdf, err := cliCtx.Client.PredictReportPDF(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("report generation failed: %w", err)
			}

			if err := os.WriteFile(outPath, pdf, 0o644); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}

			fmt.Printf("✓ Report written to %s (%d bytes)\n", outPath, len(pdf))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&outPath, "out", "health_report.pdf", "Output file path")

	return cmd
}
