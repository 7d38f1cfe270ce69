package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func analyzeCmd(opts *rootOptions) *cobra.Command {
	var (
		pitchID      string
		outputFile   string
		documentsDir string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one pitch and write the report as JSON",
		Example: `  pitch-analyzer analyze --pitch-id 64f1c2 --output report.json
  pitch-analyzer analyze --pitch-id acme --documents ./decks --output -`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := opts.setup(ctx, documentsDir)
			if err != nil {
				return err
			}
			defer rt.close()

			run, err := rt.orch.Run(ctx, pitchID)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", pitchID, err)
			}

			data, err := json.MarshalIndent(run.Output, "", "  ")
			if err != nil {
				return fmt.Errorf("encode report: %w", err)
			}

			if outputFile == "-" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			if err := os.WriteFile(outputFile, data, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}

			rt.log.Info("Report written", map[string]interface{}{
				"pitchId":  pitchID,
				"runId":    run.RunID,
				"output":   outputFile,
				"degraded": run.Degraded,
				"warnings": len(run.Warnings),
				"duration": run.Duration.String(),
			})
			fmt.Fprintf(cmd.OutOrStdout(), "Report for %s written to %s (IRS %d, CS %d)\n",
				pitchID, outputFile, run.Report.FinalIRSScore, run.Report.FinalCSScore)
			return nil
		},
	}

	cmd.Flags().StringVar(&pitchID, "pitch-id", "", "id of the pitch document to analyze")
	cmd.Flags().StringVar(&outputFile, "output", "output.json", `report path, or "-" for stdout`)
	cmd.Flags().StringVar(&documentsDir, "documents", "", "read <id>.json pitch documents from this directory instead of the document store")
	_ = cmd.MarkFlagRequired("pitch-id")
	return cmd
}
