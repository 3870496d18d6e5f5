package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/readiness-agent/internal/pipeline"
)

var (
	processID         string
	processLatest     bool
	processPending    bool
	processConfigPath string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the pipeline once from the command line",
	Long:  `Process assessments without starting the server: a single record by id, the most recent record, or every record still awaiting analysis.`,
	RunE:  runProcess,
}

func init() {
	processCmd.Flags().StringVar(&processID, "id", "", "Assessment id to process")
	processCmd.Flags().BoolVar(&processLatest, "latest", false, "Process the most recently created assessment")
	processCmd.Flags().BoolVar(&processPending, "pending", false, "Process all assessments awaiting analysis")
	processCmd.Flags().StringVar(&processConfigPath, "config", "", "Path to JSON config file")
	rootCmd.AddCommand(processCmd)
}

func runProcess(_ *cobra.Command, _ []string) error {
	selected := 0
	for _, on := range []bool{processID != "", processLatest, processPending} {
		if on {
			selected++
		}
	}
	if selected != 1 {
		return fmt.Errorf("exactly one of --id, --latest or --pending is required")
	}

	cfg, err := resolveConfig(processConfigPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer a.close()

	switch {
	case processPending:
		summary, err := a.processor.ProcessPending(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Processed %d assessments, %d successful\n", summary.Processed, summary.Successful)
		for _, r := range summary.Results {
			fmt.Printf("  %s  %-30s %s\n", r.ID, r.Company, r.Status)
		}
		return nil

	case processLatest:
		res, latest, err := a.processor.ProcessLatest(ctx)
		if err != nil {
			return err
		}
		if latest == nil {
			return fmt.Errorf("no assessments found")
		}
		return reportResult(res, latest.ID.String())

	default:
		id, err := uuid.Parse(processID)
		if err != nil {
			return fmt.Errorf("invalid assessment id %q: %w", processID, err)
		}
		return reportResult(a.processor.ProcessOne(ctx, id), processID)
	}
}

func reportResult(res pipeline.Result, id string) error {
	switch res.Outcome {
	case pipeline.Succeeded:
		if res.DeliveryPending {
			fmt.Printf("Assessment %s processed, email delivery pending\n", id)
		} else {
			fmt.Printf("Assessment %s processed and report delivered\n", id)
		}
		return nil
	case pipeline.AlreadyComplete:
		fmt.Printf("Assessment %s already processed\n", id)
		return nil
	case pipeline.NotFound:
		return fmt.Errorf("assessment %s not found", id)
	default:
		return fmt.Errorf("processing failed at stage %q: %w", res.Stage, res.Err)
	}
}
