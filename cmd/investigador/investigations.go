package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nexconsult/investigacao-api/internal/models"
	"github.com/nexconsult/investigacao-api/internal/orchestrator"
)

var (
	createName       string
	createDocument   string
	createDepth      string
	createUser       string
	createLegalBasis string

	scanDepth string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new investigation target",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		inv, err := app.Orchestrator.CreateInvestigation(cmd.Context(), orchestrator.NewInvestigation{
			TargetName:     createName,
			TargetDocument: createDocument,
			Depth:          models.DepthTier(strings.ToUpper(createDepth)),
			UserID:         createUser,
			LegalBasis:     createLegalBasis,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if outputJSON {
			return printJSON(out, inv)
		}
		fmt.Fprintf(out, "%s %s\n", cyan("Investigation"), inv.ID)
		fmt.Fprintf(out, "  target: %s (%s %s)\n", inv.TargetName, inv.TargetType, inv.TargetDocument)
		fmt.Fprintf(out, "  depth:  %s\n", inv.Depth)
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan <investigation-id>",
	Short: "Run a full scan and wait for it to finish",
	Long: `Plans every query for the depth tier, executes them in batches and
recomputes the investigation totals. Without --depth the investigation's own
depth is used.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		result, err := app.Orchestrator.RunScan(cmd.Context(), id, models.DepthTier(strings.ToUpper(scanDepth)))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if outputJSON {
			return printJSON(out, result)
		}

		p := result.Progress
		fmt.Fprintf(out, "%s %s %s\n", cyan("Scan"), id, statusText(string(p.Status)))
		fmt.Fprintf(out, "  queries: %d total, %d completed, %d failed\n", p.TotalQueries, p.CompletedQueries, p.FailedQueries)
		inv := result.Investigation
		fmt.Fprintf(out, "  assets:  %s\n  debts:   %s\n  cost:    %s\n",
			inv.TotalAssets.StringFixed(2), inv.TotalDebts.StringFixed(2), inv.TotalCost.StringFixed(4))
		return nil
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry <investigation-id>",
	Short: "Re-execute the failed queries of an investigation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		summary, err := app.Orchestrator.RetryFailedQueries(cmd.Context(), id)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if outputJSON {
			return printJSON(out, summary)
		}
		if summary.Retried == 0 {
			fmt.Fprintln(out, "No failed queries to retry")
			return nil
		}
		fmt.Fprintf(out, "Retried %d queries: %d recovered, %d still failing (status %s)\n",
			summary.Retried, summary.Recovered, summary.StillFailed, statusText(string(summary.Status)))
		return nil
	},
}

var progressCmd = &cobra.Command{
	Use:   "progress <investigation-id>",
	Short: "Show scan progress for an investigation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		p, err := app.Orchestrator.GetProgress(cmd.Context(), id)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if outputJSON {
			return printJSON(out, p)
		}
		fmt.Fprintf(out, "%s %d/%d resolved, %d failed\n", statusText(string(p.Status)), p.Resolved(), p.TotalQueries, p.FailedQueries)
		if p.EstimatedCompletionMs != nil {
			fmt.Fprintf(out, "  eta: %sms\n", strconv.FormatInt(*p.EstimatedCompletionMs, 10))
		}
		return nil
	},
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid investigation id %q: %w", raw, err)
	}
	return id, nil
}

func init() {
	createCmd.Flags().StringVar(&createName, "name", "", "Target name")
	createCmd.Flags().StringVar(&createDocument, "document", "", "CPF or CNPJ, formatted or digits only")
	createCmd.Flags().StringVar(&createDepth, "depth", string(models.DepthBasica), "Depth tier")
	createCmd.Flags().StringVar(&createUser, "user", "cli", "Requesting user recorded in compliance logs")
	createCmd.Flags().StringVar(&createLegalBasis, "legal-basis", "", "Legal basis for the investigation")
	_ = createCmd.MarkFlagRequired("document")

	scanCmd.Flags().StringVar(&scanDepth, "depth", "", "Override the depth tier")

	rootCmd.AddCommand(createCmd, scanCmd, retryCmd, progressCmd)
}
