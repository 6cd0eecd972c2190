package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nexconsult/investigacao-api/internal/budget"
	"github.com/nexconsult/investigacao-api/internal/models"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts [provider]",
	Short: "Show budget alerts for all providers or a single one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var (
			alerts []models.BudgetAlert
			err    error
		)
		if len(args) == 1 {
			id := models.ProviderID(strings.ToUpper(args[0]))
			if _, err := app.Registry.Lookup(id); err != nil {
				return err
			}
			alerts, err = app.Budget.AlertsFor(ctx, id)
		} else {
			alerts, err = app.Budget.Alerts(ctx)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if outputJSON {
			return printJSON(out, alerts)
		}
		if len(alerts) == 0 {
			fmt.Fprintln(out, green("No budget alerts"))
			return nil
		}
		for _, a := range alerts {
			fmt.Fprintf(out, "%s %s: %s\n", severityText(a.Severity), a.Provider, a.Message)
		}
		return nil
	},
}

var spendCmd = &cobra.Command{
	Use:   "spend",
	Short: "Show monthly spend per provider",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		spend, err := app.Budget.Spend(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if outputJSON {
			return printJSON(out, map[string]interface{}{
				"providers": spend,
				"total":     budget.Total(spend),
			})
		}

		rows := make([][]string, 0, len(spend))
		for _, s := range spend {
			limit, used := "-", "-"
			if s.Budget.Valid {
				limit = s.Budget.Decimal.StringFixed(2)
			}
			if s.PercentUsed.Valid {
				used = s.PercentUsed.Decimal.String() + "%"
			}
			rows = append(rows, []string{string(s.Provider), s.Spent.StringFixed(2), limit, used, yesNo(s.IsActive)})
		}
		if err := table(out, []string{"PROVIDER", "SPENT", "BUDGET", "USED", "ACTIVE"}, rows); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", bold("Total:"), budget.Total(spend).StringFixed(2))
		return nil
	},
}

var resetBudgetsCmd = &cobra.Command{
	Use:   "reset-budgets",
	Short: "Zero the monthly spend of every provider",
	Long: `Resets the monthly spend counters. Intended to run from a scheduler at
the start of each billing month.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := app.Budget.ResetMonthly(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if outputJSON {
			return printJSON(out, map[string]int64{"reset": n})
		}
		fmt.Fprintf(out, "Reset monthly spend for %d providers\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(alertsCmd, spendCmd, resetBudgetsCmd)
}
