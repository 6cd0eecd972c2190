package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nexconsult/investigacao-api/internal/models"
	"github.com/nexconsult/investigacao-api/internal/providers"
)

var onlyConfigured bool

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List registered providers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var infos []models.ProviderInfo
		if onlyConfigured {
			for _, p := range app.Registry.Configured(ctx) {
				infos = append(infos, providers.Info(ctx, p))
			}
		} else {
			infos = app.Registry.Infos(ctx)
		}

		out := cmd.OutOrStdout()
		if outputJSON {
			if infos == nil {
				infos = []models.ProviderInfo{}
			}
			return printJSON(out, infos)
		}
		if len(infos) == 0 {
			fmt.Fprintln(out, "No providers configured")
			return nil
		}

		rows := make([][]string, 0, len(infos))
		for _, info := range infos {
			types := make([]string, len(info.QueryTypes))
			for i, qt := range info.QueryTypes {
				types[i] = string(qt)
			}
			rows = append(rows, []string{
				string(info.ID), info.Name, string(info.Category), yesNo(info.Configured), strings.Join(types, ","),
			})
		}
		return table(out, []string{"ID", "NAME", "CATEGORY", "CONFIGURED", "QUERIES"}, rows)
	},
}

var rateLimitCmd = &cobra.Command{
	Use:   "rate-limit <provider>",
	Short: "Show current usage against a provider's rate limits",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := app.Registry.Lookup(models.ProviderID(strings.ToUpper(args[0])))
		if err != nil {
			return err
		}

		status := p.RateLimitStatus(cmd.Context())
		out := cmd.OutOrStdout()
		if outputJSON {
			return printJSON(out, status)
		}

		limited := green("ok")
		if status.IsLimited {
			limited = red("limited")
		}
		fmt.Fprintf(out, "%s %s\n", cyan(string(status.Provider)), limited)
		fmt.Fprintf(out, "  minute: %d/%s\n", status.MinuteCount, limitText(status.PerMinuteLimit))
		fmt.Fprintf(out, "  day:    %d/%s\n", status.DayCount, limitText(status.PerDayLimit))
		return nil
	},
}

func limitText(n int) string {
	if n <= 0 {
		return "unlimited"
	}
	return strconv.Itoa(n)
}

func init() {
	providersCmd.Flags().BoolVar(&onlyConfigured, "configured", false, "Only configured and active providers")
	providersCmd.AddCommand(rateLimitCmd)
	rootCmd.AddCommand(providersCmd)
}
