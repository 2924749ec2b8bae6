package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"finance/internal/backend"
	"finance/internal/core"
	"finance/internal/summary"
)

func summaryCmd(a *app) *cobra.Command {
	var userID, accountID, from, to string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the period summary as JSON",
		Long: `Summary prints income, expenses and remaining balance for the range
compared with the previous window of equal length, the top expense categories
and the daily series. The range defaults to the last 30 days.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := summary.Query{AccountID: accountID}
			var err error
			if q.From, err = optionalDate("from", from); err != nil {
				return err
			}
			if q.To, err = optionalDate("to", to); err != nil {
				return err
			}

			b, err := backend.New(cmd.Context(), a.cfg, backend.Options{}, a.logger)
			if err != nil {
				return err
			}
			defer b.Close()

			s, err := b.Summary.Summarize(cmd.Context(), userID, q)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user to summarize (required)")
	cmd.Flags().StringVar(&accountID, "account", "", "restrict to one account")
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD (default: 30 days before --to)")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD (default: today)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func optionalDate(flag, v string) (*core.Date, error) {
	if v == "" {
		return nil, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", flag, err)
	}
	return &d, nil
}
