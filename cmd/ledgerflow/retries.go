package main

import (
	"fmt"
	"time"

	"github.com/goliatone/go-ledgerflow/adapters/gocommand"
	"github.com/goliatone/go-ledgerflow/core"
	lfquery "github.com/goliatone/go-ledgerflow/query"
	"github.com/spf13/cobra"
)

func newRetriesCmd(opts *rootOptions) *cobra.Command {
	var (
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "retries",
		Short: "List entries on the SQL retry queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			entries, err := gocommand.Query[lfquery.ListRetriesMessage, []core.RetryEntry](
				cmd.Context(), lfquery.ListRetriesMessage{Status: core.RetryStatus(status), Limit: limit},
			)
			if err != nil {
				return err
			}
			for _, entry := range entries {
				fmt.Fprintf(opts.out, "%s\t%s\t%s\t%s\tattempts=%d\t%s\n",
					entry.ID, entry.Status, entry.Operation, entry.Destination,
					entry.Attempts, entry.UpdatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "filter by status (pending, processing, delivered, failed)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum rows")
	return cmd
}
