package main

import (
	"fmt"
	"time"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-ledgerflow/adapters/gocommand"
	lfcommand "github.com/goliatone/go-ledgerflow/command"
	"github.com/goliatone/go-ledgerflow/core"
	lfquery "github.com/goliatone/go-ledgerflow/query"
	"github.com/spf13/cobra"
)

func newAccountCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage caller state and inspect submission history",
	}
	cmd.AddCommand(newAccountStateCmd(opts, "suspend", "Suspend a caller", true))
	cmd.AddCommand(newAccountStateCmd(opts, "activate", "Lift a caller's suspension", false))
	cmd.AddCommand(newAccountSubmissionsCmd(opts))
	return cmd
}

func newAccountStateCmd(opts *rootOptions, use string, short string, suspended bool) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   use + " <principal>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := core.ParsePrincipal(args[0])
			if err != nil {
				return err
			}
			rt, err := newRuntime(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			collector := gocmd.NewResult[core.AccountState]()
			ctx := gocmd.ContextWithResult(cmd.Context(), collector)
			if err := gocommand.Dispatch(ctx, lfcommand.SetAccountStateMessage{
				User:      user,
				Suspended: suspended,
				Reason:    reason,
			}); err != nil {
				return err
			}
			state, _ := collector.Load()
			fmt.Fprintf(opts.out, "%s suspended=%t updated_at=%s\n",
				state.User, state.Suspended, state.UpdatedAt.Format(time.RFC3339))
			return nil
		},
	}
	if suspended {
		cmd.Flags().StringVar(&reason, "reason", "", "why the caller is suspended")
		_ = cmd.MarkFlagRequired("reason")
	}
	return cmd
}

func newAccountSubmissionsCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "submissions <principal>",
		Short: "List a caller's proposal submissions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := core.ParsePrincipal(args[0])
			if err != nil {
				return err
			}
			rt, err := newRuntime(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			records, err := gocommand.Query[lfquery.ListSubmissionsMessage, []core.SubmissionRecord](
				cmd.Context(), lfquery.ListSubmissionsMessage{Caller: caller, Limit: limit},
			)
			if err != nil {
				return err
			}
			for _, record := range records {
				fmt.Fprintf(opts.out, "%s\t%s\t%s\t%s\n",
					record.CreatedAt.Format(time.RFC3339), record.Status, record.Title, record.Message)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum rows, defaults to 50")
	return cmd
}
