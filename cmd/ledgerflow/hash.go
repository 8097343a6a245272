package main

import (
	"fmt"

	"github.com/goliatone/go-ledgerflow/core"
	"github.com/spf13/cobra"
)

type hashOptions struct {
	sender         string
	to             string
	toAccount      string
	fromSubaccount string
	amount         uint64
	fee            uint64
	memo           uint64
	createdAt      uint64
}

func newHashCmd(opts *rootOptions) *cobra.Command {
	hashOpts := hashOptions{}
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Compute the hash of a legacy ledger transfer",
		Long: `Compute the hash of a legacy ledger transfer as the ledger records it.

The recipient is either a principal (--to), whose default account is used,
or a hex account identifier (--to-account).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sender, args, err := hashOpts.transferArgs()
			if err != nil {
				return err
			}
			hash, err := core.CalculateTransactionHash(sender, args)
			if err != nil {
				return err
			}
			fmt.Fprintln(opts.out, hash.String())
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&hashOpts.sender, "sender", "", "sending principal")
	flags.StringVar(&hashOpts.to, "to", "", "recipient principal")
	flags.StringVar(&hashOpts.toAccount, "to-account", "", "recipient account identifier (hex)")
	flags.StringVar(&hashOpts.fromSubaccount, "from-subaccount", "", "sending subaccount (hex)")
	flags.Uint64Var(&hashOpts.amount, "amount", 0, "amount in e8s")
	flags.Uint64Var(&hashOpts.fee, "fee", uint64(core.DefaultLegacyFee), "fee in e8s")
	flags.Uint64Var(&hashOpts.memo, "memo", 0, "memo")
	flags.Uint64Var(&hashOpts.createdAt, "created-at", 0, "created_at_time in nanoseconds since the epoch")
	_ = cmd.MarkFlagRequired("sender")
	cmd.MarkFlagsMutuallyExclusive("to", "to-account")
	return cmd
}

func (o hashOptions) transferArgs() (core.Principal, core.LegacyTransferArgs, error) {
	sender, err := core.ParsePrincipal(o.sender)
	if err != nil {
		return core.Principal{}, core.LegacyTransferArgs{}, fmt.Errorf("sender: %w", err)
	}
	args := core.LegacyTransferArgs{
		Memo:   core.Memo(o.memo),
		Amount: core.Tokens(o.amount),
		Fee:    core.Tokens(o.fee),
	}
	switch {
	case o.to != "":
		recipient, err := core.ParsePrincipal(o.to)
		if err != nil {
			return core.Principal{}, core.LegacyTransferArgs{}, fmt.Errorf("to: %w", err)
		}
		args.To = core.DefaultLedgerAccount(recipient)
	case o.toAccount != "":
		args.To, err = core.ParseAccountIdentifier(o.toAccount)
		if err != nil {
			return core.Principal{}, core.LegacyTransferArgs{}, fmt.Errorf("to-account: %w", err)
		}
	default:
		return core.Principal{}, core.LegacyTransferArgs{}, fmt.Errorf("one of --to or --to-account is required")
	}
	if o.fromSubaccount != "" {
		var subaccount core.Subaccount
		if err := subaccount.UnmarshalText([]byte(o.fromSubaccount)); err != nil {
			return core.Principal{}, core.LegacyTransferArgs{}, fmt.Errorf("from-subaccount: %w", err)
		}
		args.FromSubaccount = &subaccount
	}
	if o.createdAt != 0 {
		created := core.TimestampNanos(o.createdAt)
		args.CreatedAtTime = &created
	}
	return sender, args, nil
}
