package main

import (
	"fmt"

	"github.com/goliatone/go-ledgerflow/core"
	lfquery "github.com/goliatone/go-ledgerflow/query"
	"github.com/spf13/cobra"
)

func newFormatCmd(opts *rootOptions) *cobra.Command {
	var (
		token      string
		decimals   uint8
		withSymbol bool
	)
	cmd := &cobra.Command{
		Use:   "format <units>",
		Short: "Render an integer amount of base units as a decimal string",
		Long: `Render an integer amount of base units as a decimal string.

With --token the token's decimals are used and --symbol appends its symbol.
Without a token --decimals sets the scale.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			units, err := core.ParseUnits(args[0])
			if err != nil {
				return err
			}
			msg := lfquery.FormatAmountMessage{
				Amount:     units,
				Decimals:   decimals,
				WithSymbol: withSymbol,
			}
			if token != "" {
				msg.Token, err = core.ParseCryptocurrency(token)
				if err != nil {
					return err
				}
			}
			formatted, err := lfquery.NewFormatAmountQuery().Query(cmd.Context(), msg)
			if err != nil {
				return err
			}
			fmt.Fprintln(opts.out, formatted)
			return nil
		},
	}
	cmd.Flags().StringVarP(&token, "token", "t", "", "token symbol (ICP, SNS1, ckBTC, CHAT, KINIC)")
	cmd.Flags().Uint8VarP(&decimals, "decimals", "d", 8, "decimal places when no token is given")
	cmd.Flags().BoolVar(&withSymbol, "symbol", false, "append the token symbol")
	return cmd
}
