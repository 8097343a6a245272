package main

import (
	"encoding/hex"
	"fmt"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-ledgerflow/adapters/gocommand"
	lfcommand "github.com/goliatone/go-ledgerflow/command"
	"github.com/goliatone/go-ledgerflow/core"
	"github.com/spf13/cobra"
)

type submitOptions struct {
	caller        string
	governance    string
	title         string
	summary       string
	url           string
	actionKind    string
	actionPayload string
}

func newSubmitCmd(opts *rootOptions) *cobra.Command {
	submitOpts := submitOptions{}
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a governance proposal through the proposals bot",
		Long: `Submit a governance proposal on behalf of a caller.

The proposal is forwarded to the proposals bot. When the bot cannot be
reached the submission is parked on the retry queue and reported as
retrying; run "ledgerflow relay" to deliver it later.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			msg, err := submitOpts.message(rt.service.ProposalSettings().SupportedGovernance)
			if err != nil {
				return err
			}
			collector := gocmd.NewResult[core.SubmitProposalResponse]()
			ctx := gocmd.ContextWithResult(cmd.Context(), collector)
			if err := gocommand.Dispatch(ctx, msg); err != nil {
				return err
			}
			response, ok := collector.Load()
			if !ok {
				return fmt.Errorf("submit: no response recorded")
			}
			fmt.Fprintln(opts.out, response.String())
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&submitOpts.caller, "caller", "", "principal submitting the proposal")
	flags.StringVar(&submitOpts.governance, "governance", "", "governance canister, defaults to the configured one")
	flags.StringVar(&submitOpts.title, "title", "", "proposal title")
	flags.StringVar(&submitOpts.summary, "summary", "", "proposal summary")
	flags.StringVar(&submitOpts.url, "url", "", "proposal URL")
	flags.StringVar(&submitOpts.actionKind, "action", "motion", "proposal action kind")
	flags.StringVar(&submitOpts.actionPayload, "action-payload", "", "proposal action payload (hex)")
	_ = cmd.MarkFlagRequired("caller")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func (o submitOptions) message(defaultGovernance core.CanisterID) (lfcommand.SubmitProposalMessage, error) {
	caller, err := core.ParsePrincipal(o.caller)
	if err != nil {
		return lfcommand.SubmitProposalMessage{}, fmt.Errorf("caller: %w", err)
	}
	governance := defaultGovernance
	if o.governance != "" {
		governance, err = core.ParsePrincipal(o.governance)
		if err != nil {
			return lfcommand.SubmitProposalMessage{}, fmt.Errorf("governance: %w", err)
		}
	}
	var payload []byte
	if o.actionPayload != "" {
		payload, err = hex.DecodeString(o.actionPayload)
		if err != nil {
			return lfcommand.SubmitProposalMessage{}, fmt.Errorf("action-payload: %w", err)
		}
	}
	return lfcommand.SubmitProposalMessage{
		Caller: caller,
		Request: core.SubmitProposalRequest{
			GovernanceCanisterID: governance,
			Proposal: core.Proposal{
				Title:   o.title,
				Summary: o.summary,
				URL:     o.url,
				Action:  core.ProposalAction{Kind: o.actionKind, Payload: payload},
			},
		},
	}, nil
}
