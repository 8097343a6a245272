package core

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// RetryOperationSubmitProposal names the downstream method a queued proposal
// is replayed against.
const RetryOperationSubmitProposal = "c2c_submit_proposal_msgpack"

type proposalActionWire struct {
	Kind    string `msgpack:"kind"`
	Payload []byte `msgpack:"payload,omitempty"`
}

type proposalWire struct {
	Title   string             `msgpack:"title"`
	Summary string             `msgpack:"summary"`
	URL     string             `msgpack:"url"`
	Action  proposalActionWire `msgpack:"action"`
}

type submitProposalArgsWire struct {
	GovernanceCanisterID []byte       `msgpack:"governance_canister_id"`
	Proposal             proposalWire `msgpack:"proposal"`
}

func EncodeSubmitProposalArgs(args SubmitProposalArgs) ([]byte, error) {
	payload, err := msgpack.Marshal(submitProposalArgsWire{
		GovernanceCanisterID: args.GovernanceCanisterID.Bytes(),
		Proposal: proposalWire{
			Title:   args.Proposal.Title,
			Summary: args.Proposal.Summary,
			URL:     args.Proposal.URL,
			Action: proposalActionWire{
				Kind:    args.Proposal.Action.Kind,
				Payload: args.Proposal.Action.Payload,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("core: encode submit proposal args: %w", err)
	}
	return payload, nil
}

func DecodeSubmitProposalArgs(payload []byte) (SubmitProposalArgs, error) {
	var wire submitProposalArgsWire
	if err := msgpack.Unmarshal(payload, &wire); err != nil {
		return SubmitProposalArgs{}, fmt.Errorf("core: decode submit proposal args: %w", err)
	}
	governance, err := PrincipalFromBytes(wire.GovernanceCanisterID)
	if err != nil {
		return SubmitProposalArgs{}, fmt.Errorf("core: decode submit proposal args: %w", err)
	}
	return SubmitProposalArgs{
		GovernanceCanisterID: governance,
		Proposal: Proposal{
			Title:   wire.Proposal.Title,
			Summary: wire.Proposal.Summary,
			URL:     wire.Proposal.URL,
			Action: ProposalAction{
				Kind:    wire.Proposal.Action.Kind,
				Payload: cloneBytes(wire.Proposal.Action.Payload),
			},
		},
	}, nil
}
