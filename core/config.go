package core

import (
	"fmt"
	"strings"
)

const (
	DefaultSupportedGovernanceID = "2jvtu-yqaaa-aaaaq-aaama-cai"
	DefaultProposalsBotID        = "iywa7-ayaaa-aaaaf-aemga-cai"
	DefaultProposalLedgerID      = "2ouva-viaaa-aaaaq-aaamq-cai"
	DefaultProposalFeeUnits      = "400000000"
)

type ProposalsConfig struct {
	SupportedGovernanceID string `koanf:"supported_governance_id" mapstructure:"supported_governance_id"`
	ProposalsBotID        string `koanf:"proposals_bot_id" mapstructure:"proposals_bot_id"`
	LedgerID              string `koanf:"ledger_id" mapstructure:"ledger_id"`
	FeeToken              string `koanf:"fee_token" mapstructure:"fee_token"`
	FeeUnits              string `koanf:"fee_units" mapstructure:"fee_units"`
	RetryOperation        string `koanf:"retry_operation" mapstructure:"retry_operation"`
}

type RetryConfig struct {
	BatchSize   int `koanf:"batch_size" mapstructure:"batch_size"`
	MaxAttempts int `koanf:"max_attempts" mapstructure:"max_attempts"`
}

// DownstreamConfig locates the proposals service. An empty BaseURL leaves
// the client unconfigured.
type DownstreamConfig struct {
	BaseURL           string `koanf:"base_url" mapstructure:"base_url"`
	TimeoutMS         int    `koanf:"timeout_ms" mapstructure:"timeout_ms"`
	BreakerFailures   int    `koanf:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerCooldownMS int    `koanf:"breaker_cooldown_ms" mapstructure:"breaker_cooldown_ms"`
}

type LedgersConfig struct {
	LegacyURL        string `koanf:"legacy_url" mapstructure:"legacy_url"`
	TokenStandardURL string `koanf:"token_standard_url" mapstructure:"token_standard_url"`
	TimeoutMS        int    `koanf:"timeout_ms" mapstructure:"timeout_ms"`
}

type Config struct {
	ServiceName string           `koanf:"service_name" mapstructure:"service_name"`
	Proposals   ProposalsConfig  `koanf:"proposals" mapstructure:"proposals"`
	Retry       RetryConfig      `koanf:"retry" mapstructure:"retry"`
	Downstream  DownstreamConfig `koanf:"downstream" mapstructure:"downstream"`
	Ledgers     LedgersConfig    `koanf:"ledgers" mapstructure:"ledgers"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "ledgerflow",
		Proposals: ProposalsConfig{
			SupportedGovernanceID: DefaultSupportedGovernanceID,
			ProposalsBotID:        DefaultProposalsBotID,
			LedgerID:              DefaultProposalLedgerID,
			FeeToken:              string(CHAT),
			FeeUnits:              DefaultProposalFeeUnits,
			RetryOperation:        RetryOperationSubmitProposal,
		},
		Retry: RetryConfig{
			BatchSize:   DefaultRetryRelayConfig().BatchSize,
			MaxAttempts: DefaultRetryRelayConfig().MaxAttempts,
		},
		Downstream: DownstreamConfig{
			TimeoutMS:         10000,
			BreakerFailures:   5,
			BreakerCooldownMS: 30000,
		},
		Ledgers: LedgersConfig{
			TimeoutMS: 10000,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if _, err := c.Proposals.Resolve(); err != nil {
		return err
	}
	if c.Retry.BatchSize < 0 {
		return fmt.Errorf("core: retry.batch_size must not be negative")
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("core: retry.max_attempts must not be negative")
	}
	if c.Downstream.TimeoutMS < 0 || c.Ledgers.TimeoutMS < 0 {
		return fmt.Errorf("core: timeouts must not be negative")
	}
	if c.Downstream.BreakerFailures < 0 || c.Downstream.BreakerCooldownMS < 0 {
		return fmt.Errorf("core: downstream breaker settings must not be negative")
	}
	return nil
}

// ProposalSettings is the parsed form of ProposalsConfig.
type ProposalSettings struct {
	SupportedGovernance CanisterID
	ProposalsBot        CanisterID
	Ledger              CanisterID
	FeeToken            Cryptocurrency
	FeeAmount           Units
	RetryOperation      string
}

func (c ProposalsConfig) Resolve() (ProposalSettings, error) {
	governance, err := ParsePrincipal(strings.TrimSpace(c.SupportedGovernanceID))
	if err != nil {
		return ProposalSettings{}, fmt.Errorf("core: invalid proposals.supported_governance_id: %w", err)
	}
	bot, err := ParsePrincipal(strings.TrimSpace(c.ProposalsBotID))
	if err != nil {
		return ProposalSettings{}, fmt.Errorf("core: invalid proposals.proposals_bot_id: %w", err)
	}
	ledger, err := ParsePrincipal(strings.TrimSpace(c.LedgerID))
	if err != nil {
		return ProposalSettings{}, fmt.Errorf("core: invalid proposals.ledger_id: %w", err)
	}
	token, err := ParseCryptocurrency(strings.TrimSpace(c.FeeToken))
	if err != nil {
		return ProposalSettings{}, fmt.Errorf("core: invalid proposals.fee_token: %w", err)
	}
	amount, err := ParseUnits(strings.TrimSpace(c.FeeUnits))
	if err != nil {
		return ProposalSettings{}, fmt.Errorf("core: invalid proposals.fee_units: %w", err)
	}
	if amount.IsZero() {
		return ProposalSettings{}, fmt.Errorf("core: proposals.fee_units is required")
	}
	operation := strings.TrimSpace(c.RetryOperation)
	if operation == "" {
		return ProposalSettings{}, fmt.Errorf("core: proposals.retry_operation is required")
	}
	return ProposalSettings{
		SupportedGovernance: governance,
		ProposalsBot:        bot,
		Ledger:              ledger,
		FeeToken:            token,
		FeeAmount:           amount,
		RetryOperation:      operation,
	}, nil
}
