// Package proposalsbot delivers proposal submissions to the proposals service.
//
// Arguments travel as a msgpack body on
// POST {base}/canisters/{bot}/c2c_submit_proposal_msgpack and the service
// answers with a JSON core.DownstreamResponse. Calls run behind a circuit
// breaker so a dead service fails fast into the retry queue.
package proposalsbot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-ledgerflow/core"
	"github.com/goliatone/go-ledgerflow/transport"
	"github.com/goliatone/go-logger/glog"
	"github.com/sony/gobreaker"
)

const (
	ContentTypeMsgpack = "application/msgpack"

	defaultTimeout         = 10 * time.Second
	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30 * time.Second
)

type Config struct {
	BaseURL         string
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// ConfigFrom maps the engine configuration onto client settings.
func ConfigFrom(cfg core.DownstreamConfig) Config {
	failures := cfg.BreakerFailures
	if failures < 0 {
		failures = 0
	}
	return Config{
		BaseURL:         cfg.BaseURL,
		Timeout:         time.Duration(cfg.TimeoutMS) * time.Millisecond,
		BreakerFailures: uint32(failures),
		BreakerCooldown: time.Duration(cfg.BreakerCooldownMS) * time.Millisecond,
	}
}

type Client struct {
	transport core.TransportAdapter
	config    Config
	breaker   *gobreaker.CircuitBreaker
	logger    core.Logger
}

func NewClient(adapter core.TransportAdapter, cfg Config, logger core.Logger) (*Client, error) {
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL == "" {
		return nil, goerrors.New("proposalsbot: base url is required", goerrors.CategoryValidation).
			WithTextCode(core.ServiceErrorBadInput)
	}
	if adapter == nil {
		adapter = transport.NewRESTAdapter(nil)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = defaultBreakerFailures
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = defaultBreakerCooldown
	}
	logger = glog.Ensure(logger)

	threshold := cfg.BreakerFailures
	client := &Client{transport: adapter, config: cfg, logger: logger}
	client.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "proposalsbot",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return client, nil
}

// SubmitProposal returns a typed response whenever the service produced one,
// including business rejections. A non-nil error means nothing typed came
// back and the call may be retried.
func (c *Client) SubmitProposal(ctx context.Context, bot core.CanisterID, args core.SubmitProposalArgs) (core.DownstreamResponse, error) {
	payload, err := core.EncodeSubmitProposalArgs(args)
	if err != nil {
		return core.DownstreamResponse{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "proposalsbot: encode submit_proposal args").
			WithTextCode(core.ServiceErrorBadInput)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.deliver(ctx, bot, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return core.DownstreamResponse{}, goerrors.WrapRetryable(err, goerrors.CategoryExternal, "proposalsbot: circuit open").
				WithTextCode(core.ServiceErrorExternalFailure).
				WithMetadata(map[string]any{"bot": bot.String()})
		}
		return core.DownstreamResponse{}, err
	}
	response, ok := result.(core.DownstreamResponse)
	if !ok {
		return core.DownstreamResponse{}, goerrors.New("proposalsbot: unexpected breaker result", goerrors.CategoryInternal).
			WithTextCode(core.ServiceErrorInternal)
	}
	return response, nil
}

func (c *Client) deliver(ctx context.Context, bot core.CanisterID, payload []byte) (core.DownstreamResponse, error) {
	res, err := c.transport.Do(ctx, core.TransportRequest{
		Method: http.MethodPost,
		URL:    transport.JoinURL(c.config.BaseURL, "canisters/"+bot.String()+"/"+core.RetryOperationSubmitProposal),
		Headers: map[string]string{
			"Content-Type": ContentTypeMsgpack,
			"Accept":       "application/json",
		},
		Body:        payload,
		Timeout:     c.config.Timeout,
		Idempotency: requestIdempotencyKey(ctx, bot, payload),
		Metadata:    map[string]any{"bot": bot.String()},
	})
	if err != nil {
		return core.DownstreamResponse{}, retryable(err, "proposalsbot: deliver submit_proposal", bot)
	}
	if err := transport.StatusError(res, "submit_proposal"); err != nil {
		return core.DownstreamResponse{}, retryable(err, "proposalsbot: submit_proposal rejected by transport", bot)
	}

	var response core.DownstreamResponse
	if err := json.Unmarshal(res.Body, &response); err != nil {
		return core.DownstreamResponse{}, retryable(err, "proposalsbot: decode submit_proposal response", bot)
	}
	if strings.TrimSpace(string(response.Status)) == "" {
		return core.DownstreamResponse{}, retryable(
			errors.New("response status is empty"),
			"proposalsbot: decode submit_proposal response",
			bot,
		)
	}
	return response, nil
}

func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// requestIdempotencyKey prefers the submission id carried by ctx. Distinct
// submissions of identical content must not share a key.
func requestIdempotencyKey(ctx context.Context, bot core.CanisterID, payload []byte) string {
	if key := core.IdempotencyKeyFromContext(ctx); key != "" {
		return key
	}
	return IdempotencyKey(bot, payload)
}

// IdempotencyKey is the content key used when the caller supplies no
// submission id.
func IdempotencyKey(bot core.CanisterID, payload []byte) string {
	digest := sha256.New()
	digest.Write(bot.Bytes())
	digest.Write(payload)
	return hex.EncodeToString(digest.Sum(nil))
}

func retryable(err error, message string, bot core.CanisterID) error {
	return goerrors.WrapRetryable(err, goerrors.CategoryExternal, message).
		WithTextCode(core.ServiceErrorExternalFailure).
		WithMetadata(map[string]any{"bot": bot.String()})
}

var _ core.ProposalsBotClient = (*Client)(nil)
