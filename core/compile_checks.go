package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ ProposalService = (*Service)(nil)
	_ RetryDispatcher = (*RetryRelay)(nil)
	_ RetryDeliverer  = ProposalRetryDeliverer{}
	_ RetryDeliverer  = RetryDelivererFunc(nil)
	_ MetricsRecorder = NopMetricsRecorder{}

	_ PendingTransaction = LegacyPendingTransaction{}
	_ PendingTransaction = TokenStandardPendingTransaction{}
	_ error              = (*FailedTransaction)(nil)
	_ error              = (*LegacyTransferError)(nil)
	_ error              = (*TokenStandardTransferError)(nil)

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
