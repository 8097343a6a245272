// Package providers groups the remote collaborators of the ledgerflow engine:
// ledger transfer clients and the proposals service client. Each client is a
// thin codec over a core.TransportAdapter.
package providers
