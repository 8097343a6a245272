// Package core contains the ledgerflow domain contracts, transfer construction,
// ledger dispatch and the proposal submission workflow. Ledger, downstream and
// queue adapters depend on this package; core must not depend on them.
package core
