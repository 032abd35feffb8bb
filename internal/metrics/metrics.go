package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PaymentsRecorded counts ledger-backed payment applications by result status.
	PaymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_payments_recorded_total",
		Help: "Number of payment applications recorded, labeled by resulting payment status.",
	}, []string{"status"})

	// AllocationsRecomputed counts shared-invoice allocation rewrites.
	AllocationsRecomputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_allocations_recomputed_total",
		Help: "Number of shared-invoice allocation rewrites.",
	})

	// CostRecomputes counts cost-invoice aggregate recomputations.
	CostRecomputes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_cost_invoice_recomputes_total",
		Help: "Number of cost-invoice aggregate recomputations.",
	})

	// WalletBalanceReads counts wallet balance projections.
	WalletBalanceReads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_wallet_balance_reads_total",
		Help: "Number of wallet balance projections served.",
	})
)
