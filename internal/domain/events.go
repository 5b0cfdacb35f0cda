package domain

const (
	CanonicalEventClassDomain        = "domain"
	CanonicalEventClassAnalyticsOnly = "analytics_only"
	CanonicalEventClassOps           = "ops"
)

const (
	EventTaskCompleted        = "task.completed"
	EventEscrowFunded         = "escrow.funded"
	EventEscrowReleased       = "escrow.released"
	EventEscrowRefunded       = "escrow.refunded"
	EventSagaRecovered        = "money.saga_recovered"
	EventKillSwitchTripped    = "money.killswitch_tripped"
	EventDriftCompensated     = "money.drift_compensated"
)

const (
	AlertTypeKillSwitchTripped = "killswitch_tripped"
	AlertTypeSagaStuck         = "saga_stuck"
	AlertTypeSagaExhausted     = "saga_recovery_exhausted"
	AlertTypeDriftDetected     = "ledger_drift_detected"
)

const (
	AlertSeverityWarning  = "warning"
	AlertSeverityCritical = "critical"
)
