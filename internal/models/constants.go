package models

// WorkflowStatus константы канонических статусов заказа
const (
	WorkflowStatusAwaitingRequirements = "awaiting_requirements"
	WorkflowStatusInProgress           = "in_progress"
	WorkflowStatusRevisionRequested    = "revision_requested"
	WorkflowStatusReadyForPayout       = "ready_for_payout"
	WorkflowStatusCompleted            = "completed"
	WorkflowStatusPaused               = "paused"
	WorkflowStatusCancelled            = "cancelled"
)

// PipelineStage константы стадий воронки (производные, отдельно не хранятся)
const (
	PipelineStageInquiry          = "inquiry"
	PipelineStageQualification    = "qualification"
	PipelineStageKickoffScheduled = "kickoff_scheduled"
	PipelineStageProduction       = "production"
	PipelineStageDelivery         = "delivery"
	PipelineStageCompleted        = "completed"
	PipelineStageOnHold           = "on_hold"
	PipelineStageCancelled        = "cancelled"
)

// StatusType тип состояния заказа для витрины
const (
	StatusTypeOpen      = "open"
	StatusTypeCompleted = "completed"
	StatusTypeCancelled = "cancelled"
)

// IntakeStatus статусы сбора требований
const (
	IntakeStatusNotStarted = "not_started"
	IntakeStatusInProgress = "in_progress"
	IntakeStatusCompleted  = "completed"
)

// KickoffStatus статусы kickoff-созвона
const (
	KickoffStatusNotScheduled    = "not_scheduled"
	KickoffStatusScheduled       = "scheduled"
	KickoffStatusCompleted       = "completed"
	KickoffStatusNeedsReschedule = "needs_reschedule"
)

// RequirementStatus статусы анкеты требований
const (
	RequirementStatusPending  = "pending"
	RequirementStatusReceived = "received"
	RequirementStatusWaived   = "waived"
)

// Производные UI-статусы анкеты требований
const (
	RequirementUIStatusPendingClient = "pending_client"
	RequirementUIStatusInProgress    = "in_progress"
	RequirementUIStatusSubmitted     = "submitted"
	RequirementUIStatusApproved      = "approved"
	RequirementUIStatusNeedsRevision = "needs_revision"
)

// Приоритет анкеты и серьёзность правки используют одну шкалу
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// RevisionStatus статусы раунда правок
const (
	RevisionStatusRequested  = "requested"
	RevisionStatusInProgress = "in_progress"
	RevisionStatusSubmitted  = "submitted"
	RevisionStatusApproved   = "approved"
	RevisionStatusRejected   = "rejected"
)

// Производные UI-статусы правок
const (
	RevisionUIStatusOpen      = "open"
	RevisionUIStatusSubmitted = "submitted"
	RevisionUIStatusApproved  = "approved"
	RevisionUIStatusDeclined  = "declined"
)

// PayoutStatus канонические статусы выплаты по вехе
const (
	PayoutStatusPending   = "pending"
	PayoutStatusScheduled = "scheduled"
	PayoutStatusReleased  = "released"
	PayoutStatusAtRisk    = "at_risk"
	PayoutStatusOnHold    = "on_hold"
)

// EscrowStatus производные статусы escrow-чекпоинта
const (
	EscrowStatusFunded         = "funded"
	EscrowStatusPendingRelease = "pending_release"
	EscrowStatusReleased       = "released"
	EscrowStatusHeld           = "held"
	EscrowStatusDisputed       = "disputed"
	EscrowStatusCancelled      = "cancelled"
)

// ValidWorkflowStatuses список валидных статусов заказа
var ValidWorkflowStatuses = map[string]struct{}{
	WorkflowStatusAwaitingRequirements: {},
	WorkflowStatusInProgress:           {},
	WorkflowStatusRevisionRequested:    {},
	WorkflowStatusReadyForPayout:       {},
	WorkflowStatusCompleted:            {},
	WorkflowStatusPaused:               {},
	WorkflowStatusCancelled:            {},
}

// ValidPipelineStages список валидных стадий воронки
var ValidPipelineStages = map[string]struct{}{
	PipelineStageInquiry:          {},
	PipelineStageQualification:    {},
	PipelineStageKickoffScheduled: {},
	PipelineStageProduction:       {},
	PipelineStageDelivery:         {},
	PipelineStageCompleted:        {},
	PipelineStageOnHold:           {},
	PipelineStageCancelled:        {},
}

// AllPipelineStages порядок стадий для сводных отчётов: все бакеты присутствуют всегда
var AllPipelineStages = []string{
	PipelineStageInquiry,
	PipelineStageQualification,
	PipelineStageKickoffScheduled,
	PipelineStageProduction,
	PipelineStageDelivery,
	PipelineStageCompleted,
	PipelineStageOnHold,
	PipelineStageCancelled,
}

// ValidIntakeStatuses список валидных статусов сбора требований
var ValidIntakeStatuses = map[string]struct{}{
	IntakeStatusNotStarted: {},
	IntakeStatusInProgress: {},
	IntakeStatusCompleted:  {},
}

// ValidKickoffStatuses список валидных статусов kickoff
var ValidKickoffStatuses = map[string]struct{}{
	KickoffStatusNotScheduled:    {},
	KickoffStatusScheduled:       {},
	KickoffStatusCompleted:       {},
	KickoffStatusNeedsReschedule: {},
}

// ValidRequirementStatuses список валидных статусов анкеты
var ValidRequirementStatuses = map[string]struct{}{
	RequirementStatusPending:  {},
	RequirementStatusReceived: {},
	RequirementStatusWaived:   {},
}

// ValidPriorities список валидных приоритетов и уровней серьёзности
var ValidPriorities = map[string]struct{}{
	PriorityLow:    {},
	PriorityMedium: {},
	PriorityHigh:   {},
}

// ValidRevisionStatuses список валидных статусов правок
var ValidRevisionStatuses = map[string]struct{}{
	RevisionStatusRequested:  {},
	RevisionStatusInProgress: {},
	RevisionStatusSubmitted:  {},
	RevisionStatusApproved:   {},
	RevisionStatusRejected:   {},
}

// ValidPayoutStatuses список валидных статусов выплат
var ValidPayoutStatuses = map[string]struct{}{
	PayoutStatusPending:   {},
	PayoutStatusScheduled: {},
	PayoutStatusReleased:  {},
	PayoutStatusAtRisk:    {},
	PayoutStatusOnHold:    {},
}

// ValidEscrowStatuses список валидных escrow статусов
var ValidEscrowStatuses = map[string]struct{}{
	EscrowStatusFunded:         {},
	EscrowStatusPendingRelease: {},
	EscrowStatusReleased:       {},
	EscrowStatusHeld:           {},
	EscrowStatusDisputed:       {},
	EscrowStatusCancelled:      {},
}
