package models

// Таблицы соответствия между парами статусных словарей.
// Обе пары заведомо несимметричны: delivery достижима из двух workflow
// статусов, а disputed/cancelled на обратном пути схлопываются в on_hold.
// Это зафиксированное продуктовое поведение, не ошибка.

var workflowToStage = map[string]string{
	WorkflowStatusAwaitingRequirements: PipelineStageQualification,
	WorkflowStatusInProgress:           PipelineStageProduction,
	WorkflowStatusRevisionRequested:    PipelineStageDelivery,
	WorkflowStatusReadyForPayout:       PipelineStageDelivery,
	WorkflowStatusCompleted:            PipelineStageCompleted,
	WorkflowStatusPaused:               PipelineStageOnHold,
	WorkflowStatusCancelled:            PipelineStageCancelled,
}

var stageToWorkflow = map[string]string{
	PipelineStageQualification:    WorkflowStatusAwaitingRequirements,
	PipelineStageInquiry:          WorkflowStatusAwaitingRequirements,
	PipelineStageKickoffScheduled: WorkflowStatusInProgress,
	PipelineStageProduction:       WorkflowStatusInProgress,
	PipelineStageDelivery:         WorkflowStatusReadyForPayout,
	PipelineStageCompleted:        WorkflowStatusCompleted,
	PipelineStageCancelled:        WorkflowStatusCancelled,
	PipelineStageOnHold:           WorkflowStatusPaused,
}

var payoutToEscrow = map[string]string{
	PayoutStatusPending:   EscrowStatusFunded,
	PayoutStatusScheduled: EscrowStatusPendingRelease,
	PayoutStatusReleased:  EscrowStatusReleased,
	PayoutStatusAtRisk:    EscrowStatusHeld,
	PayoutStatusOnHold:    EscrowStatusHeld,
}

var escrowToPayout = map[string]string{
	EscrowStatusFunded:         PayoutStatusPending,
	EscrowStatusPendingRelease: PayoutStatusScheduled,
	EscrowStatusReleased:       PayoutStatusReleased,
	EscrowStatusHeld:           PayoutStatusOnHold,
	EscrowStatusDisputed:       PayoutStatusAtRisk,
	EscrowStatusCancelled:      PayoutStatusOnHold,
}

// WorkflowStatusToPipelineStage возвращает стадию воронки для канонического
// статуса. Неизвестный вход трактуется как inquiry.
func WorkflowStatusToPipelineStage(workflowStatus string) string {
	if stage, ok := workflowToStage[workflowStatus]; ok {
		return stage
	}
	return PipelineStageInquiry
}

// PipelineStageToWorkflowStatus возвращает канонический статус для стадии.
// Неизвестный вход трактуется как awaiting_requirements.
func PipelineStageToWorkflowStatus(stage string) string {
	if status, ok := stageToWorkflow[stage]; ok {
		return status
	}
	return WorkflowStatusAwaitingRequirements
}

// PayoutStatusToEscrowStatus возвращает escrow статус для статуса выплаты.
// Неизвестный вход трактуется как funded.
func PayoutStatusToEscrowStatus(payoutStatus string) string {
	if status, ok := payoutToEscrow[payoutStatus]; ok {
		return status
	}
	return EscrowStatusFunded
}

// EscrowStatusToPayoutStatus возвращает статус выплаты для escrow статуса.
// held всегда возвращается как on_hold, различие с at_risk теряется.
// Неизвестный вход трактуется как pending.
func EscrowStatusToPayoutStatus(escrowStatus string) string {
	if status, ok := escrowToPayout[escrowStatus]; ok {
		return status
	}
	return PayoutStatusPending
}
