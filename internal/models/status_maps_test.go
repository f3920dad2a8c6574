package models

import "testing"

func TestPayoutEscrowRoundTrip(t *testing.T) {
	// Все статусы, кроме at_risk и on_hold, сохраняются при обходе туда-обратно.
	// at_risk и on_hold оба проходят через held и возвращаются как on_hold.
	cases := []struct {
		payout string
		want   string
	}{
		{PayoutStatusPending, PayoutStatusPending},
		{PayoutStatusScheduled, PayoutStatusScheduled},
		{PayoutStatusReleased, PayoutStatusReleased},
		{PayoutStatusAtRisk, PayoutStatusOnHold},
		{PayoutStatusOnHold, PayoutStatusOnHold},
	}

	for _, tc := range cases {
		got := EscrowStatusToPayoutStatus(PayoutStatusToEscrowStatus(tc.payout))
		if got != tc.want {
			t.Errorf("round trip %s: expected %s, got %s", tc.payout, tc.want, got)
		}
	}
}

func TestEscrowCollapsedStatuses(t *testing.T) {
	if got := EscrowStatusToPayoutStatus(EscrowStatusDisputed); got != PayoutStatusAtRisk {
		t.Errorf("disputed: expected at_risk, got %s", got)
	}
	if got := EscrowStatusToPayoutStatus(EscrowStatusCancelled); got != PayoutStatusOnHold {
		t.Errorf("cancelled: expected on_hold, got %s", got)
	}
	// held никогда не возвращается как at_risk
	if got := EscrowStatusToPayoutStatus(EscrowStatusHeld); got != PayoutStatusOnHold {
		t.Errorf("held: expected on_hold, got %s", got)
	}
}

func TestPipelineStageBounceIsIdempotent(t *testing.T) {
	// Любая стадия, полученная из прямого отображения, после одного прохода
	// через обратное отображение и снова через прямое даёт ту же стадию.
	for workflowStatus := range ValidWorkflowStatuses {
		stage := WorkflowStatusToPipelineStage(workflowStatus)
		bounced := WorkflowStatusToPipelineStage(PipelineStageToWorkflowStatus(stage))
		if bounced != stage {
			t.Errorf("stage %s (from %s): bounce yielded %s", stage, workflowStatus, bounced)
		}
	}
}

func TestDeliveryCollapsesTwoWorkflowStatuses(t *testing.T) {
	if WorkflowStatusToPipelineStage(WorkflowStatusRevisionRequested) != PipelineStageDelivery {
		t.Error("revision_requested should map to delivery")
	}
	if WorkflowStatusToPipelineStage(WorkflowStatusReadyForPayout) != PipelineStageDelivery {
		t.Error("ready_for_payout should map to delivery")
	}
	// Обратное отображение выбирает ready_for_payout
	if PipelineStageToWorkflowStatus(PipelineStageDelivery) != WorkflowStatusReadyForPayout {
		t.Error("delivery should map back to ready_for_payout")
	}
}

func TestMappingDefaults(t *testing.T) {
	if got := WorkflowStatusToPipelineStage("garbage"); got != PipelineStageInquiry {
		t.Errorf("unmapped workflow status: expected inquiry, got %s", got)
	}
	if got := PipelineStageToWorkflowStatus("garbage"); got != WorkflowStatusAwaitingRequirements {
		t.Errorf("unmapped stage: expected awaiting_requirements, got %s", got)
	}
	if got := PipelineStageToWorkflowStatus(PipelineStageInquiry); got != WorkflowStatusAwaitingRequirements {
		t.Errorf("inquiry: expected awaiting_requirements, got %s", got)
	}
}
