package guidance

import (
	"fmt"
	"time"

	"github.com/aristath/fks-analytics/internal/domain"
)

// WorkflowStep is one item of the manual execution checklist.
type WorkflowStep struct {
	StepNumber     int       `json:"step_number"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	ActionRequired bool      `json:"action_required"`
	Completed      bool      `json:"completed"`
	CompletedAt    time.Time `json:"completed_at,omitempty"`
	Notes          string    `json:"notes,omitempty"`
}

// BuildWorkflow produces the ordered checklist for executing one
// recommendation by hand.
func BuildWorkflow(rec domain.Recommendation) []WorkflowStep {
	sig := rec.Signal
	return []WorkflowStep{
		{
			StepNumber: 1,
			Title:      "Review recommendation",
			Description: fmt.Sprintf("%s %s (%s): action %s at confidence %.0f%%",
				sig.Side, sig.Symbol, sig.Category, rec.Action, rec.Confidence*100),
			ActionRequired: true,
		},
		{
			StepNumber:     2,
			Title:          "Check allocation",
			Description:    fmt.Sprintf("Confirm adding %s keeps the portfolio inside its class targets", sig.Symbol),
			ActionRequired: true,
		},
		{
			StepNumber: 3,
			Title:      "Calculate position size",
			Description: fmt.Sprintf("Size the position at %.2f%% of account capital",
				sig.PositionSizePct*100),
			ActionRequired: true,
		},
		{
			StepNumber: 4,
			Title:      "Set stops",
			Description: fmt.Sprintf("Take profit at %.4f, stop loss at %.4f (R/R %.2f)",
				sig.TakeProfitPrice(), sig.StopLossPrice(), sig.RiskReward),
			ActionRequired: true,
		},
		{
			StepNumber:     5,
			Title:          "Execute",
			Description:    fmt.Sprintf("Place the %s order for %s at market or limit %.4f", sig.Side, sig.Symbol, sig.EntryPrice),
			ActionRequired: rec.Action == domain.ActionBuy || rec.Action == domain.ActionStrongBuy,
		},
		{
			StepNumber:     6,
			Title:          "Log the decision",
			Description:    "Record the decision and, later, its outcome in the decision log",
			ActionRequired: true,
		},
	}
}
