package statusstore

import "github.com/tarsy-labs/analysis-orchestrator/pkg/models"

// transitions is the tagged-variant transition table for models.Status:
// illegal transitions are rejected here, at the Status Store boundary,
// rather than scattered across the Workflow Engine.
var transitions = map[models.Status][]models.Status{
	models.StatusPending: {
		models.StatusRunning,
		models.StatusCompleted, // cache short-circuit
	},
	models.StatusRunning: {
		models.StatusPhase1Plan,
	},
	models.StatusPhase1Plan: {
		models.StatusOrchestratingPlan,
		models.StatusPhase2Research, // standard mode skips Judge Plan
	},
	models.StatusOrchestratingPlan: {
		models.StatusPhase2Research,
	},
	models.StatusPhase2Research: {
		models.StatusOrchestratingResearch,
		models.StatusPhase3Report, // standard mode skips Judge Research
	},
	models.StatusOrchestratingResearch: {
		models.StatusPhase2Supplement, // Judge returned SUPPLEMENT
		models.StatusPhase3Report,     // Judge returned APPROVE
	},
	models.StatusPhase2Supplement: {
		models.StatusPhase3Report,
	},
	models.StatusPhase3Report: {
		models.StatusGeneratingFinalReport,
	},
	models.StatusGeneratingFinalReport: {
		models.StatusCompleted,
	},
	// Any non-terminal state may fail out: render failure, validation
	// error, or all agents failing the same phase.
}

// failureAllowed reports whether from may legitimately precede a failed
// transition — true for every non-terminal status.
func failureAllowed(from models.Status) bool {
	return !from.Terminal()
}

// ValidTransition reports whether a Task may move from `from` to `to`.
// Terminal states never transition further (idempotent re-application of
// the same terminal status is allowed and is a no-op for callers).
func ValidTransition(from, to models.Status) bool {
	if from == to && from.Terminal() {
		return true
	}
	if to == models.StatusFailed {
		return failureAllowed(from)
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
