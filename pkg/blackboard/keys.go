package blackboard

import (
	"fmt"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/models"
)

func keyPhase(taskID string, agent models.Agent) string {
	return fmt.Sprintf("task:%s:agent:%s:phase", taskID, agent)
}

func keyPayload(taskID string, agent models.Agent, phase models.Phase) string {
	return fmt.Sprintf("task:%s:agent:%s:%s", taskID, agent, phase)
}

func keyGuidance(taskID string, phase models.Phase) string {
	return fmt.Sprintf("task:%s:guidance:%s", taskID, phase)
}

func keySupplementRound(taskID string) string {
	return fmt.Sprintf("task:%s:supplement:round", taskID)
}

func keyForumLog(taskID string) string {
	return fmt.Sprintf("task:%s:forum:log", taskID)
}
