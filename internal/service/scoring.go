package service

import "strings"

// Scoring weights. The remaining 0.25 of the weight budget is reserved for
// SLA-urgency and historical-resolution factors that currently contribute 0.
const (
	weightSkillsMatch  = 0.30
	weightWorkload     = 0.25
	weightAvailability = 0.20
)

// maxWorkloadTickets is the load at which the workload score saturates to 0.
const maxWorkloadTickets = 10

// unskilledMatchFloor keeps available agents without the matching skill
// eligible instead of excluding them outright.
const unskilledMatchFloor = 0.2

// AgentScore is the ephemeral fitness result computed per assignment attempt.
// Never persisted; sub-scores are retained for explainability.
type AgentScore struct {
	AgentID           string
	SkillsMatch       float64
	WorkloadScore     float64
	AvailabilityScore float64
	Composite         float64
}

// AgentSnapshot is the scoring input for a single agent. CurrentTicketCount
// must be recomputed from live ticket state immediately before scoring.
type AgentSnapshot struct {
	AgentID            string
	Skills             []string
	CurrentTicketCount int
	IsAvailable        bool
}

// ScoreAgent computes a deterministic fitness score for an agent against a
// ticket category. It never fails: malformed input degrades to zero
// contributions.
func ScoreAgent(category string, agent AgentSnapshot) AgentScore {
	score := AgentScore{
		AgentID:       agent.AgentID,
		SkillsMatch:   skillsMatch(category, agent.Skills),
		WorkloadScore: workloadScore(agent.CurrentTicketCount),
	}
	if agent.IsAvailable {
		score.AvailabilityScore = 1
	}
	score.Composite = score.SkillsMatch*weightSkillsMatch +
		score.WorkloadScore*weightWorkload +
		score.AvailabilityScore*weightAvailability
	return score
}

// skillsMatch is 1 when any agent skill equals the category
// case-insensitively, 0.2 otherwise, and 0 when either side is empty.
func skillsMatch(category string, skills []string) float64 {
	if category == "" || len(skills) == 0 {
		return 0
	}
	for _, skill := range skills {
		if strings.EqualFold(skill, category) {
			return 1
		}
	}
	return unskilledMatchFloor
}

// workloadScore rewards idle agents and saturates to 0 at or over
// maxWorkloadTickets. Never negative.
func workloadScore(currentTickets int) float64 {
	score := 1 - float64(currentTickets)/float64(maxWorkloadTickets)
	if score < 0 {
		return 0
	}
	return score
}
