package training

import (
	"fmt"
	"strings"

	"github.com/M-Boiguille/SkillOps-sub000/incident"
)

// systemPrompt is the shared role instruction for all generative calls.
const systemPrompt = `You are an SRE training scenario writer. You produce realistic
operational incident material for a single learner practicing on their own
infrastructure. Always answer with a single JSON object and nothing else:
no prose, no markdown fences, no comments.`

func incidentPrompt(p IncidentPrompt) string {
	var b strings.Builder

	b.WriteString("Generate one realistic operational incident for training.\n\n")

	if len(p.WeakSystems) > 0 {
		fmt.Fprintf(&b, "The learner is weakest on these systems, weakest first: %s. Prefer one of them.\n",
			strings.Join(p.WeakSystems, ", "))
	}
	if len(p.RecentSystems) > 0 {
		fmt.Fprintf(&b, "Fault injection recently touched: %s. Incidents on these systems are realistic right now.\n",
			strings.Join(p.RecentSystems, ", "))
	}
	fmt.Fprintf(&b, "Learner skill level: %s.\n", p.SkillLevel)

	if p.TargetSystem != "" {
		fmt.Fprintf(&b, "The incident MUST target the system %q.\n", p.TargetSystem)
	}
	if p.Difficulty != 0 {
		fmt.Fprintf(&b, "The difficulty MUST be exactly %d.\n", p.Difficulty)
	} else {
		fmt.Fprintf(&b, "Pick a difficulty between %d and %d matching the skill level.\n",
			incident.MinDifficulty, incident.MaxDifficulty)
	}

	b.WriteString(`
Respond with exactly this JSON shape:
{"severity": "P1|P2|P3|P4", "title": "...", "description": "...", "symptoms": "...", "target_system": "...", "difficulty": 1-5}

The description sets the scene; the symptoms are what monitoring and users
report, without revealing the root cause.`)

	return b.String()
}

func hintPrompt(p HintPrompt) string {
	inc := p.Incident

	var guidance string
	switch p.Level {
	case 1:
		guidance = "a Socratic question that points the learner at the right area without naming the cause"
	case 2:
		guidance = "a concrete investigative direction: what to inspect and why, still without the answer"
	default:
		guidance = "a concrete command or exact action that moves the learner directly toward the fix"
	}

	return fmt.Sprintf(`The learner is stuck on this training incident:

Title: %s
System: %s
Severity: %s
Description: %s
Symptoms: %s

Give a level %d hint: %s.

Respond with exactly this JSON shape:
{"level": %d, "content": "..."}`,
		inc.Title, inc.TargetSystem, inc.Severity, inc.Description, inc.Symptoms,
		p.Level, guidance, p.Level)
}

func validationPrompt(p ValidationPrompt) string {
	inc := p.Incident

	return fmt.Sprintf(`The learner resolved this training incident:

Title: %s
System: %s
Description: %s
Symptoms: %s

Their resolution:
%s

Write %d to %d short validation questions testing whether the learner
actually understood the root cause and the fix, not just the commands.

Respond with exactly this JSON shape:
{"questions": ["...", "..."]}`,
		inc.Title, inc.TargetSystem, inc.Description, inc.Symptoms,
		p.ResolutionText, minQuestions, maxQuestions)
}

func assessmentPrompt(p AssessmentPrompt) string {
	var b strings.Builder

	fmt.Fprintf(&b, `Grade the learner's answers for this training incident:

Title: %s
System: %s
Description: %s

Their resolution:
%s

Questions and answers:
`, p.Incident.Title, p.Incident.TargetSystem, p.Incident.Description, p.ResolutionText)

	for i, qa := range p.Answers {
		fmt.Fprintf(&b, "%d. Q: %s\n   A: %s\n", i+1, qa.Question, qa.Answer)
	}

	fmt.Fprintf(&b, `
Score each answer from 0.0 (wrong or missing) to 1.0 (fully correct),
partial credit allowed, in question order.

Respond with exactly this JSON shape:
{"scores": [%s]}`, strings.TrimSuffix(strings.Repeat("0.0, ", len(p.Answers)), ", "))

	return b.String()
}
