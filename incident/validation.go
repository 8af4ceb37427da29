package incident

// ValidationQA is one generated validation question together with the
// learner's free-text answer and the assessed correctness.
type ValidationQA struct {
	IncidentID  string `json:"incident_id"`
	Question    string `json:"question"`
	AnswerGiven string `json:"answer_given"`

	// AssessedCorrect is partial-credit correctness in [0,1].
	AssessedCorrect float64 `json:"assessed_correct"`
}
