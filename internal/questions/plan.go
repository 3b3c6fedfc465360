package questions

// Plan is an ordered list of interview questions with a cursor. A plan is
// produced once per session and consumed forward only; restarting requires
// generating a new plan.
type Plan struct {
	questions []string
	cursor    int
}

// NewPlan creates a plan over the given questions
func NewPlan(questions []string) *Plan {
	return &Plan{questions: questions}
}

// Next returns the next question and advances the cursor. ok is false once
// the plan is exhausted.
func (p *Plan) Next() (question string, ok bool) {
	if p.cursor >= len(p.questions) {
		return "", false
	}
	q := p.questions[p.cursor]
	p.cursor++
	return q, true
}

// Asked returns how many questions have been consumed
func (p *Plan) Asked() int {
	return p.cursor
}

// Total returns the number of questions in the plan
func (p *Plan) Total() int {
	return len(p.questions)
}

// Remaining returns how many questions are left
func (p *Plan) Remaining() int {
	return len(p.questions) - p.cursor
}
