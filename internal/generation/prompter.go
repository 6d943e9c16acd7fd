package generation

import (
	"fmt"
	"strings"
)

// Prompter builds the fixed prompt templates sent to the model
type Prompter struct{}

// NewPrompter creates a new prompter
func NewPrompter() *Prompter {
	return &Prompter{}
}

const analysisSystem = `You are a Python teaching assistant for complete beginners.
You review a learner's code against the exercise they were given.
Never execute anything; reason about the code as written.`

// AnalysisPrompt embeds the exercise description and the learner's code.
func (p *Prompter) AnalysisPrompt(code, problem string) string {
	var sb strings.Builder
	sb.WriteString("Analyze the following code against the exercise requirements.\n\n")
	fmt.Fprintf(&sb, "Exercise: %q\n\n", problem)
	sb.WriteString("Learner's code:\n```python\n")
	sb.WriteString(code)
	sb.WriteString("\n```\n\n")
	sb.WriteString(`Reply with JSON containing:
- isCorrect (boolean): does the code solve the exercise?
- output (string): what the program is expected to print.
- explanation (string): a short explanation for a beginner.
- suggestion (string): how the code could be improved.`)
	return sb.String()
}

// ExercisePrompt picks the topic template, or the random one when topic is empty.
func (p *Prompter) ExercisePrompt(topic string) string {
	const format = `Reply with JSON: title, description, difficulty (Easy, Medium, Hard), initialCode, hint.`

	topic = strings.TrimSpace(topic)
	if topic == "" {
		return `Create a random Python programming exercise for beginners.
It should focus on concepts such as variables, loops, functions or lists.
` + format
	}
	return fmt.Sprintf(`Create a Python programming exercise for beginners on this specific topic: %q.
The exercise should require the learner to apply what the topic teaches.
%s`, topic, format)
}

// QuizPrompt embeds the lesson title and body.
func (p *Prompter) QuizPrompt(title, content string) string {
	return fmt.Sprintf(`Based on the lesson %q:
%q

Write one multiple-choice question that checks the learner's understanding.
Reply with JSON: question, options (exactly 4 choices), correctAnswerIndex (0-3), explanation (short).`, title, content)
}

// TutorSystem frames the tutor conversation for one learner.
func (p *Prompter) TutorSystem(learnerName string) string {
	return fmt.Sprintf(`You are PyMaster AI, a friendly Python tutor for beginners.
You are talking with %s.
Answer questions about Python clearly and briefly, with small code examples when they help.
Encourage the learner to try things themselves before giving full solutions.`, learnerName)
}

// TutorGreeting is the opening line shown before the first turn.
func (p *Prompter) TutorGreeting(learnerName string) string {
	return fmt.Sprintf("Hi %s! I'm PyMaster AI. Do you have any Python questions I can help with?", learnerName)
}
