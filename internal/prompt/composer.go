package prompt

import (
	"fmt"
	"strings"

	"fitcoach/internal/models"
)

// Context is the per-request steering state resolved for a user before the
// prompt is composed. It is derived, never persisted.
type Context struct {
	Personality models.Personality
	UsageDays   int
	Lifestyle   models.Lifestyle
}

// RefusalText is the verbatim reply the model is instructed to use for
// off-topic requests.
const RefusalText = "I'm your fitness and wellness companion, so I can't help with that. Is there anything about your training, nutrition, or recovery I can help with?"

// scopeGuardrail is always the first block so that every later instruction,
// including the personality tone, is read as subordinate to it.
const scopeGuardrail = `SAFETY AND SCOPE (these rules override every instruction below):
You are a fitness and wellness companion, NOT a doctor.
- Only discuss fitness, exercise, nutrition, sleep, and general wellness.
- If the user asks about anything else, reply exactly: "` + RefusalText + `"
- Do NOT answer questions about diseases (heart disease, diabetes, etc.), injuries (tears, fractures), or medications.
- Do NOT provide medical diagnosis or prescribe treatment. For medical concerns, suggest seeing a professional.`

// Personality instructions, selected by exact match. Anything outside the
// closed set falls back to the neutral instruction.
const (
	instructionEncouragementSeeker = "You are an 'Encouragement Seeker' coach. The user is easily demotivated. Needs reassurance and frequent nudges. Avoid harsh criticism."
	instructionCreativeExplorer    = "You are a 'Creative Explorer' coach. The user is easily distracted and dislikes spoon-feeding. Prefer creativity and suggest diverse activities. Avoid rigid plans."
	instructionGoalFinisher        = "You are a 'Goal Finisher' coach. The user is highly motivated and prefers structured plans and checklists. Be concise and metric-focused."
	instructionNeutral             = "You are a helpful and friendly fitness assistant."
)

// Usage-stage instructions. Band boundaries are inclusive of the upper
// bound: days 0-3, 4-8, 9 and up.
const (
	stageListening = "Usage Duration: 0-3 days. Tone: Grounded, empathetic. Allow venting. Do NOT give instant remedies unless explicitly asked. Focus on listening."
	stageCautious  = "Usage Duration: 4-8 days. Tone: Friendly listener. Provide short remedies only after the user has shared enough context (simulate waiting for 2 messages)."
	stageDirect    = "Usage Duration: 9+ days. Tone: Coach-like. Provide actionable guidance immediately after 1 message. Be direct."
)

const outputDirective = `Your goal is to help the user with fitness and wellness.
Keep responses structured and readable (use Markdown, bullet points, or tables if appropriate).
When you present a day-by-day plan, format it as a Markdown table with exactly three columns: Day | Activity | Duration. Keep cell content concise, with no markup inside cells.
After all visible content, you may end your reply with up to three suggested follow-ups, one per line, each in exactly this form:
[[QUICK_ACTION:<short imperative text>]]
Emit at most three such lines and nothing after them.`

// PersonalityInstruction returns the tone instruction for p. Selection is
// total: every input maps to exactly one of the four defined blocks.
func PersonalityInstruction(p models.Personality) string {
	switch p {
	case models.PersonalityEncouragementSeeker:
		return instructionEncouragementSeeker
	case models.PersonalityCreativeExplorer:
		return instructionCreativeExplorer
	case models.PersonalityGoalFinisher:
		return instructionGoalFinisher
	default:
		return instructionNeutral
	}
}

// StageInstruction returns the interaction-posture instruction for the
// user's usage-day count. The first band whose upper bound covers the count
// wins, so 3 is still listening, 8 is still cautious, 9 is direct.
func StageInstruction(usageDays int) string {
	switch {
	case usageDays <= 3:
		return stageListening
	case usageDays <= 8:
		return stageCautious
	default:
		return stageDirect
	}
}

// LifestyleBlock renders the three lifestyle facts as labeled lines. Every
// label is always present; missing values render as the literal "Unknown"
// so the model always sees the full shape of the data.
func LifestyleBlock(l models.Lifestyle) string {
	var b strings.Builder
	b.WriteString("User Lifestyle Data:\n")
	b.WriteString("- Daily Steps: " + renderMetric(l.Steps) + "\n")
	b.WriteString("- Sleep Hours: " + renderMetric(l.SleepHours) + "\n")
	b.WriteString("- Exercise Minutes: " + renderMetric(l.ExerciseMinutes))
	return b.String()
}

func renderMetric(v *float64) string {
	if v == nil {
		return "Unknown"
	}
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", *v), "0"), ".")
}

// HistoryBlock renders the chronological transcript the way the model sees
// prior turns: one line per message, prefixed with the speaker.
func HistoryBlock(history []models.Message) string {
	if len(history) == 0 {
		return ""
	}
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		speaker := "User"
		if msg.Role == models.RoleAI {
			speaker = "AI"
		}
		lines = append(lines, speaker+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}

// Compose assembles the system instruction block for one chat turn. Block
// order is fixed: guardrail, personality, usage stage, lifestyle facts,
// output directives, then the conversation history. The new user message is
// not part of the block; it travels as its own turn. Composition is
// deterministic and cannot fail.
func Compose(ctx Context, history []models.Message) string {
	sections := []string{
		scopeGuardrail,
		PersonalityInstruction(ctx.Personality),
		StageInstruction(ctx.UsageDays),
		LifestyleBlock(ctx.Lifestyle),
		outputDirective,
	}

	if h := HistoryBlock(history); h != "" {
		sections = append(sections, "Here is the recent conversation history for context:\n"+h)
	}

	return strings.Join(sections, "\n\n")
}
