package models

import "time"

// Lifestyle carries the optional health metrics the client reads from the
// device. All fields are optional; absent values render as "Unknown" in the
// prompt rather than being dropped.
type Lifestyle struct {
	Steps           *float64 `json:"steps,omitempty"`
	SleepHours      *float64 `json:"sleepHours,omitempty"`
	ExerciseMinutes *float64 `json:"exerciseMinutes,omitempty"`
}

// ChatRequest is the body of POST /api/chat. UserID and Message are
// required; everything else overrides stored or computed state for this
// request only (personality overrides also persist to the user record).
type ChatRequest struct {
	UserID      string     `json:"userId"`
	Message     string     `json:"message"`
	Lifestyle   *Lifestyle `json:"lifestyle,omitempty"`
	Personality string     `json:"personality,omitempty"`
	UsageDays   *int       `json:"usageDays,omitempty"`
}

// ChatResponse is the reply to POST /api/chat. Message is the cleaned
// assistant text (quick-action tokens stripped); QuickActions preserves
// their encounter order, at most three.
type ChatResponse struct {
	Message      string    `json:"message"`
	Role         string    `json:"role"`
	QuickActions []string  `json:"quickActions"`
	Timestamp    time.Time `json:"timestamp"`
	Coins        int64     `json:"coins"`
}
