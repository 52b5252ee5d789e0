package services

import (
	"context"
	"errors"
	"log"
	"time"

	"fitcoach/internal/llm"
	"fitcoach/internal/models"
	"fitcoach/internal/prompt"
)

// FallbackReply stands in for the assistant's turn when the model call
// fails. It is returned to the client but never persisted: a fabricated
// assistant message would poison future prompt history with text the model
// never produced. The user's message is still recorded.
const FallbackReply = "Sorry, I'm having trouble thinking right now. Please try again in a moment."

// UserStore is the slice of the user gateway the orchestrator needs.
type UserStore interface {
	EnsureUser(ctx context.Context, userID, personalityOverride string) (*models.User, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	BumpCoins(ctx context.Context, userID string) (int64, error)
}

// MessageStore is the slice of the conversation gateway the orchestrator needs.
type MessageStore interface {
	RecordTurn(ctx context.Context, userID, role, content string) (*models.Message, error)
	RecentHistory(ctx context.Context, userID string, limit int) ([]models.Message, error)
	TrimHistory(ctx context.Context, userID string, keep int) (int64, error)
}

// Completer is the model-provider boundary: one prompt in, raw text out.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// ChatService sequences one chat turn: resolve context, load history,
// compose the prompt, call the model, interpret the reply, persist both
// turns, and kick off the retention trim.
type ChatService struct {
	users      UserStore
	messages   MessageStore
	model      Completer
	metrics    *Metrics
	engagement *EngagementService // optional, may be nil

	historyWindow int
	historyKeep   int
}

// NewChatService creates the chat orchestrator. engagement may be nil.
func NewChatService(users UserStore, messages MessageStore, model Completer, metrics *Metrics, engagement *EngagementService, historyWindow, historyKeep int) *ChatService {
	if historyWindow <= 0 {
		historyWindow = 10
	}
	if historyKeep <= 0 {
		historyKeep = 20
	}

	return &ChatService{
		users:         users,
		messages:      messages,
		model:         model,
		metrics:       metrics,
		engagement:    engagement,
		historyWindow: historyWindow,
		historyKeep:   historyKeep,
	}
}

// resolveContext applies the override → stored state → computed default
// chain for each steering field.
func resolveContext(user *models.User, req *models.ChatRequest, now time.Time) prompt.Context {
	personality := user.Personality
	if req.Personality != "" {
		personality = models.Personality(req.Personality)
	}

	usageDays := user.UsageDays(now)
	if req.UsageDays != nil && *req.UsageDays >= 0 {
		usageDays = *req.UsageDays
	}

	var lifestyle models.Lifestyle
	if req.Lifestyle != nil {
		lifestyle = *req.Lifestyle
	}

	return prompt.Context{
		Personality: personality,
		UsageDays:   usageDays,
		Lifestyle:   lifestyle,
	}
}

// SendMessage processes one chat turn and returns the shaped reply.
// Validation of required fields happens in the handler, before any store
// access.
func (s *ChatService) SendMessage(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	started := time.Now()
	s.metrics.RecordChatRequest()
	defer func() {
		s.metrics.RecordChatLatency(time.Since(started).Seconds())
	}()

	user, err := s.users.EnsureUser(ctx, req.UserID, req.Personality)
	if err != nil {
		s.metrics.RecordChatError("store")
		return nil, err
	}

	coachCtx := resolveContext(user, req, time.Now().UTC())

	history, err := s.messages.RecentHistory(ctx, req.UserID, s.historyWindow)
	if err != nil {
		s.metrics.RecordChatError("store")
		return nil, err
	}

	systemPrompt := prompt.Compose(coachCtx, history)

	raw, err := s.model.Complete(ctx, systemPrompt, req.Message)
	if err != nil {
		if errors.Is(err, llm.ErrTimeout) {
			s.metrics.RecordChatError("model_timeout")
		} else {
			s.metrics.RecordChatError("model")
		}
		log.Printf("❌ Model call failed for %s: %v", req.UserID, err)

		// The user turn is still part of the conversation; the fallback is
		// display-only and deliberately not recorded as an ai turn.
		if _, err := s.messages.RecordTurn(ctx, req.UserID, models.RoleUser, req.Message); err != nil {
			s.metrics.RecordChatError("store")
			return nil, err
		}

		return &models.ChatResponse{
			Message:      FallbackReply,
			Role:         models.RoleAI,
			QuickActions: []string{},
			Timestamp:    time.Now().UTC(),
			Coins:        user.Coins,
		}, nil
	}

	displayText, quickActions := prompt.ExtractQuickActions(raw)
	s.metrics.RecordQuickActions(len(quickActions))

	if _, err := s.messages.RecordTurn(ctx, req.UserID, models.RoleUser, req.Message); err != nil {
		s.metrics.RecordChatError("store")
		return nil, err
	}

	// The cleaned text is what gets persisted, so replayed history never
	// re-feeds quick-action tokens to the model.
	aiMsg, err := s.messages.RecordTurn(ctx, req.UserID, models.RoleAI, displayText)
	if err != nil {
		s.metrics.RecordChatError("store")
		return nil, err
	}

	coins, err := s.users.BumpCoins(ctx, req.UserID)
	if err != nil {
		// The reply is already durable; a missed coin bump is not worth a 500.
		log.Printf("⚠️  Failed to bump coins for %s: %v", req.UserID, err)
		coins = user.Coins
	}

	if s.engagement != nil {
		s.engagement.RecordMessage(ctx)
	}

	// Fire-and-forget retention trim, decoupled from the response path.
	go s.trimAsync(req.UserID)

	if quickActions == nil {
		quickActions = []string{}
	}

	return &models.ChatResponse{
		Message:      displayText,
		Role:         models.RoleAI,
		QuickActions: quickActions,
		Timestamp:    aiMsg.CreatedAt,
		Coins:        coins,
	}, nil
}

// trimAsync runs the retention trim outside the request lifecycle. Failures
// are logged, never surfaced.
func (s *ChatService) trimAsync(userID string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️  History trim panicked for %s: %v", userID, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	deleted, err := s.messages.TrimHistory(ctx, userID, s.historyKeep)
	if err != nil {
		log.Printf("⚠️  History trim failed for %s: %v", userID, err)
		return
	}
	s.metrics.RecordTrimmedMessages(deleted)
}

// History returns the user's most recent retained messages, oldest first.
// Unknown users get ErrUserNotFound; creation is not implied on reads.
func (s *ChatService) History(ctx context.Context, userID string) ([]models.HistoryMessage, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	messages, err := s.messages.RecentHistory(ctx, userID, s.historyKeep)
	if err != nil {
		return nil, err
	}

	history := make([]models.HistoryMessage, 0, len(messages))
	for i := range messages {
		history = append(history, messages[i].ToHistory())
	}

	return history, nil
}
