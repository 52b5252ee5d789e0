package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fitcoach/internal/llm"
	"fitcoach/internal/models"

	"github.com/prometheus/client_golang/prometheus"
)

// testMetrics builds an unregistered metrics set so tests never collide on
// the default Prometheus registry.
func testMetrics() *Metrics {
	return &Metrics{
		ChatRequests:       prometheus.NewCounter(prometheus.CounterOpts{Name: "test_chat_requests_total"}),
		ChatRequestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_chat_request_duration_seconds"}),
		ChatErrors:         prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_chat_errors_total"}, []string{"error_type"}),
		QuickActions:       prometheus.NewCounter(prometheus.CounterOpts{Name: "test_quick_actions_total"}),
		TrimmedMessages:    prometheus.NewCounter(prometheus.CounterOpts{Name: "test_trimmed_messages_total"}),
	}
}

type fakeUserStore struct {
	user        *models.User
	bumpedCoins int64
	bumpErr     error
	getErr      error
}

func (f *fakeUserStore) EnsureUser(ctx context.Context, userID, personalityOverride string) (*models.User, error) {
	return f.user, nil
}

func (f *fakeUserStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.user, nil
}

func (f *fakeUserStore) BumpCoins(ctx context.Context, userID string) (int64, error) {
	if f.bumpErr != nil {
		return 0, f.bumpErr
	}
	f.bumpedCoins++
	return f.user.Coins + f.bumpedCoins, nil
}

type fakeMessageStore struct {
	history  []models.Message
	recorded []models.Message
	trimmed  chan string
}

func (f *fakeMessageStore) RecordTurn(ctx context.Context, userID, role, content string) (*models.Message, error) {
	msg := models.Message{UserID: userID, Role: role, Content: content, CreatedAt: time.Now().UTC()}
	f.recorded = append(f.recorded, msg)
	return &msg, nil
}

func (f *fakeMessageStore) RecentHistory(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	if limit < len(f.history) {
		return f.history[len(f.history)-limit:], nil
	}
	return f.history, nil
}

func (f *fakeMessageStore) TrimHistory(ctx context.Context, userID string, keep int) (int64, error) {
	if f.trimmed != nil {
		f.trimmed <- userID
	}
	return 0, nil
}

type fakeCompleter struct {
	reply      string
	err        error
	gotSystem  string
	gotMessage string
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	f.gotSystem = systemPrompt
	f.gotMessage = userMessage
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestUser() *models.User {
	return &models.User{
		UserID:      "user-1",
		Personality: models.PersonalityGoalFinisher,
		Coins:       4,
		CreatedAt:   time.Now().UTC().Add(-48 * time.Hour),
	}
}

func TestSendMessageSuccess(t *testing.T) {
	users := &fakeUserStore{user: newTestUser()}
	messages := &fakeMessageStore{
		history: []models.Message{{Role: models.RoleUser, Content: "earlier question"}},
		trimmed: make(chan string, 1),
	}
	model := &fakeCompleter{reply: "Here is your plan.\n[[QUICK_ACTION:Suggest Warmup]]\n[[QUICK_ACTION:Diet Tips]]"}

	svc := NewChatService(users, messages, model, testMetrics(), nil, 10, 20)

	resp, err := svc.SendMessage(context.Background(), &models.ChatRequest{
		UserID:  "user-1",
		Message: "Plan my week",
	})
	if err != nil {
		t.Fatalf("SendMessage() error: %v", err)
	}

	if resp.Message != "Here is your plan." {
		t.Errorf("message = %q, want cleaned text", resp.Message)
	}
	if len(resp.QuickActions) != 2 || resp.QuickActions[0] != "Suggest Warmup" {
		t.Errorf("quickActions = %v", resp.QuickActions)
	}
	if resp.Role != models.RoleAI {
		t.Errorf("role = %q, want %q", resp.Role, models.RoleAI)
	}
	if resp.Coins != 5 {
		t.Errorf("coins = %d, want 5 after bump", resp.Coins)
	}

	// Prompt carries the prior history; the new message travels separately.
	if !strings.Contains(model.gotSystem, "earlier question") {
		t.Errorf("system prompt missing history:\n%s", model.gotSystem)
	}
	if strings.Contains(model.gotSystem, "Plan my week") {
		t.Errorf("new user message must not be embedded in the system prompt")
	}
	if model.gotMessage != "Plan my week" {
		t.Errorf("user message = %q", model.gotMessage)
	}

	// Both turns persisted, ai turn with the cleaned text.
	if len(messages.recorded) != 2 {
		t.Fatalf("recorded %d turns, want 2", len(messages.recorded))
	}
	if messages.recorded[0].Role != models.RoleUser || messages.recorded[0].Content != "Plan my week" {
		t.Errorf("first turn = %+v", messages.recorded[0])
	}
	if messages.recorded[1].Role != models.RoleAI || strings.Contains(messages.recorded[1].Content, "QUICK_ACTION") {
		t.Errorf("ai turn must be the cleaned text: %+v", messages.recorded[1])
	}

	// Retention trim fires asynchronously after the reply.
	select {
	case userID := <-messages.trimmed:
		if userID != "user-1" {
			t.Errorf("trimmed user = %q", userID)
		}
	case <-time.After(2 * time.Second):
		t.Error("expected async history trim")
	}
}

func TestSendMessageModelFailure(t *testing.T) {
	users := &fakeUserStore{user: newTestUser()}
	messages := &fakeMessageStore{}
	model := &fakeCompleter{err: llm.ErrTimeout}

	svc := NewChatService(users, messages, model, testMetrics(), nil, 10, 20)

	resp, err := svc.SendMessage(context.Background(), &models.ChatRequest{
		UserID:  "user-1",
		Message: "Plan my week",
	})
	if err != nil {
		t.Fatalf("model failure must degrade, not error: %v", err)
	}

	if resp.Message != FallbackReply {
		t.Errorf("message = %q, want fallback", resp.Message)
	}
	if len(resp.QuickActions) != 0 {
		t.Errorf("quickActions = %v, want empty", resp.QuickActions)
	}
	if resp.Coins != 4 {
		t.Errorf("coins = %d, want unchanged 4", resp.Coins)
	}
	if users.bumpedCoins != 0 {
		t.Error("coins must not be bumped on model failure")
	}

	// The user turn is persisted; the fallback is not.
	if len(messages.recorded) != 1 {
		t.Fatalf("recorded %d turns, want 1", len(messages.recorded))
	}
	if messages.recorded[0].Role != models.RoleUser {
		t.Errorf("persisted turn = %+v, want the user turn only", messages.recorded[0])
	}
}

func TestSendMessageCoinBumpFailureIsNotFatal(t *testing.T) {
	users := &fakeUserStore{user: newTestUser(), bumpErr: errors.New("write conflict")}
	messages := &fakeMessageStore{}
	model := &fakeCompleter{reply: "All good."}

	svc := NewChatService(users, messages, model, testMetrics(), nil, 10, 20)

	resp, err := svc.SendMessage(context.Background(), &models.ChatRequest{
		UserID:  "user-1",
		Message: "hi",
	})
	if err != nil {
		t.Fatalf("SendMessage() error: %v", err)
	}
	if resp.Coins != 4 {
		t.Errorf("coins = %d, want the pre-bump balance", resp.Coins)
	}
}

func TestResolveContextOverrides(t *testing.T) {
	now := time.Now().UTC()
	user := &models.User{
		Personality: models.PersonalityEncouragementSeeker,
		CreatedAt:   now.Add(-10 * 24 * time.Hour),
	}

	override := 2
	negative := -1
	steps := 9000.0

	tests := []struct {
		name            string
		req             *models.ChatRequest
		wantPersonality models.Personality
		wantUsageDays   int
	}{
		{
			name:            "no overrides uses stored and computed",
			req:             &models.ChatRequest{},
			wantPersonality: models.PersonalityEncouragementSeeker,
			wantUsageDays:   10,
		},
		{
			name:            "request personality wins",
			req:             &models.ChatRequest{Personality: string(models.PersonalityGoalFinisher)},
			wantPersonality: models.PersonalityGoalFinisher,
			wantUsageDays:   10,
		},
		{
			name:            "usage days override wins",
			req:             &models.ChatRequest{UsageDays: &override},
			wantPersonality: models.PersonalityEncouragementSeeker,
			wantUsageDays:   2,
		},
		{
			name:            "negative usage days override is ignored",
			req:             &models.ChatRequest{UsageDays: &negative},
			wantPersonality: models.PersonalityEncouragementSeeker,
			wantUsageDays:   10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := resolveContext(user, tt.req, now)
			if ctx.Personality != tt.wantPersonality {
				t.Errorf("personality = %q, want %q", ctx.Personality, tt.wantPersonality)
			}
			if ctx.UsageDays != tt.wantUsageDays {
				t.Errorf("usageDays = %d, want %d", ctx.UsageDays, tt.wantUsageDays)
			}
		})
	}

	t.Run("lifestyle passes through", func(t *testing.T) {
		ctx := resolveContext(user, &models.ChatRequest{Lifestyle: &models.Lifestyle{Steps: &steps}}, now)
		if ctx.Lifestyle.Steps == nil || *ctx.Lifestyle.Steps != 9000 {
			t.Errorf("lifestyle = %+v", ctx.Lifestyle)
		}
	})
}

func TestHistoryUnknownUser(t *testing.T) {
	users := &fakeUserStore{getErr: ErrUserNotFound}
	messages := &fakeMessageStore{}

	svc := NewChatService(users, messages, &fakeCompleter{}, testMetrics(), nil, 10, 20)

	_, err := svc.History(context.Background(), "ghost")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestHistoryMapsToWireFormat(t *testing.T) {
	when := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	users := &fakeUserStore{user: newTestUser()}
	messages := &fakeMessageStore{history: []models.Message{
		{Role: models.RoleUser, Content: "hello", CreatedAt: when},
		{Role: models.RoleAI, Content: "hi there", CreatedAt: when.Add(time.Second)},
	}}

	svc := NewChatService(users, messages, &fakeCompleter{}, testMetrics(), nil, 10, 20)

	history, err := svc.History(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("len = %d, want 2", len(history))
	}
	if history[0].Role != models.RoleUser || history[0].Content != "hello" {
		t.Errorf("history[0] = %+v", history[0])
	}
	if !history[1].CreatedAt.After(history[0].CreatedAt) {
		t.Error("history must be oldest first")
	}
}
