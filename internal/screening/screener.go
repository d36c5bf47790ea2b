package screening

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/dakarlabs/caisse-bot/internal/models"
)

const systemPrompt = "Tu assistes le contrôle interne d'une caisse d'avances. " +
	"On te donne une demande de fonds ; réponds en une seule phrase courte " +
	"signalant tout élément inhabituel (montant, motif, date), ou \"RAS\" si rien ne ressort."

// Screener produces a short risk note on a submitted funding request
// for the admin notification. It is strictly best effort and disabled
// without an API key.
type Screener struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewScreener creates a screener; it returns nil when no API key is
// configured, and callers treat a nil screener as disabled.
func NewScreener(apiKey, model string, logger *zap.Logger) *Screener {
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Screener{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

// Screen returns a one-line note on the request, or an empty string
// when nothing stands out.
func (s *Screener) Screen(ctx context.Context, req *models.FundingRequest) (string, error) {
	prompt := fmt.Sprintf(
		"Demande %s : %s %s, motif %q, date souhaitée %s, demandeur %s.",
		req.RequestID, req.Amount.String(), req.Currency, req.Reason,
		req.RequestedDate, req.SubmittedBy)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
		MaxTokens:   120,
	})
	if err != nil {
		return "", fmt.Errorf("screening request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}

	note := strings.TrimSpace(resp.Choices[0].Message.Content)
	if note == "" || strings.EqualFold(note, "RAS") {
		return "", nil
	}
	return note, nil
}
