package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// Gateway delivers workflow messages and forms through Lark. It
// implements caisse.Notifier; a non-ok API response is reported as an
// error so callers can treat it as a soft failure.
type Gateway struct {
	client *Client
	logger *zap.Logger
}

// NewGateway creates a chat gateway on top of the Lark client.
func NewGateway(client *Client, logger *zap.Logger) *Gateway {
	return &Gateway{client: client, logger: logger}
}

// receiveIDType infers the receive_id_type from the target identifier:
// chats are "oc_"-prefixed, users are open IDs.
func receiveIDType(target string) string {
	if strings.HasPrefix(target, "oc_") {
		return "chat_id"
	}
	return "open_id"
}

// PostMessage sends a plain text message to a user or channel.
func (g *Gateway) PostMessage(ctx context.Context, target, text string) error {
	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to encode message content: %w", err)
	}
	return g.send(ctx, target, "text", string(content))
}

// PostCard sends an interactive card (a form or a button prompt).
func (g *Gateway) PostCard(ctx context.Context, target string, card Card) error {
	content, err := card.Render()
	if err != nil {
		return err
	}
	return g.send(ctx, target, "interactive", content)
}

// UpdateCard patches a previously posted interactive card in place,
// e.g. to replace action buttons with the decision outcome.
func (g *Gateway) UpdateCard(ctx context.Context, messageID string, card Card) error {
	content, err := card.Render()
	if err != nil {
		return err
	}

	req := larkim.NewPatchMessageReqBuilder().
		MessageId(messageID).
		Body(larkim.NewPatchMessageReqBodyBuilder().
			Content(content).
			Build()).
		Build()

	resp, err := g.client.client.Im.Message.Patch(ctx, req)
	if err != nil {
		g.logger.Error("Failed to patch message",
			zap.String("message_id", messageID),
			zap.Error(err))
		return fmt.Errorf("failed to patch message: %w", err)
	}
	if !resp.Success() {
		g.logger.Error("Message patch rejected",
			zap.String("message_id", messageID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("chat API error: code=%d msg=%s", resp.Code, resp.Msg)
	}
	return nil
}

func (g *Gateway) send(ctx context.Context, target, msgType, content string) error {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType(target)).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(target).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := g.client.client.Im.Message.Create(ctx, req)
	if err != nil {
		g.logger.Error("Failed to send message",
			zap.String("target", target),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}
	if !resp.Success() {
		g.logger.Error("Message rejected by chat API",
			zap.String("target", target),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("chat API error: code=%d msg=%s", resp.Code, resp.Msg)
	}
	return nil
}
