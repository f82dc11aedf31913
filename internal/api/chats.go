package api

import (
	"context"
	"fmt"
	"net/http"

	"tablero/internal/model"
)

func (c *Client) CreateChat(ctx context.Context, req model.CreateChatRequest) (model.Chat, error) {
	var chat model.Chat
	if err := c.do(ctx, http.MethodPost, "/chats", req, &chat); err != nil {
		return model.Chat{}, fmt.Errorf("create chat on item %s: %w", req.ItemID, err)
	}
	return chat, nil
}

func (c *Client) UpdateChat(ctx context.Context, chatID string, req model.UpdateChatRequest) (model.Chat, error) {
	var chat model.Chat
	if err := c.do(ctx, http.MethodPut, "/chats/"+seg(chatID), req, &chat); err != nil {
		return model.Chat{}, fmt.Errorf("update chat %s: %w", chatID, err)
	}
	return chat, nil
}

func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	if err := c.do(ctx, http.MethodDelete, "/chats/"+seg(chatID), nil, nil); err != nil {
		return fmt.Errorf("delete chat %s: %w", chatID, err)
	}
	return nil
}

func (c *Client) CreateReply(ctx context.Context, req model.CreateReplyRequest) (model.ChatReply, error) {
	var reply model.ChatReply
	if err := c.do(ctx, http.MethodPost, "/chats/"+seg(req.ChatID)+"/replies", req, &reply); err != nil {
		return model.ChatReply{}, fmt.Errorf("reply to chat %s: %w", req.ChatID, err)
	}
	return reply, nil
}

func (c *Client) DeleteReply(ctx context.Context, chatID, replyID string) error {
	if err := c.do(ctx, http.MethodDelete, "/chats/"+seg(chatID)+"/replies/"+seg(replyID), nil, nil); err != nil {
		return fmt.Errorf("delete reply %s: %w", replyID, err)
	}
	return nil
}
