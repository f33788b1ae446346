package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramClient is a minimal Bot API client covering the calls the
// pipeline needs.
type TelegramClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// TelegramOption configures a TelegramClient.
type TelegramOption func(*TelegramClient)

// WithTelegramBaseURL overrides the API host (for testing).
func WithTelegramBaseURL(baseURL string) TelegramOption {
	return func(c *TelegramClient) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithTelegramHTTPClient overrides the HTTP client.
func WithTelegramHTTPClient(client *http.Client) TelegramOption {
	return func(c *TelegramClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewTelegramClient builds a client for the given bot token.
func NewTelegramClient(token string, opts ...TelegramOption) *TelegramClient {
	c := &TelegramClient{
		baseURL:    telegramAPIBase,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type sentMessage struct {
	MessageID int64 `json:"message_id"`
}

// Update is one inbound bot update.
type Update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		MessageID int64  `json:"message_id"`
		Text      string `json:"text"`
		From      *struct {
			ID       int64  `json:"id"`
			Username string `json:"username"`
		} `json:"from"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// SendMessage posts text to a chat and returns the new message ID.
func (c *TelegramClient) SendMessage(ctx context.Context, chatID int64, text string) (int64, error) {
	var msg sentMessage
	err := c.call(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	}, &msg)
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// EditMessage replaces the text of a previously sent message. Edits whose
// text matches the current content are reported as errors by the API;
// those are swallowed because the rendering is already on screen.
func (c *TelegramClient) EditMessage(ctx context.Context, chatID, messageID int64, text string) error {
	err := c.call(ctx, "editMessageText", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}, nil)
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

// GetUpdates long-polls for new updates after offset.
func (c *TelegramClient) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	var updates []Update
	err := c.call(ctx, "getUpdates", map[string]any{
		"offset":  offset,
		"timeout": int(timeout.Seconds()),
	}, &updates)
	return updates, err
}

// SendDocument uploads a file to a chat. Used to deliver the full result
// artifact alongside the summary message.
func (c *TelegramClient) SendDocument(ctx context.Context, chatID int64, filename string, content []byte, caption string) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("chat_id", fmt.Sprintf("%d", chatID)); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
	}
	part, err := writer.CreateFormFile("document", filename)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendDocument"), &body)
	if err != nil {
		return fmt.Errorf("build sendDocument request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.doRequest(req, nil)
}

func (c *TelegramClient) call(ctx context.Context, method string, params map[string]any, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doRequest(req, out)
}

func (c *TelegramClient) doRequest(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("telegram response: %w", err)
	}
	var parsed apiResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return fmt.Errorf("telegram response: decode: %w", err)
	}
	if !parsed.OK {
		return fmt.Errorf("telegram api: %s", parsed.Description)
	}
	if out != nil && len(parsed.Result) > 0 {
		if err := json.Unmarshal(parsed.Result, out); err != nil {
			return fmt.Errorf("telegram response: decode result: %w", err)
		}
	}
	return nil
}

func (c *TelegramClient) methodURL(method string) string {
	return c.baseURL + "/bot" + c.token + "/" + method
}

// TelegramSink renders progress into a single chat message, creating it on
// the first update and editing it afterwards.
type TelegramSink struct {
	client *TelegramClient
	chatID int64

	mu        sync.Mutex
	messageID int64
}

// NewTelegramSink targets one chat.
func NewTelegramSink(client *TelegramClient, chatID int64) *TelegramSink {
	return &TelegramSink{client: client, chatID: chatID}
}

func (s *TelegramSink) Update(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.messageID == 0 {
		id, err := s.client.SendMessage(ctx, s.chatID, text)
		if err != nil {
			return err
		}
		s.messageID = id
		return nil
	}
	return s.client.EditMessage(ctx, s.chatID, s.messageID, text)
}

func (s *TelegramSink) Done(ctx context.Context, text string) error {
	return s.Update(ctx, text)
}
