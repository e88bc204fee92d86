package rewrite

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	defaultChatEndpoint = "https://api.openai.com/v1/chat/completions"
	defaultChatModel    = "gpt-4o-mini"
	chatTimeout         = 60 * time.Second
)

// ChatClient is the completion backend the engine talks to. Tests
// substitute a canned implementation.
type ChatClient interface {
	Complete(system string, user string, temperature float64) (string, error)
}

// OpenAIClient implements ChatClient against the chat completions API.
type OpenAIClient struct {
	Endpoint string
	Model    string
	apiKey   string
	client   *http.Client
}

// NewOpenAIClient reads OPENAI_API_KEY and OPENAI_MODEL from the
// environment. The key check happens at call time so construction in
// an unconfigured environment stays cheap.
func NewOpenAIClient() *OpenAIClient {
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = defaultChatModel
	}
	return &OpenAIClient{
		Endpoint: defaultChatEndpoint,
		Model:    model,
		apiKey:   os.Getenv("OPENAI_API_KEY"),
		client:   &http.Client{Timeout: chatTimeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) Complete(system string, user string, temperature float64) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("OPENAI_API_KEY fehlt")
	}

	payload, err := json.Marshal(chatRequest{
		Model:       c.Model,
		Temperature: temperature,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest("POST", c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	if res.StatusCode >= 300 {
		return "", errors.Errorf("chat completion failed with status %d: %s", res.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.Wrap(err, "ungueltige Chat-Antwort")
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("ungueltige Chat-Antwort: keine choices")
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("Chat-Backend lieferte keinen Inhalt")
	}
	return content, nil
}
