package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
)

const (
	defaultModel   = "gemini-1.5-flash"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1/models"
	requestTimeout = 15 * time.Second

	// maxResponseSize bounds how much of a model reply is read.
	maxResponseSize = 1 << 20
)

// ErrMissingAPIKey is returned before any network call when no credential is
// configured.
var ErrMissingAPIKey = errors.New("gemini api key is not set")

// Client calls the Gemini generateContent endpoint.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// NewClient creates a Gemini client. An empty model selects the default.
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

// Generate sends the prompt and returns the first candidate's text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	payload, err := sonic.ConfigStd.Marshal(generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return "", err
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := sonic.ConfigStd.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		if parsed.Error.Message != "" {
			return "", fmt.Errorf("gemini: %s", parsed.Error.Message)
		}
		return "", fmt.Errorf("gemini: unexpected status %d", res.StatusCode)
	}
	for _, cand := range parsed.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return part.Text, nil
			}
		}
	}
	return "", errors.New("gemini returned no response")
}
