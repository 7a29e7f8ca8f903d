package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/deusflow/musive/internal/judge"
	"github.com/deusflow/musive/internal/news"
)

const DefaultModel = "gemini-1.5-flash"

var errEmptyResponse = errors.New("no response from Gemini")

// Client serves both judge roles from one Gemini model.
type Client struct {
	client    *genai.Client
	modelName string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{client: client, modelName: model}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// jsonModel returns a model configured for short structured replies.
func (c *Client) jsonModel(instructions string) *genai.GenerativeModel {
	model := c.client.GenerativeModel(c.modelName)
	model.SetTemperature(0.3)
	model.ResponseMIMEType = "application/json"
	if instructions != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(instructions))
	}
	return model
}

func (c *Client) Classify(ctx context.Context, title, excerpt string) (news.Classification, error) {
	model := c.jsonModel(judge.ClassifierInstructions)

	resp, err := model.GenerateContent(ctx, genai.Text(judge.ClassifierInput(title, excerpt)))
	if err != nil {
		return news.Rejected, fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return news.Rejected, err
	}
	return judge.ParseClassification(text)
}

func (c *Client) FindDuplicates(ctx context.Context, items []news.Item) ([]int, error) {
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("error make JSON: %w", err)
	}

	model := c.jsonModel("")
	resp, err := model.GenerateContent(ctx, genai.Text(judge.DuplicatePrompt(payload)))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}
	return judge.ParseIndices(text)
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errEmptyResponse
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return "", errEmptyResponse
	}

	var b strings.Builder
	for _, part := range content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", errEmptyResponse
	}
	return b.String(), nil
}

var (
	_ news.Classifier     = (*Client)(nil)
	_ news.DuplicateJudge = (*Client)(nil)
)
