package extraction

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const anthropicVersion = "bedrock-2023-05-31"

// Backend runs document inference and returns the model's raw text output.
type Backend interface {
	Extract(ctx context.Context, doc *Document, prompt string) (string, error)
}

// ModelInvoker is the subset of the Bedrock runtime client the backend uses.
type ModelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockOptions selects the model and sampling parameters.
type BedrockOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// BedrockBackend invokes an Anthropic model hosted on AWS Bedrock.
type BedrockBackend struct {
	client ModelInvoker
	opts   BedrockOptions
}

// NewBedrockBackend creates a backend over client.
func NewBedrockBackend(client ModelInvoker, opts BedrockOptions) *BedrockBackend {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	return &BedrockBackend{client: client, opts: opts}
}

// Model returns the configured model ID.
func (b *BedrockBackend) Model() string {
	return b.opts.Model
}

type contentSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type contentBlock struct {
	Type   string         `json:"type"`
	Text   string         `json:"text,omitempty"`
	Source *contentSource `json:"source,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type invokeRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	Messages         []message `json:"messages"`
}

type invokeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (b *BedrockBackend) Extract(ctx context.Context, doc *Document, prompt string) (string, error) {
	blockType := "image"
	if doc.IsPDF() {
		blockType = "document"
	}

	body, err := json.Marshal(invokeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        b.opts.MaxTokens,
		Temperature:      b.opts.Temperature,
		Messages: []message{{
			Role: "user",
			Content: []contentBlock{
				{
					Type: blockType,
					Source: &contentSource{
						Type:      "base64",
						MediaType: doc.MediaType,
						Data:      base64.StdEncoding.EncodeToString(doc.Data),
					},
				},
				{Type: "text", Text: prompt},
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.opts.Model),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("bedrock invoke %s: %w", b.opts.Model, err)
	}

	var resp invokeResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("decode bedrock response: %w", err)
	}

	var sb strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" || c.Type == "" {
			sb.WriteString(c.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("bedrock returned no text (stop_reason=%s)", resp.StopReason)
	}
	return text, nil
}
