package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"octopus/internal/trust/agents"
	"octopus/internal/trust/models"
)

const (
	defaultClassifierModel = "claude-3-5-haiku-latest"
	classifierMaxTokens    = 1024
)

const classifierPrompt = `You audit customer reviews of local service businesses.
For each numbered review below, decide whether it reads as machine-generated or templated.
Answer with only a JSON array of booleans, one per review, in order. true means generated.`

// AnthropicClassifier implements agents.TextClassifier with a single
// Messages call per evaluation.
type AnthropicClassifier struct {
	client sdk.Client
	model  string
}

// NewAnthropicClassifier builds the classifier. Extra request options (base
// URL, retries) are passed through to the SDK client.
func NewAnthropicClassifier(apiKey, model string, opts ...option.RequestOption) *AnthropicClassifier {
	if model == "" {
		model = defaultClassifierModel
	}
	all := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicClassifier{
		client: sdk.NewClient(all...),
		model:  model,
	}
}

func (c *AnthropicClassifier) Generated(ctx context.Context, texts []string) ([]bool, error) {
	var b strings.Builder
	for i, t := range texts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.ReplaceAll(t, "\n", " "))
	}

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   classifierMaxTokens,
		System:      []sdk.TextBlockParam{{Text: classifierPrompt}},
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(b.String()))},
		Temperature: sdk.Float(0),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return nil, &agents.PortError{Port: "anthropic", StatusCode: apiErr.StatusCode, Err: err}
		}
		return nil, &agents.PortError{Port: "anthropic", Err: err}
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	flags, err := parseFlags(text.String())
	if err != nil {
		return nil, agents.NewAgentError(models.AgentReviewEntropy, agents.CategoryBadData, "unparseable classifier answer", err)
	}
	if len(flags) != len(texts) {
		return nil, agents.NewAgentError(models.AgentReviewEntropy, agents.CategoryBadData,
			fmt.Sprintf("classifier labelled %d of %d reviews", len(flags), len(texts)), nil)
	}
	return flags, nil
}

// parseFlags extracts the first JSON array from the model's answer.
func parseFlags(answer string) ([]bool, error) {
	start := strings.Index(answer, "[")
	end := strings.LastIndex(answer, "]")
	if start < 0 || end < start {
		return nil, errors.New("no JSON array in answer")
	}
	var flags []bool
	if err := json.Unmarshal([]byte(answer[start:end+1]), &flags); err != nil {
		return nil, err
	}
	return flags, nil
}
