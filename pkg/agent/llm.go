package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
)

const llmMaxRetries = 3

// generateJSON asks the model for JSON-mode output and validates it with the
// provided function, retrying with linear backoff on model errors or
// malformed output.
func generateJSON(ctx context.Context, model llms.Model, modelName string, logger *slog.Logger, system, input string, validate func(string) error) (string, error) {
	prompts := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, input),
	}

	opts := []llms.CallOption{llms.WithJSONMode()}
	if modelName != "" {
		opts = append(opts, llms.WithModel(modelName))
	}

	var lastErr error
	for i := 0; i < llmMaxRetries; i++ {
		if i > 0 {
			logger.Warn("Retrying LLM generation", "attempt", i+1, "last_error", lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Second * time.Duration(i)):
			}
		}

		resp, err := model.GenerateContent(ctx, prompts, opts...)
		if err != nil {
			lastErr = fmt.Errorf("llm generation failed: %w", err)
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("llm returned no choices")
			continue
		}

		content := resp.Choices[0].Content
		if err := validate(content); err != nil {
			lastErr = fmt.Errorf("validation failed: %w", err)
			continue
		}
		return content, nil
	}

	return "", fmt.Errorf("operation failed after %d retries: %w", llmMaxRetries, lastErr)
}

// generateText is the plain-text variant for summaries and final answers.
func generateText(ctx context.Context, model llms.Model, modelName string, system, input string) (string, error) {
	prompts := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, input),
	}

	var opts []llms.CallOption
	if modelName != "" {
		opts = append(opts, llms.WithModel(modelName))
	}

	resp, err := model.GenerateContent(ctx, prompts, opts...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	return resp.Choices[0].Content, nil
}
