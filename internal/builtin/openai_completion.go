package builtin

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/bluzky/prana/internal/action"
	"github.com/bluzky/prana/internal/domain"
)

// OpenAICompletionAction implements "openai.completion": a single chat
// completion call. The API key comes from params["api_key"] or falls
// back to $env.OPENAI_API_KEY so a workflow author never has to inline
// a secret into node params.
type OpenAICompletionAction struct {
	newClient func(apiKey string) *openai.Client
}

func NewOpenAICompletionAction() *OpenAICompletionAction {
	return &OpenAICompletionAction{newClient: openai.NewClient}
}

func (a *OpenAICompletionAction) Prepare(ctx context.Context, node *domain.Node) (any, error) {
	return nil, nil
}

func (a *OpenAICompletionAction) Execute(ctx context.Context, params map[string]any, ectx action.ExecContext) (action.Result, error) {
	apiKey, _ := params["api_key"].(string)
	if apiKey == "" {
		apiKey, _ = ectx.Env["OPENAI_API_KEY"].(string)
	}
	if apiKey == "" {
		return action.Failure(domain.NewError(domain.ErrCodeValidation, "openai.completion: api_key not set in params or $env.OPENAI_API_KEY", nil)), nil
	}
	model, _ := params["model"].(string)
	if model == "" {
		model = openai.GPT4oMini
	}
	prompt, _ := params["prompt"].(string)
	if prompt == "" {
		return action.Failure(domain.NewError(domain.ErrCodeValidation, "openai.completion: prompt is required", nil)), nil
	}
	maxTokens := 0
	if mt, ok := params["max_tokens"].(int64); ok {
		maxTokens = int(mt)
	}

	client := a.newClient(apiKey)
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return action.Failure(domain.NewError(domain.ErrCodeAction, fmt.Sprintf("openai.completion: %v", err), err).WithDetails(map[string]any{"error_type": "provider_error"})), nil
	}
	if len(resp.Choices) == 0 {
		return action.Failure(domain.NewError(domain.ErrCodeAction, "openai.completion: empty response", nil)), nil
	}
	return action.Success(map[string]any{
		"content":           resp.Choices[0].Message.Content,
		"finish_reason":     string(resp.Choices[0].FinishReason),
		"prompt_tokens":     int64(resp.Usage.PromptTokens),
		"completion_tokens": int64(resp.Usage.CompletionTokens),
	}), nil
}

func (a *OpenAICompletionAction) Resume(ctx context.Context, params map[string]any, ectx action.ExecContext, resumeData any) (action.Result, error) {
	return action.Failure(domain.NewError(domain.ErrCodeAction, "openai.completion never suspends", nil)), nil
}
