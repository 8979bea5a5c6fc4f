package generator

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/avatarlabs/chatbot-backend/internal/config"
	"github.com/avatarlabs/chatbot-backend/internal/model/chat"
)

// ArkGenerator runs generation through an Ark chat model behind an
// eino template + model chain.
type ArkGenerator struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewArkGenerator compiles the generation chain from configuration.
func NewArkGenerator(ctx context.Context, cfg config.AIConfig) (*ArkGenerator, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile generation chain: %w", err)
	}

	return &ArkGenerator{chain: runnable}, nil
}

// Generate invokes the chain with the assembled context. The ctx
// deadline bounds the whole model call.
func (g *ArkGenerator) Generate(ctx context.Context, gc chat.GenerationContext) (Answer, error) {
	input := map[string]any{
		"system":  gc.System,
		"history": historyMessages(gc.History),
		"query":   gc.Message,
	}

	response, err := g.chain.Invoke(ctx, input)
	if err != nil {
		return Answer{}, fmt.Errorf("failed to run generation chain: %w", err)
	}

	answer := Answer{Markdown: response.Content}
	if response.ResponseMeta != nil && response.ResponseMeta.Usage != nil {
		answer.Usage = &Usage{
			InputTokens:  response.ResponseMeta.Usage.PromptTokens,
			OutputTokens: response.ResponseMeta.Usage.CompletionTokens,
		}
	}

	log.Printf("[generator] produced answer length=%d", len(response.Content))
	return answer, nil
}

func (g *ArkGenerator) Ready() bool { return g.chain != nil }

// historyMessages renders prior turns oldest-first as alternating
// user/assistant messages. Assistant turns use the plain text form so
// markup never leaks into the prompt.
func historyMessages(turns []chat.Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(turns)*2)
	for _, turn := range turns {
		history = append(history, schema.UserMessage(turn.UserMessage))
		history = append(history, schema.AssistantMessage(turn.Answer.PlainText, nil))
	}
	return history
}
