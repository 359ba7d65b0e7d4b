package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"filesorter/internal/models"
)

// Classifier files a batch of summaries into the taxonomy.
type Classifier interface {
	Classify(ctx context.Context, summaries []models.Summary) (models.ClassificationSpec, error)
}

// ChatClassifier sends one classification request through an eino chat model.
type ChatClassifier struct {
	chatModel model.BaseChatModel
}

func NewChatClassifier(chatModel model.BaseChatModel) (*ChatClassifier, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	return &ChatClassifier{chatModel: chatModel}, nil
}

func (c *ChatClassifier) Classify(ctx context.Context, summaries []models.Summary) (models.ClassificationSpec, error) {
	messages := []*schema.Message{
		schema.SystemMessage(classificationSystemPrompt),
		schema.UserMessage(BuildClassificationPrompt(summaries)),
	}
	resp, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, &ClassificationError{Err: fmt.Errorf("generate classification: %w", err)}
	}
	if resp == nil {
		return nil, &ClassificationError{Err: ErrEmptyResponse}
	}
	spec, err := ExtractJSON(resp.Content)
	if err != nil {
		return nil, &ClassificationError{Raw: resp.Content, Err: err}
	}
	return spec, nil
}
