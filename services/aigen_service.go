package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/utils/jsonx"
	"gorm.io/datatypes"
)

// fallbackArticle is served when the generative API is unreachable or returns
// something unparseable; the lesson is still created.
const fallbackArticle = "We could not generate this lesson automatically right now. " +
	"Please edit this article with your own content, or retry generation later."

// AIGenService drafts lesson content by calling an external generative-text
// API. Responses are JSON, usually wrapped in markdown fences.
type AIGenService struct {
	client *resty.Client
	apiURL string
	apiKey string
}

// NewAIGenService creates a new AI generation service
func NewAIGenService(apiURL, apiKey string) *AIGenService {
	client := resty.New().
		SetTimeout(60 * time.Second)

	return &AIGenService{
		client: client,
		apiURL: apiURL,
		apiKey: apiKey,
	}
}

// generateResponse is the provider's completion payload
type generateResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateLessonContent asks the model for a content document of the given
// lesson type. On any failure it degrades to a static article body so the
// authoring flow never breaks.
func (s *AIGenService) GenerateLessonContent(ctx context.Context, topic string, lessonType model.LessonType) (datatypes.JSON, model.LessonType) {
	content, err := s.generate(ctx, topic, lessonType)
	if err != nil {
		log.Printf("Lesson generation failed for topic %q: %v", topic, err)
		return fallbackContent(), model.LessonTypeArticle
	}
	return content, lessonType
}

func (s *AIGenService) generate(ctx context.Context, topic string, lessonType model.LessonType) (datatypes.JSON, error) {
	if s.apiURL == "" || s.apiKey == "" {
		return nil, fmt.Errorf("generative API not configured")
	}

	prompt := fmt.Sprintf(
		"Generate %s lesson content for the topic %q. "+
			"Respond with a single JSON object whose only top-level key is %q.",
		lessonType, topic, lessonType,
	)

	var completion generateResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.apiKey).
		SetBody(map[string]interface{}{
			"messages": []map[string]string{
				{"role": "user", "content": prompt},
			},
			"temperature": 0.7,
		}).
		SetResult(&completion).
		Post(s.apiURL + "/chat/completions")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("generative API returned status %d", resp.StatusCode())
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("generative API returned no choices")
	}

	var doc map[string]json.RawMessage
	if err := jsonx.ExtractTo(completion.Choices[0].Message.Content, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse generated content: %w", err)
	}
	if _, ok := doc[string(lessonType)]; !ok {
		return nil, fmt.Errorf("generated content missing %q key", lessonType)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// fallbackContent builds the static apology article document
func fallbackContent() datatypes.JSON {
	doc := map[string]interface{}{
		string(model.LessonTypeArticle): model.ArticleContent{Body: fallbackArticle},
	}
	raw, _ := json.Marshal(doc)
	return datatypes.JSON(raw)
}
