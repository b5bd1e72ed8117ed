package pitch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/vani-hq/vani/internal/database/models"
	"gorm.io/gorm"
)

// ErrNotConfigured is returned when no OpenAI API key was supplied.
var ErrNotConfigured = errors.New("AI provider not configured")

const systemPrompt = `You are a B2B sales copywriter. Write a short, personalized
outreach pitch as clean HTML (no <html> or <body> wrapper). Reference the
prospect's role and company where known. Keep it under 150 words and end with
a single clear call to action.`

// Generator produces AI-personalized pitches and target recommendations.
type Generator struct {
	client *openai.Client
	model  string
	db     *gorm.DB
	logger *slog.Logger
}

func NewGenerator(apiKey, model string, db *gorm.DB, logger *slog.Logger) *Generator {
	g := &Generator{model: model, db: db, logger: logger}
	if apiKey != "" {
		g.client = openai.NewClient(apiKey)
	}
	return g
}

// GeneratePitch builds a prompt from the target and its linked company,
// calls the model, and persists the result. The upstream call is synchronous
// and not retried; a failure surfaces to the caller.
func (g *Generator) GeneratePitch(ctx context.Context, target *models.Target, createdBy *models.User) (*models.GeneratedPitch, error) {
	if g.client == nil {
		return nil, ErrNotConfigured
	}

	var company *models.Company
	if target.CompanyID != nil {
		var c models.Company
		if err := g.db.WithContext(ctx).First(&c, *target.CompanyID).Error; err == nil {
			company = &c
		}
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Prospect: %s", target.Name)
	if target.Title != "" {
		fmt.Fprintf(&prompt, ", %s", target.Title)
	}
	if target.Seniority != "" {
		fmt.Fprintf(&prompt, " (%s)", target.Seniority)
	}
	if company != nil {
		fmt.Fprintf(&prompt, "\nCompany: %s", company.Name)
		if company.Description != "" {
			fmt.Fprintf(&prompt, " - %s", company.Description)
		}
	}
	prompt.WriteString("\nWrite the outreach pitch now.")

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt.String()},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("generating pitch: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("model returned no choices")
	}

	record := models.GeneratedPitch{
		TargetID:         target.ID,
		HTMLContent:      resp.Choices[0].Message.Content,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		IndustryID:       target.IndustryID,
		CreatedByID:      createdBy.ID,
	}
	if err := g.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("persisting pitch: %w", err)
	}

	g.logger.Info("generated pitch",
		"target_id", target.ID,
		"model", resp.Model,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	return &record, nil
}

// IdentifyInput narrows the AI target recommendation request.
type IdentifyInput struct {
	Industry     string
	Limit        int
	MinSeniority string
}

// Recommendation is one AI-suggested prospect profile.
type Recommendation struct {
	Name      string `json:"name"`
	Title     string `json:"title"`
	Seniority string `json:"seniority"`
	Company   string `json:"company"`
	Rationale string `json:"rationale"`
}

const identifyPrompt = `You identify B2B sales prospects. Respond with a JSON
object of the form {"recommendations": [{"name": "...", "title": "...",
"seniority": "...", "company": "...", "rationale": "..."}]}. Suggest realistic
role profiles, not real individuals.`

// IdentifyTargets asks the model for recommended prospect profiles in the
// given industry. The response is requested in JSON mode and parsed strictly.
func (g *Generator) IdentifyTargets(ctx context.Context, input IdentifyInput) ([]Recommendation, error) {
	if g.client == nil {
		return nil, ErrNotConfigured
	}
	if input.Limit <= 0 || input.Limit > 25 {
		input.Limit = 10
	}

	user := fmt.Sprintf("Industry: %s\nHow many: %d", input.Industry, input.Limit)
	if input.MinSeniority != "" {
		user += fmt.Sprintf("\nMinimum seniority: %s", input.MinSeniority)
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: identifyPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("identifying targets: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("model returned no choices")
	}

	var parsed struct {
		Recommendations []Recommendation `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("parsing recommendations: %w", err)
	}

	if len(parsed.Recommendations) > input.Limit {
		parsed.Recommendations = parsed.Recommendations[:input.Limit]
	}
	return parsed.Recommendations, nil
}
