package services

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"skillbridge/recommender/internal/models"
)

// AdvisorService turns a tech-stack diff into a short prioritized learning
// plan. It is strictly additive: pipeline state never depends on it, and a
// failed call degrades to an empty plan.
type AdvisorService interface {
	LearningPlan(ctx context.Context, diff models.StackDiff, title string) (string, error)
}

type advisorService struct {
	client    *genai.Client
	modelName string
}

func NewAdvisorService(apiKey string) (AdvisorService, error) {
	ctx := context.Background()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &advisorService{
		client:    client,
		modelName: "gemini-2.5-flash",
	}, nil
}

const learningPlanPrompt = `A job seeker is targeting the role "%s".
They already know: %s.
They are missing: %s.

Write a short prioritized learning plan (3-5 sentences) for the missing
technologies: which to learn first and why, ordered so quick wins come early.
Plain prose only, no markdown, no lists.`

// LearningPlan implements AdvisorService.
func (a *advisorService) LearningPlan(ctx context.Context, diff models.StackDiff, title string) (string, error) {
	if len(diff.ToLearn) == 0 {
		return "", nil
	}

	have := strings.Join(diff.AlreadyHave, ", ")
	if have == "" {
		have = "none of the expected stack"
	}
	prompt := fmt.Sprintf(learningPlanPrompt, title, have, strings.Join(diff.ToLearn, ", "))

	temperature := float32(0.5)
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: 1024,
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.modelName, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate learning plan: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("no response generated (nil response)")
	}

	return strings.TrimSpace(resp.Text()), nil
}
