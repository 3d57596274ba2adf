package backend

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"rpgchat/models"
)

// Turn is one prior exchange handed to the model.
type Turn struct {
	Role models.Role
	Text string
}

// Request is everything a Generator needs for one reply.
type Request struct {
	System      string
	Turns       []Turn
	Temperature float32
	TopP        float32
}

// Generator produces raw narrator output.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Gemini generates replies with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini API client for model.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	contents := make([]*genai.Content, 0, len(req.Turns))
	for _, t := range req.Turns {
		role := genai.RoleUser
		if t.Role == models.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, genai.Role(role)))
	}
	if len(contents) == 0 {
		return "", errors.New("nothing to reply to")
	}

	temperature := req.Temperature
	topP := req.TopP
	genConfig := &genai.GenerateContentConfig{
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       &temperature,
		TopP:              &topP,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, genConfig)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("empty model response")
	}
	return text, nil
}
