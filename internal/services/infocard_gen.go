package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/relicai/relic-backend/internal/apierr"
	"github.com/relicai/relic-backend/internal/logger"
	"github.com/relicai/relic-backend/internal/types"
	"github.com/relicai/relic-backend/internal/utils"
)

// Disclaimer is stamped onto every generated card regardless of what the
// model returns. The store refuses cards without it.
const Disclaimer = "This analysis was generated by AI and should be verified by qualified archaeologists. All estimates are speculative based on visual analysis."

const infoCardSystemPrompt = `You are an expert archaeological artifact analyst. Given an image of an artifact and optional context, generate a detailed information card.

IMPORTANT: Be factual and note uncertainties. All conclusions are speculative based on visual analysis alone.

Respond in JSON format with these exact fields:
{
  "material": "Identified or likely material (e.g., 'Terracotta', 'Bronze', 'Stone')",
  "estimatedAge": {
    "range": "Time period range (e.g., '500-300 BCE', '2nd century CE')",
    "confidence": "high|medium|low",
    "reasoning": "Brief explanation of dating estimate"
  },
  "possibleUse": "Likely function or purpose of the artifact",
  "culturalContext": "Cultural/historical context and significance",
  "similarArtifacts": ["List of similar known artifacts or types"],
  "preservationNotes": "Recommendations for preservation and handling",
  "aiConfidence": 0.75
}

Always include uncertainties in your analysis. This is AI-generated speculation, not expert verification.`

// InfoCardGenService proxies artifact analysis to a Groq-compatible chat
// completions endpoint and parses the structured card.
type InfoCardGenService interface {
	Generate(ctx context.Context, imageBase64 string, metadata types.ArtifactMetadata) (*GeneratedInfoCard, error)
}

type GeneratedInfoCard struct {
	Material          string             `json:"material"`
	EstimatedAge      types.EstimatedAge `json:"estimatedAge"`
	PossibleUse       string             `json:"possibleUse"`
	CulturalContext   string             `json:"culturalContext"`
	SimilarArtifacts  []string           `json:"similarArtifacts"`
	PreservationNotes string             `json:"preservationNotes"`
	AIModel           string             `json:"aiModel"`
	AIConfidence      float64            `json:"aiConfidence"`
	Disclaimer        string             `json:"disclaimer"`
}

type infoCardGenService struct {
	httpClient *http.Client
	log        *logger.Logger
	apiKey     string
	baseURL    string
	model      string
}

func NewInfoCardGenService(log *logger.Logger) InfoCardGenService {
	serviceLog := log.With("service", "InfoCardGenService")
	return &infoCardGenService{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		log:     serviceLog,
		apiKey:  utils.GetEnv("GROQ_API_KEY", "", log),
		baseURL: utils.GetEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1", log),
		model:   utils.GetEnv("GROQ_MODEL", "llama-3.3-70b-versatile", log),
	}
}

func (s *infoCardGenService) Generate(ctx context.Context, imageBase64 string, metadata types.ArtifactMetadata) (*GeneratedInfoCard, error) {
	if imageBase64 == "" {
		return nil, apierr.Validationf("missing imageBase64")
	}
	if s.apiKey == "" {
		return nil, apierr.New(http.StatusInternalServerError, apierr.CodeUpstream, fmt.Errorf("GROQ_API_KEY not configured"))
	}

	userMessage := "Analyze this archaeological artifact image and generate an information card."
	if metadata.DiscoveryLocation != "" {
		userMessage += "\n\nDiscovery Location: " + metadata.DiscoveryLocation
	}
	if metadata.ExcavationLayer != "" {
		userMessage += "\nExcavation Layer: " + metadata.ExcavationLayer
	}
	if metadata.SiteName != "" {
		userMessage += "\nSite Name: " + metadata.SiteName
	}
	if metadata.Notes != "" {
		userMessage += "\nAdditional Notes: " + metadata.Notes
	}

	payload, err := json.Marshal(map[string]interface{}{
		"model": s.model,
		"messages": []map[string]interface{}{
			{"role": "system", "content": infoCardSystemPrompt},
			{
				"role": "user",
				"content": []map[string]interface{}{
					{"type": "text", "text": userMessage},
					{
						"type":      "image_url",
						"image_url": map[string]string{"url": "data:image/jpeg;base64," + imageBase64},
					},
				},
			},
		},
		"temperature":     0.3,
		"max_tokens":      1024,
		"response_format": map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, apierr.Upstream(http.StatusBadGateway, fmt.Errorf("analysis upstream: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.Upstream(http.StatusBadGateway, fmt.Errorf("read analysis response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		s.log.Warn("Analysis upstream returned error", "status", resp.StatusCode)
		return nil, apierr.Upstream(upstreamStatus(resp.StatusCode), fmt.Errorf("analysis upstream status %d", resp.StatusCode))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, apierr.Upstream(http.StatusBadGateway, fmt.Errorf("decode analysis response: %w", err))
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return nil, apierr.Upstream(http.StatusBadGateway, fmt.Errorf("analysis upstream returned empty completion"))
	}

	var card GeneratedInfoCard
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &card); err != nil {
		return nil, apierr.Upstream(http.StatusBadGateway, fmt.Errorf("parse generated card: %w", err))
	}
	card.AIModel = s.model
	card.Disclaimer = Disclaimer
	return &card, nil
}
