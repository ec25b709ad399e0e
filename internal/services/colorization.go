package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relicai/relic-backend/internal/apierr"
	"github.com/relicai/relic-backend/internal/logger"
	"github.com/relicai/relic-backend/internal/types"
	"github.com/relicai/relic-backend/internal/utils"
)

// ColorizationService proxies artifact-image colorization to an upstream
// model. Each scheme maps to a curated prompt; the table ships compiled in
// and can be overridden per deployment via COLOR_SCHEMES_YAML_PATH.
type ColorizationService interface {
	Colorize(ctx context.Context, req ColorizeRequest) (*ColorizeResult, error)
	PromptFor(scheme types.ColorScheme, customPrompt string) (string, error)
	ModelName() string
}

type ColorizeRequest struct {
	ImageBase64  string            `json:"imageBase64"`
	ColorScheme  types.ColorScheme `json:"colorScheme"`
	CustomPrompt string            `json:"customPrompt,omitempty"`
}

type ColorizeResult struct {
	ColorizedImageBase64 string `json:"colorizedImageBase64"`
	Prompt               string `json:"prompt"`
}

var defaultSchemePrompts = map[types.ColorScheme]string{
	types.SchemeRoman:        "Colorize with rich Roman colors: deep reds, imperial purples, gold accents, marble whites",
	types.SchemeGreek:        "Colorize with classical Greek palette: terracotta, ochre, black, white, Mediterranean blue",
	types.SchemeEgyptian:     "Colorize with ancient Egyptian colors: gold, lapis lazuli blue, turquoise, rich greens",
	types.SchemeMesopotamian: "Colorize with Mesopotamian palette: deep blues, gold, brick red, earth tones",
	types.SchemeWeathered:    "Apply subtle, weathered coloring as the artifact may have appeared after centuries",
	types.SchemeOriginal:     "Reconstruct likely original vibrant colors based on archaeological evidence",
}

type colorizationService struct {
	httpClient *http.Client
	log        *logger.Logger
	baseURL    string
	token      string
	modelName  string
	prompts    map[types.ColorScheme]string
}

func NewColorizationService(log *logger.Logger) ColorizationService {
	serviceLog := log.With("service", "ColorizationService")

	prompts := make(map[types.ColorScheme]string, len(defaultSchemePrompts))
	for scheme, prompt := range defaultSchemePrompts {
		prompts[scheme] = prompt
	}
	if path := utils.GetEnv("COLOR_SCHEMES_YAML_PATH", "", log); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			serviceLog.Warn("Could not read color scheme file, using built-in prompts", "path", path, "error", err)
		} else {
			var overrides map[string]string
			if err := yaml.Unmarshal(raw, &overrides); err != nil {
				serviceLog.Warn("Could not parse color scheme file, using built-in prompts", "path", path, "error", err)
			} else {
				for name, prompt := range overrides {
					scheme := types.ColorScheme(name)
					if scheme.Valid() && scheme != types.SchemeCustom {
						prompts[scheme] = prompt
					} else {
						serviceLog.Warn("Ignoring unknown color scheme override", "scheme", name)
					}
				}
			}
		}
	}

	return &colorizationService{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		log:       serviceLog,
		baseURL:   utils.GetEnv("COLORIZE_URL", "", log),
		token:     utils.GetEnv("HF_TOKEN", "", log),
		modelName: utils.GetEnv("COLORIZE_MODEL", "deoldify", log),
		prompts:   prompts,
	}
}

func (s *colorizationService) ModelName() string { return s.modelName }

func (s *colorizationService) PromptFor(scheme types.ColorScheme, customPrompt string) (string, error) {
	if !scheme.Valid() {
		return "", apierr.Validationf("unknown color scheme %q", scheme)
	}
	if scheme == types.SchemeCustom {
		if customPrompt == "" {
			return "", apierr.Validationf("custom color scheme requires customPrompt")
		}
		return customPrompt, nil
	}
	return s.prompts[scheme], nil
}

func (s *colorizationService) Colorize(ctx context.Context, req ColorizeRequest) (*ColorizeResult, error) {
	if req.ImageBase64 == "" {
		return nil, apierr.Validationf("missing imageBase64")
	}
	if req.ColorScheme == "" {
		return nil, apierr.Validationf("missing colorScheme")
	}
	prompt, err := s.PromptFor(req.ColorScheme, req.CustomPrompt)
	if err != nil {
		return nil, err
	}
	if s.baseURL == "" {
		return nil, apierr.NotImplementedf("colorization upstream not configured")
	}

	payload, err := json.Marshal(map[string]interface{}{
		"image_base64": req.ImageBase64,
		"prompt":       prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal colorize request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build colorize request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, apierr.Upstream(http.StatusBadGateway, fmt.Errorf("colorization upstream: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.Upstream(http.StatusBadGateway, fmt.Errorf("read colorization response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		s.log.Warn("Colorization upstream returned error", "status", resp.StatusCode, "scheme", req.ColorScheme)
		return nil, apierr.Upstream(upstreamStatus(resp.StatusCode), fmt.Errorf("colorization upstream status %d", resp.StatusCode))
	}

	var parsed struct {
		ColorizedImageBase64 string `json:"colorized_image_base64"`
		Error                string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apierr.Upstream(http.StatusBadGateway, fmt.Errorf("decode colorization response: %w", err))
	}
	if parsed.ColorizedImageBase64 == "" {
		return nil, apierr.Upstream(http.StatusBadGateway, fmt.Errorf("colorization upstream returned no image: %s", parsed.Error))
	}
	return &ColorizeResult{ColorizedImageBase64: parsed.ColorizedImageBase64, Prompt: prompt}, nil
}
