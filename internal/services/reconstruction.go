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

// ReconstructionService proxies single-image 3D reconstruction to an
// upstream inference space (TRELLIS or TripoSR style). The proxy is thin:
// one attempt, no retries, the caller decides what to persist.
type ReconstructionService interface {
	Reconstruct(ctx context.Context, req ReconstructRequest) (*ReconstructResult, error)
}

type ReconstructRequest struct {
	ImageBase64      string `json:"imageBase64"`
	Method           string `json:"method"`
	RemoveBackground bool   `json:"removeBackground"`
}

type ReconstructResult struct {
	ModelBase64 string            `json:"modelBase64"`
	Format      types.ModelFormat `json:"format"`
}

const (
	MethodTrellis = "trellis"
	MethodTripoSR = "triposr"
)

type reconstructionService struct {
	httpClient *http.Client
	log        *logger.Logger
	baseURL    string
	token      string
}

func NewReconstructionService(log *logger.Logger) ReconstructionService {
	serviceLog := log.With("service", "ReconstructionService")
	baseURL := utils.GetEnv("RECONSTRUCT_3D_URL", "", log)
	token := utils.GetEnv("HF_TOKEN", "", log)
	return &reconstructionService{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		log:     serviceLog,
		baseURL: baseURL,
		token:   token,
	}
}

func (s *reconstructionService) Reconstruct(ctx context.Context, req ReconstructRequest) (*ReconstructResult, error) {
	if req.ImageBase64 == "" {
		return nil, apierr.Validationf("missing imageBase64")
	}
	if req.Method == "" {
		req.Method = MethodTrellis
	}
	if req.Method != MethodTrellis && req.Method != MethodTripoSR {
		return nil, apierr.Validationf("unknown reconstruction method %q", req.Method)
	}
	if s.baseURL == "" {
		return nil, apierr.NotImplementedf("3D reconstruction upstream not configured")
	}

	payload, err := json.Marshal(map[string]interface{}{
		"image_base64":      req.ImageBase64,
		"method":            req.Method,
		"remove_background": req.RemoveBackground,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal reconstruct request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build reconstruct request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, apierr.Upstream(http.StatusBadGateway, fmt.Errorf("reconstruction upstream: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.Upstream(http.StatusBadGateway, fmt.Errorf("read reconstruction response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		s.log.Warn("Reconstruction upstream returned error", "status", resp.StatusCode, "method", req.Method)
		return nil, apierr.Upstream(upstreamStatus(resp.StatusCode), fmt.Errorf("reconstruction upstream status %d", resp.StatusCode))
	}

	var parsed struct {
		ModelBase64 string `json:"model_base64"`
		Format      string `json:"format"`
		Error       string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apierr.Upstream(http.StatusBadGateway, fmt.Errorf("decode reconstruction response: %w", err))
	}
	if parsed.ModelBase64 == "" {
		return nil, apierr.Upstream(http.StatusBadGateway, fmt.Errorf("reconstruction upstream returned no model: %s", parsed.Error))
	}

	format := types.ModelFormat(parsed.Format)
	if format == "" {
		format = types.FormatGLB
	}
	if !format.Valid() {
		return nil, apierr.Upstream(http.StatusBadGateway, fmt.Errorf("reconstruction upstream returned unknown format %q", parsed.Format))
	}
	return &ReconstructResult{ModelBase64: parsed.ModelBase64, Format: format}, nil
}

// upstreamStatus folds an upstream failure into the proxy contract: client
// errors pass through as 400, everything else is a bad gateway.
func upstreamStatus(code int) int {
	if code >= 400 && code < 500 {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}
