package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/relicai/relic-backend/internal/apierr"
	"github.com/relicai/relic-backend/internal/types"
)

func TestReconstructUnconfigured(t *testing.T) {
	t.Setenv("RECONSTRUCT_3D_URL", "")
	svc := NewReconstructionService(newTestLogger())

	_, err := svc.Reconstruct(context.Background(), ReconstructRequest{ImageBase64: "aGk="})
	if !apierr.IsCode(err, apierr.CodeNotImplemented) {
		t.Fatalf("unconfigured upstream error = %v, want %s", err, apierr.CodeNotImplemented)
	}
}

func TestReconstructValidation(t *testing.T) {
	t.Setenv("RECONSTRUCT_3D_URL", "http://localhost:1")
	svc := NewReconstructionService(newTestLogger())

	if _, err := svc.Reconstruct(context.Background(), ReconstructRequest{}); !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("missing image error = %v, want %s", err, apierr.CodeValidation)
	}
	if _, err := svc.Reconstruct(context.Background(), ReconstructRequest{ImageBase64: "aGk=", Method: "photogrammetry"}); !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("unknown method error = %v, want %s", err, apierr.CodeValidation)
	}
}

func TestReconstructSuccess(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]interface{}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode upstream payload: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"model_base64": "bW9kZWw="})
	}))
	defer upstream.Close()

	t.Setenv("RECONSTRUCT_3D_URL", upstream.URL)
	t.Setenv("HF_TOKEN", "hf_test")
	svc := NewReconstructionService(newTestLogger())

	result, err := svc.Reconstruct(context.Background(), ReconstructRequest{ImageBase64: "aGk=", RemoveBackground: true})
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if result.ModelBase64 != "bW9kZWw=" {
		t.Fatalf("model = %q", result.ModelBase64)
	}
	if result.Format != types.FormatGLB {
		t.Fatalf("format = %q, want glb default", result.Format)
	}
	if gotAuth != "Bearer hf_test" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotPayload["method"] != MethodTrellis {
		t.Fatalf("method defaulted to %v, want %s", gotPayload["method"], MethodTrellis)
	}
	if gotPayload["remove_background"] != true {
		t.Fatalf("remove_background = %v, want true", gotPayload["remove_background"])
	}
}

func TestReconstructUpstreamFailures(t *testing.T) {
	cases := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
	}{
		{
			name: "client_error_passes_through_as_400",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "bad image", http.StatusUnprocessableEntity)
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "server_error_is_bad_gateway",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			wantStatus: http.StatusBadGateway,
		},
		{
			name: "empty_model_is_bad_gateway",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{"error": "no mesh"})
			},
			wantStatus: http.StatusBadGateway,
		},
		{
			name: "unknown_format_is_bad_gateway",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{"model_base64": "bQ==", "format": "stl"})
			},
			wantStatus: http.StatusBadGateway,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			upstream := httptest.NewServer(tc.handler)
			defer upstream.Close()

			t.Setenv("RECONSTRUCT_3D_URL", upstream.URL)
			svc := NewReconstructionService(newTestLogger())

			_, err := svc.Reconstruct(context.Background(), ReconstructRequest{ImageBase64: "aGk="})
			var apiErr *apierr.Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *apierr.Error", err)
			}
			if apiErr.Code != apierr.CodeUpstream {
				t.Fatalf("code = %s, want %s", apiErr.Code, apierr.CodeUpstream)
			}
			if apiErr.Status != tc.wantStatus {
				t.Fatalf("status = %d, want %d", apiErr.Status, tc.wantStatus)
			}
		})
	}
}
