package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRunChecks(t *testing.T) {
	h := NewHandler("test")
	h.Register("good", func(ctx context.Context) (Status, error) {
		return StatusHealthy, nil
	})

	t.Run("all healthy", func(t *testing.T) {
		resp := h.RunChecks(context.Background())
		if resp.Status != StatusHealthy {
			t.Errorf("status = %q", resp.Status)
		}
		if resp.Version != "test" {
			t.Errorf("version = %q", resp.Version)
		}
	})

	t.Run("degraded dominates healthy", func(t *testing.T) {
		h.Register("slow", func(ctx context.Context) (Status, error) {
			return StatusDegraded, errors.New("falling behind")
		})
		resp := h.RunChecks(context.Background())
		if resp.Status != StatusDegraded {
			t.Errorf("status = %q", resp.Status)
		}
		if resp.Checks["slow"].Error != "falling behind" {
			t.Errorf("check result = %+v", resp.Checks["slow"])
		}
	})

	t.Run("unhealthy dominates all", func(t *testing.T) {
		h.Register("down", func(ctx context.Context) (Status, error) {
			return StatusUnhealthy, errors.New("connection refused")
		})
		resp := h.RunChecks(context.Background())
		if resp.Status != StatusUnhealthy {
			t.Errorf("status = %q", resp.Status)
		}
	})
}

func TestReadinessHandler(t *testing.T) {
	h := NewHandler("test")
	h.Register("dep", func(ctx context.Context) (Status, error) {
		return StatusUnhealthy, errors.New("down")
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	h.ReadinessHandler()(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Status != StatusUnhealthy {
		t.Errorf("body status = %q", resp.Status)
	}
}

func TestLivenessIgnoresChecks(t *testing.T) {
	h := NewHandler("test")
	h.Register("dep", func(ctx context.Context) (Status, error) {
		t.Fatal("liveness must not run checks")
		return StatusUnhealthy, nil
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	h.LivenessHandler()(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
