//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/brandpick/apiserver/config"
	"github.com/brandpick/apiserver/internal/db"
	"github.com/brandpick/apiserver/internal/server"
	"go.uber.org/zap"
)

const serverPort = 18080

var baseURL = fmt.Sprintf("http://localhost:%d", serverPort)

// TestMain boots the API against the backend named by DB_DRIVER. Set
// E2E_COMPOSE=1 to bring up development/docker-compose.yml first.
func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	compose := os.Getenv("E2E_COMPOSE") == "1"
	if compose {
		if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
			os.Exit(1)
		}
	}
	teardown := func() {
		if compose {
			_ = dockerCompose(context.Background(), root, "down")
		}
	}

	srv, err := startServer(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		teardown()
		os.Exit(1)
	}

	if err := waitForHealth(ctx, baseURL+"/status"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown(context.Background())
		teardown()
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown(context.Background())
	teardown()
	os.Exit(code)
}

func TestCampaignLifecycle(t *testing.T) {
	suffix := time.Now().UnixNano()
	brand := register(t, fmt.Sprintf("brand_%d@example.com", suffix), "brand")
	picker := register(t, fmt.Sprintf("picker_%d@example.com", suffix), "picker")

	var product struct {
		ID string `json:"id"`
	}
	status := call(t, http.MethodPost, "/brands/product", brand.Token.AccessToken, map[string]any{
		"name":        "E2E Shirt",
		"price":       25.5,
		"description": "Created by the e2e suite",
	}, &product)
	if status != http.StatusCreated || product.ID == "" {
		t.Fatalf("create product: status %d id %q", status, product.ID)
	}

	var campaign struct {
		ID       string    `json:"id"`
		OwnerID  string    `json:"ownerId"`
		BrandID  string    `json:"brandId"`
		Products []string  `json:"products"`
		Expires  time.Time `json:"expires"`
	}
	status = call(t, http.MethodPost, "/pickers/campaign", picker.Token.AccessToken, map[string]any{
		"brandId":  brand.User.ID,
		"products": []string{product.ID},
	}, &campaign)
	if status != http.StatusCreated {
		t.Fatalf("create campaign: status %d", status)
	}
	if campaign.OwnerID != picker.User.ID || campaign.BrandID != brand.User.ID {
		t.Fatalf("unexpected campaign %+v", campaign)
	}
	if time.Until(campaign.Expires) < 6*24*time.Hour {
		t.Fatalf("campaign expires too early: %s", campaign.Expires)
	}

	var rejected struct {
		Message string `json:"message"`
	}
	status = call(t, http.MethodPost, "/pickers/campaign", picker.Token.AccessToken, map[string]any{
		"brandId":  picker.User.ID,
		"products": []string{product.ID},
	}, &rejected)
	if status != http.StatusBadRequest || rejected.Message != "User is not brand" {
		t.Fatalf("expected not-brand rejection, got %d %q", status, rejected.Message)
	}

	var dashboard struct {
		Campaigns []struct {
			ID    string `json:"id"`
			Owner *struct {
				ID string `json:"id"`
			} `json:"owner"`
		} `json:"campaigns"`
		Total int `json:"total"`
	}
	status = call(t, http.MethodGet, "/brands/dashboard/campaigns?page=1&limit=10", brand.Token.AccessToken, nil, &dashboard)
	if status != http.StatusOK {
		t.Fatalf("dashboard: status %d", status)
	}
	if dashboard.Total != 1 || len(dashboard.Campaigns) != 1 || dashboard.Campaigns[0].ID != campaign.ID {
		t.Fatalf("unexpected dashboard %+v", dashboard)
	}
	if owner := dashboard.Campaigns[0].Owner; owner == nil || owner.ID != picker.User.ID {
		t.Fatalf("campaign owner not expanded: %+v", owner)
	}
}

type authResponse struct {
	Token struct {
		AccessToken string `json:"accessToken"`
	} `json:"token"`
	User struct {
		ID string `json:"id"`
	} `json:"user"`
}

func register(t *testing.T, email, role string) authResponse {
	t.Helper()
	var parsed authResponse
	status := call(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"password": "testpass123!",
		"role":     role,
		"name":     "E2E " + role,
	}, &parsed)
	if status != http.StatusCreated || parsed.Token.AccessToken == "" {
		t.Fatalf("register %s: status %d", email, status)
	}
	return parsed
}

func call(t *testing.T, method, path, token string, payload, dst any) int {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if dst != nil && len(data) > 0 {
		if err := json.Unmarshal(data, dst); err != nil {
			t.Fatalf("decode %s %s response %q: %v", method, path, strings.TrimSpace(string(data)), err)
		}
	}
	return resp.StatusCode
}

func startServer(ctx context.Context) (*server.Server, error) {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("BCRYPT_ROUNDS", "4")
	if os.Getenv("DB_DRIVER") == "" {
		_ = os.Setenv("DB_DRIVER", config.DriverMemory)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == config.DriverPostgres {
		if err := db.Migrate(cfg.Database); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	srv, err := server.New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
