//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
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

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/pbms/apiserver/config"
	"github.com/pbms/apiserver/internal/db"
	"github.com/pbms/apiserver/internal/server"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestProjectBudgetLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	email := fmt.Sprintf("admin_%d@example.com", time.Now().UnixNano())
	password := "testpass123!"

	token, err := registerUser(t, baseURL, email, password)
	if err != nil {
		t.Fatalf("register user: %v", err)
	}

	if err := promoteUserToAdmin(email); err != nil {
		t.Fatalf("promote user: %v", err)
	}

	// Re-login so the token carries the admin role.
	token, err = loginUser(t, baseURL, email, password)
	if err != nil {
		t.Fatalf("login user: %v", err)
	}

	project, err := createProject(t, baseURL, token)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if project.ID == 0 {
		t.Fatalf("expected project ID to be set")
	}
	if project.Name != "E2E Test Project" {
		t.Fatalf("unexpected project name: %q", project.Name)
	}

	expense, err := submitExpense(t, baseURL, token, project.ID, 400)
	if err != nil {
		t.Fatalf("submit expense: %v", err)
	}
	if expense.Status != "pending" {
		t.Fatalf("unexpected expense status: %q", expense.Status)
	}

	approved, err := approveExpense(t, baseURL, token, expense.ID)
	if err != nil {
		t.Fatalf("approve expense: %v", err)
	}
	if approved.Status != "approved" {
		t.Fatalf("unexpected expense status after approval: %q", approved.Status)
	}

	fetched, err := getProject(t, baseURL, token, project.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if fetched.SpentBudget != 400 {
		t.Fatalf("expected spent budget 400, got %v", fetched.SpentBudget)
	}
	if fetched.BudgetUtilization != 40 {
		t.Fatalf("expected 40%% utilization, got %v", fetched.BudgetUtilization)
	}

	risks, err := getRisks(t, baseURL, token)
	if err != nil {
		t.Fatalf("get risks: %v", err)
	}
	found := false
	for _, r := range risks {
		if r.ProjectID == project.ID {
			found = true
			if r.Budget.Severity != "low" {
				t.Fatalf("expected low budget risk at 40%% utilization, got %q", r.Budget.Severity)
			}
		}
	}
	if !found {
		t.Fatalf("expected project %d in risk report", project.ID)
	}

	if err := deleteProject(t, baseURL, token, project.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}

	if err := expectProjectNotFound(t, baseURL, token, project.ID); err != nil {
		t.Fatalf("expected deleted project to be missing: %v", err)
	}
}

type projectResponse struct {
	ID                int     `json:"id"`
	Name              string  `json:"name"`
	SpentBudget       float64 `json:"spent_budget"`
	BudgetUtilization float64 `json:"budget_utilization"`
}

type expenseResponse struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
}

type riskResponse struct {
	ProjectID int `json:"project_id"`
	Budget    struct {
		Severity string `json:"severity"`
	} `json:"budget"`
}

type authResponse struct {
	Token string `json:"token"`
}

func registerUser(t *testing.T, baseURL, email, password string) (string, error) {
	t.Helper()

	payload := map[string]string{
		"email":     email,
		"full_name": "Test Admin",
		"password":  password,
	}
	return postForToken(baseURL+"/auth/register", payload, http.StatusCreated)
}

func loginUser(t *testing.T, baseURL, email, password string) (string, error) {
	t.Helper()

	payload := map[string]string{
		"email":    email,
		"password": password,
	}
	return postForToken(baseURL+"/auth/login", payload, http.StatusOK)
}

func postForToken(url string, payload map[string]string, wantStatus int) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.Token == "" {
		return "", fmt.Errorf("missing token in response")
	}
	return parsed.Token, nil
}

func promoteUserToAdmin(email string) error {
	cfg := config.LoadConfig()
	conn, err := sql.Open("postgres", db.PostgresURL(cfg))
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = conn.ExecContext(ctx, "UPDATE users SET role = 'admin', updated_at = NOW() WHERE email = $1", email)
	return err
}

func authedJSON(method, url, token string, payload any) (*http.Response, error) {
	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return http.DefaultClient.Do(req)
}

func createProject(t *testing.T, baseURL, token string) (projectResponse, error) {
	t.Helper()

	resp, err := authedJSON(http.MethodPost, baseURL+"/api/projects", token, map[string]any{
		"name":         "E2E Test Project",
		"description":  "Created by the end-to-end suite.",
		"total_budget": 1000,
		"status":       "active",
	})
	if err != nil {
		return projectResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return projectResponse{}, fmt.Errorf("create project status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed projectResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return projectResponse{}, err
	}
	return parsed, nil
}

func getProject(t *testing.T, baseURL, token string, id int) (projectResponse, error) {
	t.Helper()

	resp, err := authedJSON(http.MethodGet, fmt.Sprintf("%s/api/projects/%d", baseURL, id), token, nil)
	if err != nil {
		return projectResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return projectResponse{}, fmt.Errorf("get project status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed projectResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return projectResponse{}, err
	}
	return parsed, nil
}

func submitExpense(t *testing.T, baseURL, token string, projectID int, amount float64) (expenseResponse, error) {
	t.Helper()

	resp, err := authedJSON(http.MethodPost, baseURL+"/api/expenses", token, map[string]any{
		"project_id":   projectID,
		"description":  "Conference travel",
		"amount":       amount,
		"expense_date": "2026-08-15",
	})
	if err != nil {
		return expenseResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return expenseResponse{}, fmt.Errorf("submit expense status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed expenseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return expenseResponse{}, err
	}
	return parsed, nil
}

func approveExpense(t *testing.T, baseURL, token string, id int) (expenseResponse, error) {
	t.Helper()

	resp, err := authedJSON(http.MethodPost, fmt.Sprintf("%s/api/expenses/%d/approve", baseURL, id), token, nil)
	if err != nil {
		return expenseResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return expenseResponse{}, fmt.Errorf("approve expense status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed expenseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return expenseResponse{}, err
	}
	return parsed, nil
}

func getRisks(t *testing.T, baseURL, token string) ([]riskResponse, error) {
	t.Helper()

	resp, err := authedJSON(http.MethodGet, baseURL+"/api/analytics/risks", token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get risks status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed []riskResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}

func deleteProject(t *testing.T, baseURL, token string, id int) error {
	t.Helper()

	resp, err := authedJSON(http.MethodDelete, fmt.Sprintf("%s/api/projects/%d", baseURL, id), token, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete project status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func expectProjectNotFound(t *testing.T, baseURL, token string, id int) error {
	t.Helper()

	resp, err := authedJSON(http.MethodGet, fmt.Sprintf("%s/api/projects/%d", baseURL, id), token, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("expected 404 after delete, got %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	conn, err := sql.Open("postgres", db.PostgresURL(cfg))
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
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

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")
	migrationsURL := "file://" + migrationsPath

	migrator, err := migrate.New(migrationsURL, db.PostgresURL(cfg))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func startServer() (*server.Server, error) {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "pbms")
	_ = os.Setenv("DB_PASSWORD", "pbms")
	_ = os.Setenv("DB_NAME", "pbms")
	_ = os.Setenv("DB_USE_SSL", "false")

	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
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
