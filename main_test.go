package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/concentration/game/config"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName == "" {
		t.Error("AppName should not be empty")
	}

	expectedAppName := "Concentration Game Server"
	if AppName != expectedAppName {
		t.Errorf("Expected app name %s, got %s", expectedAppName, AppName)
	}
}

// parseSettings runs the CLI with args and captures the loaded settings
// instead of starting a server
func parseSettings(t *testing.T, args ...string) (*config.Settings, error) {
	t.Helper()

	cmd := newCommand()
	var settings *config.Settings
	cmd.Action = func(ctx context.Context, c *cli.Command) error {
		s, err := loadSettings(c)
		settings = s
		return err
	}
	err := cmd.Run(context.Background(), append([]string{"concentration"}, args...))
	return settings, err
}

func TestLoadSettings_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STORE_DRIVER", "")

	settings, err := parseSettings(t)
	if err != nil {
		t.Fatalf("loadSettings failed: %v", err)
	}
	if settings.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", settings.Port)
	}
	if settings.Host == "" {
		t.Error("Host should have a default value")
	}
	if settings.StoreDriver != "file" {
		t.Errorf("Expected file store by default, got %s", settings.StoreDriver)
	}
}

func TestLoadSettings_FlagOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")

	dir := t.TempDir()
	settings, err := parseSettings(t,
		"--port", "9090",
		"--host", "0.0.0.0",
		"--store-driver", "memory",
		"--data-dir", dir,
		"--debug",
	)
	if err != nil {
		t.Fatalf("loadSettings failed: %v", err)
	}
	if settings.Port != 9090 {
		t.Errorf("Expected flag to override PORT, got %d", settings.Port)
	}
	if settings.Host != "0.0.0.0" {
		t.Errorf("Expected host 0.0.0.0, got %s", settings.Host)
	}
	if settings.StoreDriver != "memory" {
		t.Errorf("Expected memory store, got %s", settings.StoreDriver)
	}
	if settings.DataDir != dir {
		t.Errorf("Expected data dir %s, got %s", dir, settings.DataDir)
	}
	if !settings.Debug {
		t.Error("Expected debug enabled")
	}
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"port out of range", []string{"--port", "70000"}},
		{"unknown store", []string{"--store-driver", "mongo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseSettings(t, tt.args...); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestUnknownMode(t *testing.T) {
	err := newCommand().Run(context.Background(), []string{"concentration", "bogus"})
	if err == nil || !strings.Contains(err.Error(), "unknown mode") {
		t.Errorf("Expected unknown mode error, got %v", err)
	}
}

func testApp(t *testing.T) *app {
	t.Helper()

	settings := &config.Settings{
		Host:        "127.0.0.1",
		Port:        8080,
		DataDir:     t.TempDir(),
		StoreDriver: "file",
		SessionTTL:  time.Hour,
	}
	a, err := initializeServices(context.Background(), settings, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	t.Cleanup(a.close)
	return a
}

func TestInitializeServices(t *testing.T) {
	a := testApp(t)

	if a.service == nil || a.manager == nil || a.hub == nil {
		t.Fatal("Expected every service to be initialized")
	}

	info, err := a.service.CreateSession(context.Background(), "main1")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if info.ID != "main1" {
		t.Errorf("Expected session main1, got %s", info.ID)
	}
	if err := a.service.Health(context.Background()); err != nil {
		t.Errorf("Expected healthy store, got %v", err)
	}
}

func TestInitializeServices_RestoresSessions(t *testing.T) {
	settings := &config.Settings{
		DataDir:     t.TempDir(),
		StoreDriver: "memory",
		SessionTTL:  time.Hour,
	}

	first, err := initializeServices(context.Background(), settings, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	if _, err := first.service.CreateSession(context.Background(), "keep"); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	first.close()

	second, err := initializeServices(context.Background(), settings, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer second.close()

	if _, err := second.service.GetSession(context.Background(), "keep"); err != nil {
		t.Errorf("Expected persisted session to be restored: %v", err)
	}
}

func TestInitializeServices_BadStore(t *testing.T) {
	settings := &config.Settings{
		DataDir:     t.TempDir(),
		StoreDriver: "mongo",
		SessionTTL:  time.Hour,
	}
	if _, err := initializeServices(context.Background(), settings, zap.NewNop()); err == nil {
		t.Error("Expected error for unknown store driver")
	}
}

func TestRoutes(t *testing.T) {
	a := testApp(t)

	server := httptest.NewUnstartedServer(nil)
	server.Config.Handler = a.routes("http://" + server.Listener.Addr().String())
	server.Start()
	defer server.Close()

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/health")
		if err != nil {
			t.Fatalf("GET /api/health failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status 200, got %d", resp.StatusCode)
		}
	})

	t.Run("mcp rejects GET", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/mcp")
		if err != nil {
			t.Fatalf("GET /mcp failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("Expected status 405, got %d", resp.StatusCode)
		}
	})

	t.Run("mcp tools/list", func(t *testing.T) {
		body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
		resp, err := http.Post(server.URL+"/mcp", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST /mcp failed: %v", err)
		}
		defer resp.Body.Close()

		var result struct {
			Result struct {
				Tools []struct {
					Name string `json:"name"`
				} `json:"tools"`
			} `json:"result"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		names := make(map[string]bool)
		for _, tool := range result.Result.Tools {
			names[tool.Name] = true
		}
		for _, want := range []string{"select_card", "new_game", "reshuffle", "game_state"} {
			if !names[want] {
				t.Errorf("Expected tool %s in %v", want, names)
			}
		}
	})
}

func TestExternalAPIAvailable(t *testing.T) {
	a := testApp(t)

	server := httptest.NewServer(a.routes("http://unused"))
	defer server.Close()

	if !externalAPIAvailable(context.Background(), server.URL) {
		t.Error("Expected running server to be detected")
	}
	if externalAPIAvailable(context.Background(), "http://127.0.0.1:1") {
		t.Error("Expected unreachable server to be reported unavailable")
	}
}

func TestBackgroundRoutinesStop(t *testing.T) {
	a := testApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		go sessionCleanupRoutine(ctx, a.manager, time.Millisecond, time.Hour, zap.NewNop())
		filesystemSyncRoutine(ctx, a.manager, time.Millisecond, zap.NewNop())
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Background routines did not stop on cancel")
	}
}
