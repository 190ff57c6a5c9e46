package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pressline/internal/config"
	"pressline/internal/content"
	"pressline/internal/daemonrun"
	"pressline/internal/store"
	"pressline/internal/testsupport"
)

const testToken = "cli-token"

type cliTestEnv struct {
	cfg        *config.Config
	items      *content.Store
	server     *httptest.Server
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken(testToken))
	cfg.Intake.RunPipeline = false
	t.Setenv("HOME", filepath.Join(testsupport.BaseDir(cfg), "home"))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	db, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	d, err := daemonrun.Build(cfg, db, nil)
	if err != nil {
		_ = db.Close()
		t.Fatalf("daemonrun.Build: %v", err)
	}
	server := httptest.NewServer(d.Handler())
	t.Cleanup(func() {
		server.Close()
		_ = d.Close()
	})

	configPath := filepath.Join(testsupport.BaseDir(cfg), "pressline.toml")
	writeTestConfig(t, configPath, cfg, strings.TrimPrefix(server.URL, "http://"), testToken)

	return &cliTestEnv{
		cfg:        cfg,
		items:      content.NewStore(db),
		server:     server,
		configPath: configPath,
	}
}

func runCLI(t *testing.T, args []string, configPath, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var input io.Reader = strings.NewReader(stdin)
	cmd.SetIn(input)
	flags := []string{}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config, bind, token string) {
	t.Helper()
	body := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\npublish_dir = %q\napi_bind = %q\napi_token = %q\n\n[intake]\nrun_pipeline = false\n",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.PublishDir,
		bind,
		token,
	)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
