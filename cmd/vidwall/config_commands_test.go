package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err == nil {
		t.Fatal("expected an error when the file already exists")
	}
	requireContains(t, err.Error(), "already exists")

	out, _, err = runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, "", "")
	if err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
}

func TestConfigInitDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	out, _, err := runCLI(t, []string{"config", "init"}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, filepath.Join("vidwall", "config.toml"))
}

func TestConfigPath(t *testing.T) {
	out, _, err := runCLI(t, []string{"config", "path"}, "", "/etc/vidwall/custom.toml")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	requireContains(t, out, "/etc/vidwall/custom.toml")

	t.Setenv("XDG_CONFIG_HOME", "/xdg-config")
	out, _, err = runCLI(t, []string{"config", "path"}, "", "")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	requireContains(t, out, filepath.Join("/xdg-config", "vidwall", "config.toml"))
}

func TestConfigShow(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	content := "[video]\nfile = \"/videos/loop.mp4\"\nfps_cap = 30\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, _, err := runCLI(t, []string{"config", "show"}, "", cfgPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, cfgPath)
	requireContains(t, out, "[video]")
	requireContains(t, out, "loop.mp4")
	requireContains(t, out, "fps_cap = 30")
}
