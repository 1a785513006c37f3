package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// chdir switches into dir for the rest of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	oldCwd, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(oldCwd) })
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
}

func sameFile(t *testing.T, want, got string) {
	t.Helper()
	// Resolve symlinks for comparison (macOS /var -> /private/var)
	wantResolved, _ := filepath.EvalSymlinks(want)
	gotResolved, _ := filepath.EvalSymlinks(got)
	if gotResolved != wantResolved {
		t.Errorf("expected %s, got %s", wantResolved, gotResolved)
	}
}

func TestFindEnvLocal(t *testing.T) {
	tests := []struct {
		name    string
		envAt   []string // directories (relative to root) holding .env.local
		cwd     string
		wantDir string // "" means not found
	}{
		{"current dir", []string{"."}, ".", "."},
		{"parent dir", []string{"."}, "child", "."},
		{"grandparent dir", []string{"."}, "parent/child", "."},
		{"closest wins", []string{".", "parent"}, "parent/child", "parent"},
		{"not found", nil, "child", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			if err := os.MkdirAll(filepath.Join(root, tt.cwd), 0755); err != nil {
				t.Fatal(err)
			}
			for _, dir := range tt.envAt {
				if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
					t.Fatal(err)
				}
				if err := os.WriteFile(filepath.Join(root, dir, ".env.local"), []byte("TEST="+dir), 0644); err != nil {
					t.Fatal(err)
				}
			}
			chdir(t, filepath.Join(root, tt.cwd))

			result := findEnvLocal()
			if tt.wantDir == "" {
				if result != "" {
					t.Errorf("expected empty string when no .env.local found, got %s", result)
				}
				return
			}
			if result == "" {
				t.Fatal("expected to find .env.local")
			}
			sameFile(t, filepath.Join(root, tt.wantDir, ".env.local"), result)
		})
	}
}

// isolate points HOME and cwd at empty temp dirs and clears WRKBOARD_* vars.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		"WRKBOARD_DB_PATH", "WRKBOARD_DB_PATH_FILE", "WRKBOARD_TOKEN", "WRKBOARD_TOKEN_FILE",
		"WRKBOARD_ADDR", "WRKBOARD_REMOTE", "WRKBOARD_REDIS_URL", "WRKBOARD_CACHE_TTL",
		"WRKBOARD_USER", "WRKBOARD_LOG_LEVEL", "WRKBOARD_OUTPUT", "WRKBOARD_PERSIST", "WRKBOARD_QUEUE",
	} {
		t.Setenv(key, "")
	}
	chdir(t, t.TempDir())
	return home
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBPath != filepath.Join(home, ".local", "share", "wrkboard", "wrkboard.db") {
		t.Errorf("unexpected default db path: %s", cfg.DBPath)
	}
	if cfg.Addr != "127.0.0.1:7272" || cfg.Output != "table" || cfg.Persist != "all" || cfg.Queue != "queue" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.CacheTTL != time.Minute {
		t.Errorf("expected 1m cache ttl, got %s", cfg.CacheTTL)
	}
}

func TestLoad_ProjectLocalDB(t *testing.T) {
	isolate(t)
	if err := os.MkdirAll(".wrkboard", 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(".wrkboard/wrkboard.db", nil, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBPath != ".wrkboard/wrkboard.db" {
		t.Errorf("expected project-local db, got %s", cfg.DBPath)
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".config", "wrkboard")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	yamlCfg := "db_path: /srv/board.db\nremote: http://yaml:7272\ncache_ttl: 30s\ndefault_user: carol\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlCfg), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("WRKBOARD_REMOTE", "http://env:7272")
	t.Setenv("WRKBOARD_QUEUE", "reject")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBPath != "/srv/board.db" {
		t.Errorf("expected yaml db path, got %s", cfg.DBPath)
	}
	if cfg.Remote != "http://env:7272" {
		t.Errorf("expected env to override yaml remote, got %s", cfg.Remote)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("expected 30s cache ttl, got %s", cfg.CacheTTL)
	}
	if cfg.Queue != "reject" {
		t.Errorf("expected reject queue policy, got %s", cfg.Queue)
	}
	if cfg.User() != "carol" {
		t.Errorf("expected yaml default user, got %s", cfg.User())
	}
}

func TestLoad_FileVariants(t *testing.T) {
	home := isolate(t)
	tokenFile := filepath.Join(home, "token")
	if err := os.WriteFile(tokenFile, []byte("s3cret\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WRKBOARD_TOKEN_FILE", tokenFile)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Token != "s3cret" {
		t.Errorf("expected token from file, got %q", cfg.Token)
	}
}

func TestLoad_InvalidCacheTTL(t *testing.T) {
	isolate(t)
	t.Setenv("WRKBOARD_CACHE_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid cache ttl")
	}
}

func TestUser_Precedence(t *testing.T) {
	isolate(t)
	t.Setenv("USER", "shell-user")

	cfg := &Config{}
	if cfg.User() != "shell-user" {
		t.Errorf("expected $USER fallback, got %s", cfg.User())
	}
	cfg.DefaultUser = "config-user"
	if cfg.User() != "config-user" {
		t.Errorf("expected config user, got %s", cfg.User())
	}
	t.Setenv("WRKBOARD_USER", "env-user")
	if cfg.User() != "env-user" {
		t.Errorf("expected env user, got %s", cfg.User())
	}
}
