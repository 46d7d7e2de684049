package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"fintrack/internal/config"
	"fintrack/internal/log"
)

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("FINTRACK_TEST_VALUE=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FINTRACK_TEST_VALUE", "")
	os.Unsetenv("FINTRACK_TEST_VALUE")

	LoadEnvFile(path)
	if got := os.Getenv("FINTRACK_TEST_VALUE"); got != "from-dotenv" {
		t.Errorf("FINTRACK_TEST_VALUE = %q", got)
	}

	// Missing files are ignored.
	LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
}

func TestInitStore(t *testing.T) {
	t.Run("built-in seed", func(t *testing.T) {
		s, err := InitStore(&config.Config{}, log.Discard())
		if err != nil {
			t.Fatal(err)
		}
		if len(s.Accounts()) != 2 {
			t.Errorf("accounts = %d, want 2", len(s.Accounts()))
		}
	})

	t.Run("seed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "seed.yaml")
		yaml := `accounts:
  - id: "b1"
    name: "Brokerage"
    type: investment
    balance: "1000.00"
    currency: EUR
    color: "#123456"
`
		if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
			t.Fatal(err)
		}
		s, err := InitStore(&config.Config{SeedFile: path}, log.Discard())
		if err != nil {
			t.Fatal(err)
		}
		accs := s.Accounts()
		if len(accs) != 1 || accs[0].Name != "Brokerage" || accs[0].Balance.Cents != 100000 {
			t.Errorf("accounts = %+v", accs)
		}
		if len(s.Categories()) != 3 {
			t.Error("categories should fall back to the defaults")
		}
	})

	t.Run("bad seed file", func(t *testing.T) {
		if _, err := InitStore(&config.Config{SeedFile: "/does/not/exist.yaml"}, log.Discard()); err == nil {
			t.Error("InitStore should fail for a missing seed file")
		}
	})
}

func TestInitBackend(t *testing.T) {
	cfg := &config.Config{DataBackend: "file", DataFile: filepath.Join(t.TempDir(), "state.json")}
	res, err := InitBackend(context.Background(), cfg, log.Discard())
	if err != nil {
		t.Fatal(err)
	}
	defer res.Cleanup()
	if res.Persister == nil {
		t.Error("Persister should be set")
	}

	if _, err := InitBackend(context.Background(), &config.Config{DataBackend: "sheets"}, log.Discard()); err == nil {
		t.Error("unknown backends must be rejected")
	}
}

func TestShutdownContextCancel(t *testing.T) {
	ctx, cancel := ShutdownContext(context.Background(), log.Discard())
	cancel()
	<-ctx.Done()
}
