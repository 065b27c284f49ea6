package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/j-veylop/agile-dashboard-tui/internal/models"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	svc, err := New(path)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc, path
}

func TestNew_CreatesDefaultFile(t *testing.T) {
	svc, path := newTestService(t)

	if _, err := os.Stat(path); err != nil {
		t.Errorf("settings file was not created: %v", err)
	}
	if svc.Postcode() != "" {
		t.Errorf("default postcode = %q, want empty", svc.Postcode())
	}
	if svc.ShowPounds() {
		t.Error("default ShowPounds should be false")
	}
}

func TestNew_LoadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	data, _ := json.Marshal(models.Settings{Postcode: "SW1A 1AA", ShowPounds: true})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("writing settings file: %v", err)
	}

	svc, err := New(path)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer svc.Close()

	if svc.Postcode() != "SW1A 1AA" {
		t.Errorf("Postcode() = %q, want %q", svc.Postcode(), "SW1A 1AA")
	}
	if !svc.ShowPounds() {
		t.Error("ShowPounds() = false, want true")
	}
}

func TestSetPostcode_Persists(t *testing.T) {
	svc, path := newTestService(t)

	if err := svc.SetPostcode("M1 1AE"); err != nil {
		t.Fatalf("SetPostcode() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading settings file: %v", err)
	}
	var stored models.Settings
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("parsing settings file: %v", err)
	}
	if stored.Postcode != "M1 1AE" {
		t.Errorf("persisted postcode = %q, want %q", stored.Postcode, "M1 1AE")
	}
}

func TestWatcher_NotifiesOnExternalChange(t *testing.T) {
	svc, path := newTestService(t)

	// Drain startup events.
	drainTimeout := time.After(200 * time.Millisecond)
drain:
	for {
		select {
		case <-svc.Events():
		case <-drainTimeout:
			break drain
		}
	}

	data, _ := json.Marshal(models.Settings{Postcode: "EH1 1YZ"})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("writing settings file: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case event := <-svc.Events():
			if event.Type == EventSettingsChanged && event.Settings.Postcode == "EH1 1YZ" {
				return
			}
		case <-deadline:
			t.Fatal("no settings-changed event after external file write")
		}
	}
}
