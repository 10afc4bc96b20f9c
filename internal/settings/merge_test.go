package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readSettings(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading settings: %v", err)
	}
	var settings map[string]any
	if err := json.Unmarshal(data, &settings); err != nil {
		t.Fatalf("settings file is not valid JSON: %v\n%s", err, data)
	}
	return settings
}

func exportBlock(t *testing.T, settings map[string]any) map[string]any {
	t.Helper()
	export, ok := settings["export"].(map[string]any)
	if !ok {
		t.Fatalf("expected export block, got %v", settings["export"])
	}
	return export
}

func TestRequiredBridgeExport(t *testing.T) {
	required := RequiredBridgeExport(5517)
	if required["endpoint"] != "http://127.0.0.1:5517" {
		t.Errorf("unexpected endpoint: %v", required["endpoint"])
	}
	if required["protocol"] != "grpc" {
		t.Errorf("unexpected protocol: %v", required["protocol"])
	}
	if required["enabled"] != true {
		t.Errorf("unexpected enabled: %v", required["enabled"])
	}
}

func TestMerge_CreatesNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge", "settings.json")

	out := Merge(MergeOptions{SettingsPath: path, GRPCPort: 4317})
	if out.Result != MergeSuccess {
		t.Fatalf("expected MergeSuccess, got %v (err: %v)", out.Result, out.Err)
	}

	export := exportBlock(t, readSettings(t, path))
	if export["endpoint"] != "http://127.0.0.1:4317" {
		t.Errorf("unexpected endpoint: %v", export["endpoint"])
	}
	if export["protocol"] != "grpc" {
		t.Errorf("unexpected protocol: %v", export["protocol"])
	}
	if export["enabled"] != true {
		t.Errorf("unexpected enabled: %v", export["enabled"])
	}

	data, _ := os.ReadFile(path)
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("expected trailing newline")
	}
}

func TestMerge_AlreadyConfigured(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	content := `{
  "export": {
    "enabled": true,
    "endpoint": "http://127.0.0.1:4317",
    "protocol": "grpc"
  }
}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	out := Merge(MergeOptions{SettingsPath: path, GRPCPort: 4317})
	if out.Result != MergeAlreadyConfigured {
		t.Fatalf("expected MergeAlreadyConfigured, got %v (err: %v)", out.Result, out.Err)
	}

	// Nothing should have been rewritten.
	data, _ := os.ReadFile(path)
	if string(data) != content {
		t.Error("expected file to be untouched")
	}
}

func TestMerge_AddsMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	content := `{
  "device_name": "bench phone",
  "export": {
    "endpoint": "http://127.0.0.1:4317"
  }
}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	out := Merge(MergeOptions{SettingsPath: path, GRPCPort: 4317})
	if out.Result != MergeSuccess {
		t.Fatalf("expected MergeSuccess, got %v (err: %v)", out.Result, out.Err)
	}
	if len(out.Messages) != 2 {
		t.Errorf("expected 2 added-key messages, got %v", out.Messages)
	}

	settings := readSettings(t, path)
	if settings["device_name"] != "bench phone" {
		t.Error("expected unrelated keys to survive the merge")
	}
	export := exportBlock(t, settings)
	if export["protocol"] != "grpc" || export["enabled"] != true {
		t.Errorf("expected missing keys to be added, got %v", export)
	}
}

func TestMerge_DoesNotOverwriteDifferentValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	content := `{
  "export": {
    "enabled": true,
    "endpoint": "http://10.0.0.5:4317",
    "protocol": "grpc"
  }
}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	out := Merge(MergeOptions{SettingsPath: path, GRPCPort: 4317})
	if out.Result != MergeSuccess {
		t.Fatalf("expected MergeSuccess, got %v (err: %v)", out.Result, out.Err)
	}
	if len(out.Warnings) != 1 || !strings.Contains(out.Warnings[0], "not overwriting") {
		t.Errorf("expected a not-overwriting warning, got %v", out.Warnings)
	}

	export := exportBlock(t, readSettings(t, path))
	if export["endpoint"] != "http://10.0.0.5:4317" {
		t.Errorf("expected differing endpoint to be preserved, got %v", export["endpoint"])
	}
}

func TestMerge_InteractiveNeedsConfirmation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	content := `{"export":{"enabled":true,"endpoint":"http://10.0.0.5:4317","protocol":"grpc"}}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	out := Merge(MergeOptions{SettingsPath: path, GRPCPort: 4317, Interactive: true})
	if out.Result != MergeNeedsConfirmation {
		t.Fatalf("expected MergeNeedsConfirmation, got %v", out.Result)
	}

	// Confirmation requests never write.
	data, _ := os.ReadFile(path)
	if string(data) != content {
		t.Error("expected file to be untouched until confirmed")
	}
}

func TestMerge_EndpointOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	content := `{
  "export": {
    "endpoint": "http://127.0.0.1:9999"
  }
}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	out := Merge(MergeOptions{SettingsPath: path, GRPCPort: 4317, EndpointOnly: true})
	if out.Result != MergeSuccess {
		t.Fatalf("expected MergeSuccess, got %v (err: %v)", out.Result, out.Err)
	}

	export := exportBlock(t, readSettings(t, path))
	if export["endpoint"] != "http://127.0.0.1:4317" {
		t.Errorf("expected endpoint to be repointed, got %v", export["endpoint"])
	}
	if _, ok := export["protocol"]; ok {
		t.Error("EndpointOnly must not add other keys")
	}
}

func TestMerge_MalformedJSONBackedUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	content := `{"export": broken`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	out := Merge(MergeOptions{SettingsPath: path, GRPCPort: 4317})
	if out.Result != MergeError {
		t.Fatalf("expected MergeError, got %v", out.Result)
	}
	if out.Err == nil || !strings.Contains(out.Err.Error(), "invalid JSON") {
		t.Errorf("expected invalid JSON error, got %v", out.Err)
	}

	bak, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("expected backup file: %v", err)
	}
	if string(bak) != content {
		t.Error("expected backup to carry the original content")
	}
}

func TestMerge_PreservesIndent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	content := "{\n\t\"export\": {\n\t\t\"endpoint\": \"http://127.0.0.1:4317\"\n\t}\n}\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	out := Merge(MergeOptions{SettingsPath: path, GRPCPort: 4317})
	if out.Result != MergeSuccess {
		t.Fatalf("expected MergeSuccess, got %v (err: %v)", out.Result, out.Err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "\n\t\"export\"") {
		t.Errorf("expected tab indentation to be preserved:\n%s", data)
	}
}

func TestDetectIndent(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"two_spaces", "{\n  \"a\": 1\n}", "  "},
		{"four_spaces", "{\n    \"a\": 1\n}", "    "},
		{"tab", "{\n\t\"a\": 1\n}", "\t"},
		{"flat", `{"a":1}`, "  "},
		{"empty", "", "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectIndent([]byte(tt.data)); got != tt.want {
				t.Errorf("detectIndent(%q) = %q, want %q", tt.data, got, tt.want)
			}
		})
	}
}
