// Package settings configures a device bridge's exporter by editing its
// settings.json in place. The bridge watches that file, so getting the
// "export" block right is all the setup a device needs.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MergeResult classifies the outcome of a Merge.
type MergeResult int

const (
	// MergeSuccess means the file was created or updated.
	MergeSuccess MergeResult = iota

	// MergeAlreadyConfigured means every required key already had the
	// required value; nothing was written.
	MergeAlreadyConfigured

	// MergeNeedsConfirmation means interactive mode found differing
	// values and wrote nothing; the caller should confirm and re-run.
	MergeNeedsConfirmation

	// MergeError means the merge failed; Err carries the cause.
	MergeError
)

// MergeOptions controls a Merge run.
type MergeOptions struct {
	// SettingsPath overrides the default bridge settings location.
	SettingsPath string

	// GRPCPort is the receiver port the bridge should export to.
	// Zero means the default OTLP gRPC port.
	GRPCPort int

	// Interactive makes differing values a confirmation request instead
	// of a skip-with-warning.
	Interactive bool

	// EndpointOnly restricts the merge to the endpoint key, forcefully
	// updating it. Used to repoint a bridge after a port change.
	EndpointOnly bool
}

// MergeOutput reports what Merge did.
type MergeOutput struct {
	Result   MergeResult
	Messages []string
	Warnings []string
	Err      error
}

// RequiredBridgeExport returns the export block the bridge needs to
// reach a receiver on the given gRPC port.
func RequiredBridgeExport(grpcPort int) map[string]any {
	return map[string]any{
		"endpoint": fmt.Sprintf("http://127.0.0.1:%d", grpcPort),
		"protocol": "grpc",
		"enabled":  true,
	}
}

// defaultSettingsPath returns the default path to the bridge's settings.json.
func defaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".touchbridge", "settings.json")
}

// Merge reads ~/.touchbridge/settings.json (or the path specified in opts),
// merges the required exporter keys into the "export" block, and writes the
// file back atomically (temp file + rename).
//
// Behaviour:
//   - File not found: creates a new file with the required export block.
//   - Malformed JSON: creates a .bak backup and returns an error.
//   - Permission denied: returns a clear error.
//   - All keys already correct: returns MergeAlreadyConfigured.
//   - Interactive=false with differing values: warns but does not overwrite.
//   - EndpointOnly=true: only updates "endpoint".
func Merge(opts MergeOptions) MergeOutput {
	settingsPath := opts.SettingsPath
	if settingsPath == "" {
		settingsPath = defaultSettingsPath()
	}

	grpcPort := opts.GRPCPort
	if grpcPort == 0 {
		grpcPort = 4317
	}

	required := RequiredBridgeExport(grpcPort)

	// When EndpointOnly, only update the endpoint.
	if opts.EndpointOnly {
		required = map[string]any{"endpoint": required["endpoint"]}
	}

	// Read existing file.
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return createNewSettingsFile(settingsPath, required)
		}
		if errors.Is(err, fs.ErrPermission) {
			return MergeOutput{
				Result: MergeError,
				Err:    fmt.Errorf("permission denied reading %s", settingsPath),
			}
		}
		return MergeOutput{
			Result: MergeError,
			Err:    fmt.Errorf("reading settings file: %w", err),
		}
	}

	// Detect indentation before parsing.
	indent := detectIndent(data)

	// Parse JSON.
	var settings map[string]any
	if err := json.Unmarshal(data, &settings); err != nil {
		// Malformed JSON: create backup.
		bakPath := settingsPath + ".bak"
		if bakErr := os.WriteFile(bakPath, data, 0644); bakErr != nil {
			return MergeOutput{
				Result:   MergeError,
				Err:      fmt.Errorf("settings.json contains invalid JSON and backup failed: %w", bakErr),
				Messages: []string{fmt.Sprintf("Failed to create backup at %s", bakPath)},
			}
		}
		return MergeOutput{
			Result:   MergeError,
			Err:      fmt.Errorf("settings.json contains invalid JSON (backup saved to %s)", bakPath),
			Messages: []string{fmt.Sprintf("Backup saved to %s", bakPath)},
		}
	}

	// Ensure the "export" block exists.
	exportRaw, ok := settings["export"]
	var export map[string]any
	if ok {
		export, ok = exportRaw.(map[string]any)
		if !ok {
			// "export" exists but is not an object.
			export = make(map[string]any)
			settings["export"] = export
		}
	} else {
		export = make(map[string]any)
		settings["export"] = export
	}

	// Check current state and merge.
	var (
		messages     []string
		warnings     []string
		anyDifferent bool
		allCorrect   = true
	)

	// Sort keys for deterministic output.
	keys := sortedKeys(required)

	for _, key := range keys {
		wantVal := required[key]
		existing, exists := export[key]

		if !exists {
			// Key absent: add it.
			export[key] = wantVal
			allCorrect = false
			messages = append(messages, fmt.Sprintf("Added %s=%v", key, wantVal))
			continue
		}

		if existing == wantVal {
			// Key present with correct value: leave it.
			continue
		}

		// Key present with different value.
		allCorrect = false
		anyDifferent = true
		if opts.EndpointOnly {
			// EndpointOnly mode forcefully updates the endpoint.
			export[key] = wantVal
			messages = append(messages, fmt.Sprintf("Updated %s from %v to %v", key, existing, wantVal))
		} else if opts.Interactive {
			// In interactive mode, signal that confirmation is needed.
			warnings = append(warnings, fmt.Sprintf(
				"%s is set to %v, expected %v",
				key, existing, wantVal,
			))
		} else {
			// Non-interactive: skip with warning, do not overwrite.
			warnings = append(warnings, fmt.Sprintf(
				"Warning: %s is set to %v (expected %v), not overwriting",
				key, existing, wantVal,
			))
		}
	}

	// If interactive mode has differing values, return NeedsConfirmation without writing.
	if opts.Interactive && anyDifferent {
		return MergeOutput{
			Result:   MergeNeedsConfirmation,
			Messages: messages,
			Warnings: warnings,
		}
	}

	// If all keys are already correct.
	if allCorrect {
		return MergeOutput{
			Result:   MergeAlreadyConfigured,
			Messages: []string{"Bridge export settings are already configured correctly"},
		}
	}

	// Write the updated file atomically.
	if err := writeSettingsAtomic(settingsPath, settings, indent); err != nil {
		return MergeOutput{
			Result: MergeError,
			Err:    fmt.Errorf("writing settings file: %w", err),
		}
	}

	return MergeOutput{
		Result:   MergeSuccess,
		Messages: messages,
		Warnings: warnings,
	}
}

// createNewSettingsFile creates a new settings.json with the required
// export block.
func createNewSettingsFile(path string, required map[string]any) MergeOutput {
	// Ensure the parent directory exists.
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return MergeOutput{
				Result: MergeError,
				Err:    fmt.Errorf("permission denied creating directory %s", dir),
			}
		}
		return MergeOutput{
			Result: MergeError,
			Err:    fmt.Errorf("creating directory %s: %w", dir, err),
		}
	}

	export := make(map[string]any, len(required))
	for k, v := range required {
		export[k] = v
	}
	settings := map[string]any{
		"export": export,
	}

	indent := "  " // Default 2 spaces for new files.
	if err := writeSettingsAtomic(path, settings, indent); err != nil {
		return MergeOutput{
			Result: MergeError,
			Err:    fmt.Errorf("creating settings file: %w", err),
		}
	}

	return MergeOutput{
		Result:   MergeSuccess,
		Messages: []string{fmt.Sprintf("Created %s with bridge export settings", path)},
	}
}

// writeSettingsAtomic writes the settings map to a file atomically using
// a temp file + rename approach to prevent corruption from concurrent writes.
func writeSettingsAtomic(path string, settings map[string]any, indent string) error {
	data, err := json.MarshalIndent(settings, "", indent)
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	// Ensure trailing newline.
	data = append(data, '\n')

	// Write to temp file in the same directory (required for atomic rename).
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".settings-*.json.tmp")
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("permission denied writing to %s", dir)
		}
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on any error.
	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	// Preserve original file permissions if the target file exists.
	if info, err := os.Stat(path); err == nil {
		if chErr := os.Chmod(tmpPath, info.Mode()); chErr != nil {
			// Non-fatal, but try to set permissions.
			_ = chErr
		}
	} else {
		// New file: use 0644.
		if chErr := os.Chmod(tmpPath, 0644); chErr != nil {
			_ = chErr
		}
	}

	// Atomic rename.
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file to %s: %w", path, err)
	}
	tmpPath = "" // Prevent deferred removal.

	return nil
}

// detectIndent examines JSON text and returns the indentation string of
// the first indented line. Defaults to two spaces if no indentation is
// detected.
func detectIndent(data []byte) string {
	for _, line := range strings.Split(string(data), "\n") {
		if len(line) == 0 {
			continue
		}
		trimmed := strings.TrimLeft(line, " \t")
		if len(trimmed) < len(line) && len(trimmed) > 0 {
			return line[:len(line)-len(trimmed)]
		}
	}
	return "  "
}

// sortedKeys returns the keys of a map sorted alphabetically.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
