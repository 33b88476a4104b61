package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProfile(t *testing.T) {
	tmpDir := t.TempDir()
	profilePath := filepath.Join(tmpDir, "profile.yml")

	content := `name: aggressive
enable_cse: true
enable_constant_folding: true
enable_fork_fusion: false
enable_last_call: true
continuation_lift_threshold: 20
max_fixed_point_iterations: 16
`

	if err := os.WriteFile(profilePath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test profile: %v", err)
	}

	profile, err := Load(profilePath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if profile.Name != "aggressive" {
		t.Errorf("expected name 'aggressive', got %q", profile.Name)
	}
	if !profile.EnableCSE {
		t.Error("expected EnableCSE true")
	}
	if profile.EnableForkFusion {
		t.Error("expected EnableForkFusion false")
	}
	if profile.ContinuationLiftThreshold != 20 {
		t.Errorf("expected threshold 20, got %d", profile.ContinuationLiftThreshold)
	}
	if profile.MaxFixedPointIterations != 16 {
		t.Errorf("expected 16 iterations, got %d", profile.MaxFixedPointIterations)
	}
}

func TestLoadProfileMissingName(t *testing.T) {
	tmpDir := t.TempDir()
	profilePath := filepath.Join(tmpDir, "bad.yml")

	if err := os.WriteFile(profilePath, []byte("enable_cse: true\n"), 0644); err != nil {
		t.Fatalf("failed to write test profile: %v", err)
	}

	if _, err := Load(profilePath); err == nil {
		t.Error("expected error for missing name field")
	}
}

func TestLoadProfileNegativeThreshold(t *testing.T) {
	tmpDir := t.TempDir()
	profilePath := filepath.Join(tmpDir, "bad.yml")

	content := "name: broken\ncontinuation_lift_threshold: -1\n"
	if err := os.WriteFile(profilePath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test profile: %v", err)
	}

	if _, err := Load(profilePath); err == nil {
		t.Error("expected error for negative threshold")
	}
}

func TestLoadProfileMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/profile.yml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaultProfile(t *testing.T) {
	d := Default()
	if d.Name != "default" {
		t.Errorf("expected name 'default', got %q", d.Name)
	}
	if !d.EnableCSE || !d.EnableConstantFolding || !d.EnableForkFusion || !d.EnableLastCall {
		t.Error("expected every optimisation on in the default profile")
	}
	if d.MaxFixedPointIterations != 8 {
		t.Errorf("expected default MaxFixedPointIterations 8, got %d", d.MaxFixedPointIterations)
	}
}
