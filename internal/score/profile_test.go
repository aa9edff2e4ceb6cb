package score

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProfile_Success(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.json")
	content := `{
		"name": "Dana",
		"target_titles": ["Data Scientist"],
		"experience_years": 5,
		"skills": {"languages": ["Python", "Go"], "ml_tools": ["PyTorch"]},
		"min_salary": 120000,
		"dealbreakers": ["on-call rotation"]
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Dana" {
		t.Errorf("expected name Dana, got %s", p.Name)
	}
	if len(p.TargetTitles) != 1 || p.TargetTitles[0] != "Data Scientist" {
		t.Errorf("unexpected target titles %v", p.TargetTitles)
	}
	if p.ExperienceYears != 5 {
		t.Errorf("expected 5 years, got %d", p.ExperienceYears)
	}
	if len(p.Skills.Languages) != 2 {
		t.Errorf("unexpected languages %v", p.Skills.Languages)
	}
	if p.MinSalary != 120000 {
		t.Errorf("expected min salary 120000, got %d", p.MinSalary)
	}
}

func TestLoadProfile_Missing(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "profile.json"))
	if err == nil {
		t.Fatal("expected error for missing profile")
	}
}

func TestLoadProfile_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadProfile(path); err == nil {
		t.Fatal("expected error for malformed profile")
	}
}

func TestProfilePathNear(t *testing.T) {
	got := ProfilePathNear("/data/canopy/jobs.db")
	want := filepath.Join("/data/canopy", "profile.json")
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}
