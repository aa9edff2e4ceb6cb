package score

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Profile describes the candidate that jobs are scored against.
// Loaded from a JSON file the user maintains by hand.
type Profile struct {
	Name            string        `json:"name"`
	TargetTitles    []string      `json:"target_titles"`
	ExperienceYears int           `json:"experience_years"`
	Skills          ProfileSkills `json:"skills"`
	Locations       []string      `json:"locations"`
	WorkTypes       []string      `json:"work_types"`
	Industries      []string      `json:"industries"`
	MinSalary       int           `json:"min_salary"`
	Dealbreakers    []string      `json:"dealbreakers"`
}

// ProfileSkills groups the candidate's skills by category.
type ProfileSkills struct {
	Languages []string `json:"languages"`
	MLTools   []string `json:"ml_tools"`
	Platforms []string `json:"platforms"`
	Other     []string `json:"other"`
}

// ProfilePathNear returns the conventional profile location: profile.json in
// the same directory as the database file.
func ProfilePathNear(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), "profile.json")
}

// LoadProfile reads and parses the profile file at path.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Profile{}, fmt.Errorf("profile not found at %s, create it before enabling scoring", path)
		}
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return p, nil
}
