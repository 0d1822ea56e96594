package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/furkanakkurt1335/gather-commits-issues-prs/internal/domain"
)

// Config holds the application configuration. It is constructed once by the
// CLI layer and passed down explicitly.
type Config struct {
	// GitHub
	GitHubToken string

	// Input files
	ReposFile     string
	DatesFile     string
	UsernamesFile string

	// Harvesting
	OutputDir string
	Branch    string
	Since     string // YYYY-MM-DD override of the not-before date
}

// Load loads the configuration from environment variables.
func Load() *Config {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	return &Config{
		GitHubToken: os.Getenv("GITHUB_TOKEN"),
	}
}

// LoadRepos reads the repository list file, a JSON array of "owner/name"
// strings. A missing file is created empty so the user has a template to
// fill in.
func (c *Config) LoadRepos() ([]domain.Repo, error) {
	data, err := os.ReadFile(c.ReposFile)
	if os.IsNotExist(err) {
		if writeErr := os.WriteFile(c.ReposFile, []byte("[]\n"), 0o644); writeErr != nil {
			return nil, fmt.Errorf("create repos file %s: %w", c.ReposFile, writeErr)
		}
		return nil, fmt.Errorf("please add your repositories to %s in the format: [\"username/repo\"]", c.ReposFile)
	}
	if err != nil {
		return nil, fmt.Errorf("read repos file %s: %w", c.ReposFile, err)
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("parse repos file %s: %w", c.ReposFile, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no repositories found in %s, add repositories in the format: [\"username/repo\"]", c.ReposFile)
	}

	repos := make([]domain.Repo, 0, len(names))
	for _, name := range names {
		repo, err := domain.ParseRepo(name)
		if err != nil {
			return nil, err
		}
		repos = append(repos, repo)
	}
	return repos, nil
}

// dateParts is one date entry of the dates file, split into components.
type dateParts struct {
	Year   int `json:"year"`
	Month  int `json:"month"`
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
}

func (p dateParts) time() time.Time {
	return time.Date(p.Year, time.Month(p.Month), p.Day, p.Hour, p.Minute, p.Second, 0, domain.DisplayZone)
}

// dateConfig is the schema of the dates file.
type dateConfig struct {
	NotBeforeDate  *dateParts  `json:"not_before_date"`
	MilestoneDates []dateParts `json:"milestone_dates"`
}

// LoadTimeline builds the milestone timeline from the dates file, falling
// back to built-in defaults when no file is given. The --since flag, if
// set, overrides the not-before date.
func (c *Config) LoadTimeline(log logrus.FieldLogger) (*domain.Timeline, error) {
	notBefore := time.Date(2025, 2, 10, 0, 0, 0, 0, domain.DisplayZone)
	cutoffs := []time.Time{time.Date(2025, 5, 15, 9, 0, 0, 0, domain.DisplayZone)}

	if c.DatesFile != "" {
		data, err := os.ReadFile(c.DatesFile)
		if os.IsNotExist(err) {
			log.Warnf("date configuration file %s not found, using defaults", c.DatesFile)
		} else if err != nil {
			return nil, fmt.Errorf("read dates file %s: %w", c.DatesFile, err)
		} else {
			log.Infof("loading date configuration from %s", c.DatesFile)
			var dc dateConfig
			if err := json.Unmarshal(data, &dc); err != nil {
				return nil, fmt.Errorf("parse dates file %s: %w", c.DatesFile, err)
			}
			if dc.NotBeforeDate != nil {
				notBefore = dc.NotBeforeDate.time()
			}
			if len(dc.MilestoneDates) > 0 {
				cutoffs = cutoffs[:0]
				for _, p := range dc.MilestoneDates {
					cutoffs = append(cutoffs, p.time())
				}
			}
		}
	}

	if c.Since != "" {
		t, err := time.ParseInLocation("2006-01-02", c.Since, domain.DisplayZone)
		if err != nil {
			return nil, fmt.Errorf("invalid since date %q, expected YYYY-MM-DD", c.Since)
		}
		log.Infof("using since date from command line: %s", c.Since)
		notBefore = t
	}

	milestones := make([]domain.Milestone, 0, len(cutoffs))
	for _, cutoff := range cutoffs {
		milestones = append(milestones, domain.Milestone{
			Cutoff: cutoff,
			Label:  domain.FormatDate(cutoff),
		})
	}
	return domain.NewTimeline(notBefore, milestones)
}

// LoadFullNames reads the username-to-full-name mapping file. A missing
// file is not an error: usernames are used as is, and an example mapping
// file is written for reference.
func (c *Config) LoadFullNames(log logrus.FieldLogger) map[string]string {
	data, err := os.ReadFile(c.UsernamesFile)
	if os.IsNotExist(err) {
		log.Warnf("username mapping file %s not found, using GitHub usernames as is", c.UsernamesFile)
		writeExampleMapping(log)
		return map[string]string{}
	}
	if err != nil {
		log.Errorf("error loading username mappings: %v", err)
		return map[string]string{}
	}

	var mappings map[string]string
	if err := json.Unmarshal(data, &mappings); err != nil {
		log.Errorf("error parsing username mappings: %v", err)
		return map[string]string{}
	}
	log.Infof("loaded %d username mappings from %s", len(mappings), c.UsernamesFile)
	return mappings
}

func writeExampleMapping(log logrus.FieldLogger) {
	const examplePath = "github-usernames.example.json"
	if _, err := os.Stat(examplePath); err == nil {
		return
	}
	example := map[string]string{
		"github-username":  "Full Name",
		"another-username": "Another Person",
	}
	data, _ := json.MarshalIndent(example, "", "    ")
	if err := os.WriteFile(examplePath, append(data, '\n'), 0o644); err != nil {
		return
	}
	log.Infof("created example mapping file at %s for reference", examplePath)
}
