package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/furkanakkurt1335/gather-commits-issues-prs/internal/collector"
	"github.com/furkanakkurt1335/gather-commits-issues-prs/internal/config"
	"github.com/furkanakkurt1335/gather-commits-issues-prs/internal/harvest"
)

const logFile = "gather.log"

var (
	reposFile     string
	datesFile     string
	outputDir     string
	branch        string
	sinceDate     string
	usernamesFile string
	verbose       bool
	debug         bool
)

var rootCmd = &cobra.Command{
	Use:   "gather",
	Short: "Gather commits, issues, and PRs from GitHub repositories",
	Long: `Gather incrementally harvests per-repository GitHub activity (commits,
issues, pull requests, and their comments and diff statistics) and partitions
it into milestone windows, writing one JSON snapshot per repository.`,
	RunE: runGather,
}

func init() {
	rootCmd.Flags().StringVarP(&reposFile, "repos", "r", "repos.json", "path to the JSON file with the repositories")
	rootCmd.Flags().StringVarP(&datesFile, "dates", "d", "", "path to the JSON file with the milestone dates")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "commits-issues-prs", "path to the output directory")
	rootCmd.Flags().StringVarP(&branch, "branch", "b", "", "branch to gather data from")
	rootCmd.Flags().StringVarP(&sinceDate, "since", "s", "", "only gather data since this date (YYYY-MM-DD)")
	rootCmd.Flags().StringVarP(&usernamesFile, "usernames", "u", "github-usernames.json", "path to the JSON file mapping GitHub usernames to full names")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (info level)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "debug output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger writes to the console and a fresh gather.log per run.
func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	switch {
	case debug:
		log.SetLevel(logrus.DebugLevel)
	case verbose:
		log.SetLevel(logrus.InfoLevel)
	default:
		log.SetLevel(logrus.WarnLevel)
	}

	if f, err := os.Create(logFile); err == nil {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}
	return log
}

func runGather(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg := config.Load()
	cfg.ReposFile = reposFile
	cfg.DatesFile = datesFile
	cfg.UsernamesFile = usernamesFile
	cfg.OutputDir = outputDir
	cfg.Branch = branch
	cfg.Since = sinceDate

	if cfg.GitHubToken == "" {
		log.Warn("no GitHub token provided, API rate limits may apply")
	}

	timeline, err := cfg.LoadTimeline(log)
	if err != nil {
		return err
	}
	repos, err := cfg.LoadRepos()
	if err != nil {
		return err
	}
	fullNames := cfg.LoadFullNames(log)

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", cfg.OutputDir, err)
	}
	log.Infof("output directory: %s", cfg.OutputDir)
	log.Infof("starting data gathering for %d repositories", len(repos))

	src := collector.NewClient(cfg.GitHubToken, log)
	harvester := harvest.New(src, harvest.Config{
		Timeline:  timeline,
		Branch:    cfg.Branch,
		OutputDir: cfg.OutputDir,
		FullNames: fullNames,
	}, log)

	harvester.Run(context.Background(), repos)

	log.Info("data gathering complete")
	return nil
}
