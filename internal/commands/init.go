package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/recon/internal/cli"
	"github.com/cleared-dev/recon/internal/config"
	"github.com/cleared-dev/recon/internal/gitops"
)

func newInitCommand() *cobra.Command {
	var (
		force  bool
		useGit bool
	)

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new reconciliation workspace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			if err := runInit(absDir, force); err != nil {
				return err
			}
			if useGit && !gitops.IsRepo(absDir) {
				if err := gitops.Init(absDir); err != nil {
					return err
				}
				hash, err := gitops.Commit(absDir, "init: recon workspace", gitops.DefaultAuthor, config.FileName, ".gitignore")
				if err != nil {
					return err
				}
				slog.Info("initialized git repository", "commit", hash)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Initialized recon workspace at "+absDir))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing "+config.FileName)
	cmd.Flags().BoolVar(&useGit, "git", false, "initialize a git repository to track reports and run history")

	return cmd
}

func runInit(dir string, force bool) error {
	cfg := config.Default()

	dirs := []string{
		filepath.Join(cfg.Paths.ImportDir, "source"),
		filepath.Join(cfg.Paths.ImportDir, "pos"),
		filepath.Join(cfg.Paths.ImportDir, "processed"),
		cfg.Paths.ReportsDir,
		"logs",
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", config.FileName)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Raw exports carry customer PII; reports and logs are tracked.
	gitignore := cfg.Paths.ImportDir + "/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	return nil
}
