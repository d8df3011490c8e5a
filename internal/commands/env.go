package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/internal/config"
	"github.com/ledgerlens/ledgerlens/internal/gitops"
	"github.com/ledgerlens/ledgerlens/internal/logger"
	"github.com/ledgerlens/ledgerlens/internal/review"
	"github.com/ledgerlens/ledgerlens/internal/template"
)

// repoEnv is what a command needs from an initialized repo.
type repoEnv struct {
	root string
	cfg  *config.Config
	reg  *template.Registry
	log  zerolog.Logger
}

// openRepo loads the config of the repo named by --repo. Commands that can
// run outside a repo pass required=false and get defaults.
func openRepo(cmd *cobra.Command, g *globalFlags, required bool) (*repoEnv, error) {
	root, err := filepath.Abs(g.repo)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(filepath.Join(root, config.FileName))
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && !required:
		cfg = config.Default("")
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("%s is not a ledgerlens repo (run ledgerlens init)", root)
	default:
		return nil, err
	}

	level := cfg.Log.Level
	if g.logLevel != "" {
		level = g.logLevel
	}
	log, err := logger.New(cmd.ErrOrStderr(), level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	reg := template.Default()
	if cfg.TemplatesFile != "" {
		path := cfg.TemplatesFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		extra, err := template.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if reg, err = reg.With(extra...); err != nil {
			return nil, fmt.Errorf("registering %s: %w", cfg.TemplatesFile, err)
		}
		log.Debug().Int("templates", len(extra)).Str("file", path).Msg("loaded custom templates")
	}

	return &repoEnv{root: root, cfg: cfg, reg: reg, log: log}, nil
}

// store opens the configured review store. The returned func releases it.
func (e *repoEnv) store(ctx context.Context) (review.Store, func(), error) {
	return review.Open(ctx, e.cfg.Storage.Driver, e.root, e.cfg.Storage.DSN())
}

// commit records the repo state in git when auto-commit is on. Failures are
// logged; the data change itself already succeeded.
func (e *repoEnv) commit(message string) {
	if !e.cfg.Git.AutoCommit || !gitops.IsRepo(e.root) {
		return
	}
	hash, err := gitops.CommitAll(e.root, message, gitops.Author{
		Name:  e.cfg.Git.AuthorName,
		Email: e.cfg.Git.AuthorEmail,
	})
	if err != nil {
		e.log.Warn().Err(err).Msg("git commit failed")
		return
	}
	if hash != "" {
		e.log.Debug().Str("commit", hash).Msg("committed")
	}
}
