// Command synccli is a thin command-line harness around the sync engine,
// standing in for the desktop UI shell the engine itself stays agnostic of.
package main

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/codeexpert/syncengine/internal/apiclient"
	"github.com/codeexpert/syncengine/internal/config"
	"github.com/codeexpert/syncengine/internal/signer"
	"github.com/codeexpert/syncengine/internal/store"
	syncengine "github.com/codeexpert/syncengine/internal/sync"
	"github.com/codeexpert/syncengine/pkg/project"
)

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo})))

	root := &cobra.Command{
		Use:   "synccli",
		Short: "Drive project syncs against the remote server from the command line",
	}

	var forceFlag string
	syncCmd := &cobra.Command{
		Use:   "sync <project-id>",
		Short: "Run one sync for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), project.ID(args[0]), forceFlag)
		},
	}
	syncCmd.Flags().StringVar(&forceFlag, "force", "", `force a direction instead of failing on conflict: "push" or "pull"`)
	root.AddCommand(syncCmd)

	if err := root.ExecuteContext(context.Background()); err != nil {
		slog.Error("synccli: failed", "error", err)
		os.Exit(1)
	}
}

func runSync(ctx context.Context, id project.ID, forceFlag string) error {
	cfgPath := filepath.Join(configDir(), "settings.json")
	cfg, err := config.LoadFromFile(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	projectDir, err := cfg.RequireProjectDir()
	if err != nil {
		return err
	}

	key, err := loadSigningKey(cfg.PrivateKeyPath)
	if err != nil {
		return fmt.Errorf("load signing key: %w", err)
	}

	client := apiclient.New(cfg.ServerURL, &signer.Signer{Key: key})

	st, err := store.Open(filepath.Join(configDir(), "projects.json"))
	if err != nil {
		return fmt.Errorf("open project store: %w", err)
	}
	defer st.Close()

	proj, ok := st.Find(id)
	if !ok {
		proj = project.Project{Metadata: project.Metadata{ProjectID: id}}
	}

	var force *project.Force
	switch forceFlag {
	case "":
	case string(project.ForcePush):
		f := project.ForcePush
		force = &f
	case string(project.ForcePull):
		f := project.ForcePull
		force = &f
	default:
		return fmt.Errorf("invalid --force value %q, want %q or %q", forceFlag, project.ForcePush, project.ForcePull)
	}

	engine := &syncengine.Engine{
		API:   client,
		Store: st,
		Root:  projectDir,
		Status: syncengine.NewStatus(),
	}

	committed, err := engine.Run(ctx, proj, force)
	if err != nil {
		return err
	}

	slog.Info("synccli: sync complete", "project", committed.ProjectID, "files", len(committed.Local.Files))
	return nil
}

func loadSigningKey(path string) (*rsa.PrivateKey, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return signer.LoadPrivateKeyPEM(pemBytes)
}

func configDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "syncengine")
	}
	return ".syncengine"
}
