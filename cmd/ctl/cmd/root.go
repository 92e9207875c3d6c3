package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jpfielding/cornertext.go/pkg/config"
	"github.com/jpfielding/cornertext.go/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// env carries the loaded configuration from the root into subcommands
type env struct {
	v      *viper.Viper
	cfg    config.Config
	logOut io.Closer
}

func NewRoot(ctx context.Context, gitsha string) *cobra.Command {
	e := &env{}
	cmd := &cobra.Command{
		Use:   "cornertextctl",
		Short: "a CLI to index DICOM headers and resolve corner annotations",
		Long:  "Imports DICOM headers into a tag store and evaluates the corner text shown over slice views.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.New()
			if err != nil {
				return err
			}
			pf := cmd.Flags()
			for key, flag := range map[string]string{
				"log.level":                      "log-level",
				"log.json":                       "log-json",
				"log.file":                       "log-file",
				"database.path":                  "db",
				"annotations.persist_background": "persist-background",
				"layout.path":                    "layout",
			} {
				if f := pf.Lookup(flag); f != nil {
					_ = v.BindPFlag(key, f)
				}
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			e.v, e.cfg = v, cfg

			// Parse log level
			var level slog.Level
			if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Log.Level))); err != nil {
				level = slog.LevelInfo
			}
			out, closer := logging.Output(os.Stdout, logging.FileConfig{
				Path:       cfg.Log.File,
				MaxSizeMB:  cfg.Log.MaxSizeMB,
				MaxBackups: cfg.Log.MaxBackups,
			})
			e.logOut = closer
			slog.SetDefault(logging.Logger(out, cfg.Log.JSON, level))

			if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Log.Level))); err != nil {
				slog.WarnContext(ctx, "Invalid log level, defaulting to INFO", "level", cfg.Log.Level, "error", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.logOut != nil {
				_ = e.logOut.Close()
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd.OutOrStdout(), cmd, 0)
		},
	}
	cmd.AddCommand(
		NewVersionCmd(ctx, gitsha),
		NewDumpCmd(ctx),
		NewAnalyzeCmd(ctx),
		NewIndexCmd(ctx, e),
		NewAnnotateCmd(ctx, e),
		NewPropertiesCmd(ctx, e),
		NewRenderCmd(ctx, e),
	)
	pf := cmd.PersistentFlags()
	pf.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	pf.Bool("log-json", false, "log as JSON")
	pf.String("log-file", "", "also log to this file, rotated")
	pf.String("db", "", "SQLite tag store path (default from config)")
	return cmd
}

func printCommandTree(w io.Writer, cmd *cobra.Command, indent int) {
	fmt.Fprintln(w, strings.Repeat("\t", indent), cmd.Use+":", cmd.Short)
	for _, subCmd := range cmd.Commands() {
		printCommandTree(w, subCmd, indent+1)
	}
}

func NewVersionCmd(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "git sha for this build",
		Long:  "git sha for this build",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), gitsha)
		},
	}
	return cmd
}
