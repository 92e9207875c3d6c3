package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jpfielding/cornertext.go/pkg/index"
	"github.com/jpfielding/cornertext.go/pkg/tagstore/sqlite"
	"github.com/spf13/cobra"
)

// NewIndexCmd imports a directory of DICOM files into the tag store
func NewIndexCmd(ctx context.Context, e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index DIR",
		Short: "import DICOM headers into the tag store",
		Long:  "Walks DIR, imports every matching DICOM header into the SQLite tag store and optionally keeps watching for new files.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(e.cfg.Database.Path), 0o755); err != nil {
				return fmt.Errorf("mkdir database dir: %w", err)
			}
			store, err := sqlite.Open(e.cfg.Database.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			pattern, _ := cmd.Flags().GetString("pattern")
			ix, err := index.New(root, pattern, store)
			if err != nil {
				return err
			}
			sum, err := ix.Run(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s: imported %d, skipped %d, failed %d\n",
				sum.RunID, sum.Imported, sum.Skipped, sum.Failed)
			if list, _ := cmd.Flags().GetBool("list"); list {
				all, err := store.Instances(ctx)
				if err != nil {
					return err
				}
				for _, in := range all {
					fmt.Fprintf(out, "%s\t%s\t%s\n", in.SOPInstanceUID, in.SeriesInstanceUID, in.Path)
				}
			}

			if watch, _ := cmd.Flags().GetBool("watch"); !watch {
				return nil
			}
			settle, _ := cmd.Flags().GetDuration("settle")
			ix.OnImport = func(path, uid string) {
				slog.InfoContext(ctx, "imported", slog.String("path", path), slog.String("uid", uid))
			}
			w, err := ix.Watch(ctx, sum.RunID, settle)
			if err != nil {
				return err
			}
			slog.InfoContext(ctx, "watching", slog.String("root", root))
			return w.Wait()
		},
	}
	pf := cmd.Flags()
	pf.String("pattern", index.DefaultPattern, "doublestar include pattern, relative to DIR")
	pf.Bool("list", false, "print every indexed instance after the run")
	pf.Bool("watch", false, "keep importing new files until interrupted")
	pf.Duration("settle", index.DefaultSettle, "quiet period before a watched file is imported")
	return cmd
}
