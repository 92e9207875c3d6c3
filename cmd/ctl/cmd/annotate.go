package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jpfielding/cornertext.go/pkg/annotation"
	"github.com/jpfielding/cornertext.go/pkg/annotation/dicomprovider"
	"github.com/jpfielding/cornertext.go/pkg/annotation/volumeprovider"
	"github.com/jpfielding/cornertext.go/pkg/tagstore"
	"github.com/jpfielding/cornertext.go/pkg/tagstore/sqlite"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// sliceFlags registers the flags describing what is loaded in a slice view
func sliceFlags(pf *pflag.FlagSet) {
	pf.StringSlice("bg", nil, "background instance UIDs")
	pf.StringSlice("fg", nil, "foreground instance UIDs")
	pf.StringSlice("label", nil, "label map instance UIDs")
	pf.String("bg-name", "background", "background volume name")
	pf.String("fg-name", "foreground", "foreground volume name")
	pf.String("label-name", "label", "label map volume name")
	pf.Float64("label-opacity", 1, "label map opacity, 0..1")
	pf.String("values", "", "read tag values from this JSON file instead of the database")
	pf.Bool("persist-background", false, "keep background values when the foreground is not DICOM")
}

func sliceFromFlags(pf *pflag.FlagSet) *annotation.Slice {
	vol := func(uidsFlag, nameFlag string) *annotation.Volume {
		uids, _ := pf.GetStringSlice(uidsFlag)
		name, _ := pf.GetString(nameFlag)
		if !pf.Changed(uidsFlag) && !pf.Changed(nameFlag) {
			return nil
		}
		return annotation.NewDICOMVolume(name, uids...)
	}
	opacity, _ := pf.GetFloat64("label-opacity")
	return &annotation.Slice{
		Name:         "cli",
		Background:   vol("bg", "bg-name"),
		Foreground:   vol("fg", "fg-name"),
		Label:        vol("label", "label-name"),
		LabelOpacity: opacity,
	}
}

// openStore returns the JSON fixture store when --values is set, else the database
func openStore(e *env, pf *pflag.FlagSet) (tagstore.Store, io.Closer, error) {
	if values, _ := pf.GetString("values"); values != "" {
		f, err := os.Open(values)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		m, err := tagstore.LoadJSON(f)
		if err != nil {
			return nil, nil, err
		}
		return m, m, nil
	}
	if err := os.MkdirAll(filepath.Dir(e.cfg.Database.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("mkdir database dir: %w", err)
	}
	s, err := sqlite.Open(e.cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	return s, s, nil
}

// warnUnindexed flags layer instances the database has never imported
func warnUnindexed(ctx context.Context, db *sqlite.Store, pf *pflag.FlagSet) {
	for _, layer := range []string{"bg", "fg", "label"} {
		uids, _ := pf.GetStringSlice(layer)
		if len(uids) == 0 {
			continue
		}
		if _, err := db.Instance(ctx, uids[0]); errors.Is(err, tagstore.ErrNotFound) {
			slog.WarnContext(ctx, "instance not indexed", slog.String("layer", layer), slog.String("uid", uids[0]))
		}
	}
}

func newRegistry(store tagstore.Store, persistBackground bool) *annotation.Registry {
	r := annotation.NewRegistry()
	r.Register(dicomprovider.Name, dicomprovider.New(store, persistBackground))
	r.Register(volumeprovider.Name, volumeprovider.New())
	return r
}

// NewAnnotateCmd resolves a single property for the slice described by flags
func NewAnnotateCmd(ctx context.Context, e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotate PROPERTY",
		Short: "resolve one annotation property",
		Long:  "Resolves a corner annotation property for the background/foreground/label instances given as flags.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pf := cmd.Flags()
			store, closer, err := openStore(e, pf)
			if err != nil {
				return err
			}
			defer closer.Close()
			if db, ok := store.(*sqlite.Store); ok {
				warnUnindexed(ctx, db, pf)
			}

			attrs := annotation.Attributes{}
			kvs, _ := pf.GetStringToString("attr")
			for k, v := range kvs {
				attrs[k] = v
			}
			if layer, _ := pf.GetString("layer"); layer != "" {
				attrs["layer"] = layer
			}

			r := newRegistry(store, e.cfg.Annotations.PersistBackground)
			v, err := r.Value(args[0], attrs, sliceFromFlags(pf))
			switch {
			case errors.Is(err, annotation.ErrUnknownProperty):
				if s := r.Suggest(args[0]); s != "" {
					return fmt.Errorf("%w, did you mean %q?", err, s)
				}
				return err
			case errors.Is(err, dicomprovider.ErrNoPrimarySubject):
				return fmt.Errorf("%w: pass --bg or --fg", err)
			case err != nil:
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
	pf := cmd.Flags()
	sliceFlags(pf)
	pf.String("layer", "", "layer indicator (background|foreground|label or 0..2)")
	pf.StringToString("attr", nil, "extra property attributes, k=v")
	return cmd
}

// NewPropertiesCmd lists the registered providers and what they serve
func NewPropertiesCmd(ctx context.Context, e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "properties",
		Short: "list annotation properties by provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := newRegistry(tagstore.NewMemory(), false)
			out := cmd.OutOrStdout()
			for _, name := range r.Names() {
				p, _ := r.Provider(name)
				props := p.SupportedProperties()
				sort.Strings(props)
				fmt.Fprintf(out, "%s: %s\n", name, strings.Join(props, ", "))
			}
			return nil
		},
	}
	return cmd
}
