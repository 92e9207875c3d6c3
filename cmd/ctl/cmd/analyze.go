package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/jpfielding/cornertext.go/pkg/annotation"
	"github.com/jpfielding/cornertext.go/pkg/annotation/dicomprovider"
	"github.com/jpfielding/cornertext.go/pkg/dicom"
	"github.com/jpfielding/cornertext.go/pkg/dicom/tag"
	"github.com/jpfielding/cornertext.go/pkg/tagstore"
	"github.com/spf13/cobra"
)

// NewAnalyzeCmd creates the analyze cobra command
func NewAnalyzeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Show the annotation tags of a DICOM file",
		Long:  "Parses a DICOM header and shows each annotation tag it carries together with the corner text it would produce.",
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath, _ := cmd.Flags().GetString("file")
			if filePath == "" && len(args) > 0 {
				filePath = args[0]
			}
			if filePath == "" {
				return fmt.Errorf("file path is required. Use --file flag or provide as argument")
			}
			return runAnalyze(cmd.OutOrStdout(), filePath)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("file", "f", "", "DICOM file path to analyze")

	return cmd
}

func runAnalyze(out io.Writer, filePath string) error {
	ds, err := dicom.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	fmt.Fprintf(out, "Total elements: %d\n", len(ds.Elements))
	fmt.Fprintf(out, "TransferSyntax: %s\n", ds.Text(tag.TransferSyntaxUID))
	fmt.Fprintf(out, "SOPInstanceUID: %s\n\n", ds.SOPInstanceUID())

	fmt.Fprintln(out, "=== Annotation Tags ===")
	for _, t := range tag.Annotation {
		if _, ok := ds.FindElement(t); !ok {
			fmt.Fprintf(out, "%s %-24s (absent)\n", t.Code(), t.LookupName())
			continue
		}
		fmt.Fprintf(out, "%s %-24s %q\n", t.Code(), t.LookupName(), ds.Text(t))
	}

	store := tagstore.NewMemory()
	uid, err := store.PutDataset(ds)
	if err != nil {
		return err
	}
	p := dicomprovider.New(store, false)
	slice := &annotation.Slice{Background: annotation.NewDICOMVolume(filePath, uid)}

	fmt.Fprintln(out, "\n=== Corner Text ===")
	for _, prop := range p.SupportedProperties() {
		v, err := p.GetValueForPropertyName(prop, nil, slice)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-24s %s\n", prop, v)
	}
	return nil
}
