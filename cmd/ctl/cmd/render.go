package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/jpfielding/cornertext.go/pkg/annotation"
	"github.com/jpfielding/cornertext.go/pkg/cornertext"
	"github.com/spf13/cobra"
)

// NewRenderCmd evaluates a layout for the slice described by flags
func NewRenderCmd(ctx context.Context, e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "render the corner text of a slice view",
		Long:  "Evaluates a corner text layout (XML or YAML, built in when unset) and prints it as a framed view or as plain text per position.",
		RunE: func(cmd *cobra.Command, args []string) error {
			pf := cmd.Flags()
			layout := cornertext.Default()
			if path := e.cfg.Layout.Path; path != "" {
				l, err := cornertext.Load(path)
				if err != nil {
					return err
				}
				layout = l
			}

			store, closer, err := openStore(e, pf)
			if err != nil {
				return err
			}
			defer closer.Close()

			levelName, _ := pf.GetString("level")
			level := annotation.DisplayLevelValue(annotation.Attributes{"display-level": levelName}, 0)
			if level == 0 {
				return fmt.Errorf("unknown display level %q", levelName)
			}

			r := newRegistry(store, e.cfg.Annotations.PersistBackground)
			anns := cornertext.Generate(layout, r, sliceFromFlags(pf), level)

			out := cmd.OutOrStdout()
			if plain, _ := pf.GetBool("plain"); plain {
				for i, a := range anns {
					if a.Text == "" {
						continue
					}
					fmt.Fprintf(out, "[%s] %s %d\n", cornertext.Position(i), a.FontFamily, a.FontSize)
					fmt.Fprint(out, strings.TrimRight(a.Text, "\n")+"\n")
				}
				return nil
			}
			width, _ := pf.GetInt("width")
			fmt.Fprintln(out, cornertext.Render(anns, width))
			return nil
		},
	}
	pf := cmd.Flags()
	sliceFlags(pf)
	pf.String("layout", "", "layout file, .xml or .yaml")
	pf.String("level", "least", "show properties at or above this display level (least|sometimes|always)")
	pf.Int("width", 80, "terminal width")
	pf.Bool("plain", false, "print text per position instead of a framed view")
	return cmd
}
