package cornertext

import (
	"errors"
	"log/slog"

	"github.com/jpfielding/cornertext.go/pkg/annotation"
	"github.com/jpfielding/cornertext.go/pkg/annotation/dicomprovider"
)

// Annotation is the text drawn at one position
type Annotation struct {
	Text       string
	FontFamily string
	FontSize   int
}

// Generate evaluates every property of layout for slice. Each property
// contributes prefix + value + "\n" to its section's text; properties whose
// display-level is below minLevel are left out. A later section at the same
// position replaces an earlier one. Resolution failures leave the value
// empty and are logged.
func Generate(layout *Layout, registry *annotation.Registry, slice *annotation.Slice, minLevel annotation.DisplayLevel) [NumPositions]Annotation {
	var out [NumPositions]Annotation
	if layout == nil {
		return out
	}
	for _, sec := range layout.Sections {
		var text string
		for _, prop := range sec.Properties {
			if annotation.DisplayLevelValue(prop.Attributes, annotation.DisplayAlways) < minLevel {
				continue
			}
			text += prop.Prefix + value(registry, sec, prop, slice) + "\n"
		}
		out[sec.Position] = Annotation{Text: text, FontFamily: sec.FontFamily, FontSize: sec.FontSize}
	}
	return out
}

func value(registry *annotation.Registry, sec Section, prop Property, slice *annotation.Slice) string {
	if prop.Name == "" {
		slog.Warn("property with a missing name", slog.String("position", sec.Position.String()))
		return ""
	}
	v, err := registry.Value(prop.Name, prop.Attributes, slice)
	switch {
	case errors.Is(err, dicomprovider.ErrNoPrimarySubject):
		slog.Debug("no image to annotate", slog.String("property", prop.Name))
		return ""
	case errors.Is(err, annotation.ErrUnknownProperty):
		attrs := []any{slog.String("property", prop.Name), slog.String("position", sec.Position.String())}
		if s := registry.Suggest(prop.Name); s != "" {
			attrs = append(attrs, slog.String("suggest", s))
		}
		slog.Warn("no provider for property", attrs...)
		return ""
	case err != nil:
		slog.Warn("property resolution failed", slog.String("property", prop.Name), slog.Any("err", err))
		return ""
	}
	if v == "" {
		slog.Debug("no property value", slog.String("property", prop.Name), slog.String("position", sec.Position.String()))
	}
	return v
}
