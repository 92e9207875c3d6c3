// Package cornertext evaluates corner annotation layouts against the
// registered property providers for a slice view.
package cornertext

import (
	"bytes"
	_ "embed"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jpfielding/cornertext.go/pkg/annotation"
	"gopkg.in/yaml.v3"
)

// ErrInvalidLayout wraps every structural problem found in a layout
var ErrInvalidLayout = errors.New("invalid corner text layout")

const (
	DefaultFontFamily = "Times"
	DefaultFontSize   = 14
)

//go:embed default.xml
var defaultLayout []byte

// Position is where a block of text is drawn in the view
type Position int

const (
	BottomLeft Position = iota
	BottomRight
	TopLeft
	TopRight
	Bottom
	Right
	Left
	Top
)

// NumPositions is the number of corners and edges
const NumPositions = 8

var positionNames = [NumPositions]string{
	"bottom-left", "bottom-right", "top-left", "top-right",
	"bottom", "right", "left", "top",
}

func (p Position) String() string {
	if p < 0 || int(p) >= NumPositions {
		return "Position(" + strconv.Itoa(int(p)) + ")"
	}
	return positionNames[p]
}

// ParsePosition maps "top-left" and friends onto a Position
func ParsePosition(s string) (Position, bool) {
	for i, n := range positionNames {
		if n == s {
			return Position(i), true
		}
	}
	return 0, false
}

// Layout is a parsed annotation layout
type Layout struct {
	FontFamily string
	FontSize   int
	Sections   []Section
}

// Section is one <corner> or <edge> block
type Section struct {
	Element    string // corner or edge
	Position   Position
	FontFamily string
	FontSize   int
	Properties []Property
}

// Property is one line of a section. Attributes carries every attribute of
// the element, name and prefix included, for the providers to inspect.
type Property struct {
	Name       string
	Prefix     string
	Category   string
	Attributes annotation.Attributes
}

// raw is the format independent shape both decoders produce
type raw struct {
	root       string
	fontFamily string
	fontSize   string
	sections   []rawSection
}

type rawSection struct {
	element    string
	attrs      map[string]string
	properties []rawElement
}

type rawElement struct {
	element string
	attrs   map[string]string
}

// Default returns the built in layout
func Default() *Layout {
	l, err := ParseXML(bytes.NewReader(defaultLayout))
	if err != nil {
		panic(err)
	}
	return l
}

// Load reads a layout file, YAML for .yaml/.yml and XML otherwise
func Load(path string) (*Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(f)
	}
	return ParseXML(f)
}

// ParseXML reads <annotations><corner position=".."><property name=".."/>...
func ParseXML(r io.Reader) (*Layout, error) {
	var doc xmlElement
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	rl := raw{
		root:       doc.XMLName.Local,
		fontFamily: attr(doc.Attrs, "fontFamily"),
		fontSize:   attr(doc.Attrs, "fontSize"),
	}
	for _, sec := range doc.Children {
		rs := rawSection{element: sec.XMLName.Local, attrs: attrMap(sec.Attrs)}
		for _, prop := range sec.Children {
			rs.properties = append(rs.properties, rawElement{element: prop.XMLName.Local, attrs: attrMap(prop.Attrs)})
		}
		rl.sections = append(rl.sections, rs)
	}
	return rl.build()
}

type xmlElement struct {
	XMLName  xml.Name
	Attrs    []xml.Attr   `xml:",any,attr"`
	Children []xmlElement `xml:",any"`
}

func attr(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func attrMap(attrs []xml.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name.Local] = a.Value
	}
	return m
}

type yamlLayout struct {
	FontFamily string        `yaml:"fontFamily"`
	FontSize   string        `yaml:"fontSize"`
	Sections   []yamlSection `yaml:"sections"`
}

type yamlSection struct {
	Element    string              `yaml:"element"`
	Position   string              `yaml:"position"`
	FontFamily string              `yaml:"fontFamily"`
	FontSize   string              `yaml:"fontSize"`
	Properties []map[string]string `yaml:"properties"`
}

// ParseYAML reads the YAML form of a layout:
//
//	fontFamily: Courier
//	sections:
//	  - element: corner
//	    position: top-left
//	    properties:
//	      - name: PatientName
func ParseYAML(r io.Reader) (*Layout, error) {
	var doc yamlLayout
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	rl := raw{root: "annotations", fontFamily: doc.FontFamily, fontSize: doc.FontSize}
	for _, sec := range doc.Sections {
		attrs := map[string]string{}
		for k, v := range map[string]string{"position": sec.Position, "fontFamily": sec.FontFamily, "fontSize": sec.FontSize} {
			if v != "" {
				attrs[k] = v
			}
		}
		element := sec.Element
		if element == "" {
			element = "corner"
		}
		rs := rawSection{element: element, attrs: attrs}
		for _, p := range sec.Properties {
			rs.properties = append(rs.properties, rawElement{element: "property", attrs: p})
		}
		rl.sections = append(rl.sections, rs)
	}
	return rl.build()
}

func (rl raw) build() (*Layout, error) {
	if rl.root != "annotations" {
		return nil, fmt.Errorf("%w: root element is <%s>, want <annotations>", ErrInvalidLayout, rl.root)
	}
	l := &Layout{FontFamily: DefaultFontFamily, FontSize: DefaultFontSize}
	if rl.fontFamily != "" {
		l.FontFamily = rl.fontFamily
	}
	if rl.fontSize != "" {
		size, err := parseFontSize(rl.fontSize)
		if err != nil {
			return nil, err
		}
		l.FontSize = size
	}
	if len(rl.sections) == 0 {
		return nil, fmt.Errorf("%w: <annotations> has no nested elements", ErrInvalidLayout)
	}
	for _, rs := range rl.sections {
		if rs.element != "corner" && rs.element != "edge" {
			return nil, fmt.Errorf("%w: <annotations> must hold <corner> or <edge>, found <%s>", ErrInvalidLayout, rs.element)
		}
		posName, ok := rs.attrs["position"]
		if !ok {
			return nil, fmt.Errorf("%w: <%s> has no position", ErrInvalidLayout, rs.element)
		}
		pos, ok := ParsePosition(posName)
		if !ok {
			return nil, fmt.Errorf("%w: <%s> position %q", ErrInvalidLayout, rs.element, posName)
		}
		if len(rs.properties) == 0 {
			return nil, fmt.Errorf("%w: <%s position=%s> has no properties", ErrInvalidLayout, rs.element, posName)
		}
		sec := Section{
			Element:    rs.element,
			Position:   pos,
			FontFamily: l.FontFamily,
			FontSize:   l.FontSize,
		}
		if ff := rs.attrs["fontFamily"]; ff != "" {
			sec.FontFamily = ff
		}
		if fs := rs.attrs["fontSize"]; fs != "" {
			size, err := parseFontSize(fs)
			if err != nil {
				return nil, err
			}
			sec.FontSize = size
		}
		for _, re := range rs.properties {
			if re.element != "property" {
				return nil, fmt.Errorf("%w: <%s position=%s> may only hold <property>, found <%s>", ErrInvalidLayout, rs.element, posName, re.element)
			}
			attrs := annotation.Attributes{}
			for k, v := range re.attrs {
				attrs[k] = v
			}
			sec.Properties = append(sec.Properties, Property{
				Name:       attrs["name"],
				Prefix:     attrs["prefix"],
				Category:   attrs["category"],
				Attributes: attrs,
			})
		}
		l.Sections = append(l.Sections, sec)
	}
	return l, nil
}

func parseFontSize(s string) (int, error) {
	size, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || size <= 0 {
		return 0, fmt.Errorf("%w: font size %q", ErrInvalidLayout, s)
	}
	return size, nil
}
