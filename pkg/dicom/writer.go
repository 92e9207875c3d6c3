package dicom

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync/atomic"

	"github.com/jpfielding/cornertext.go/pkg/dicom/tag"
)

// WriteFile writes a dataset to a DICOM Part 10 file
func WriteFile(path string, ds *Dataset) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return Write(f, ds)
}

// Write writes a dataset header. File meta is Explicit VR Little Endian; the
// body follows the dataset's Transfer Syntax UID (explicit when unset).
func Write(w io.Writer, ds *Dataset) (int64, error) {
	cw := &countingWriter{w: w}

	if _, err := cw.Write(make([]byte, 128)); err != nil {
		return cw.n.Load(), err
	}
	if _, err := cw.Write([]byte("DICM")); err != nil {
		return cw.n.Load(), err
	}

	syntax := ds.Text(tag.TransferSyntaxUID)
	if syntax == "" {
		syntax = ExplicitVRLittleEndian
	}
	bodyExplicit := isExplicitVR(syntax)

	var elements []*Element
	for _, elem := range ds.Elements {
		elements = append(elements, elem)
	}
	if _, ok := ds.FindElement(tag.TransferSyntaxUID); !ok {
		elements = append(elements, &Element{Tag: tag.TransferSyntaxUID, VR: "UI", Value: syntax})
	}
	sort.Slice(elements, func(i, j int) bool {
		t1, t2 := elements[i].Tag, elements[j].Tag
		if t1.Group != t2.Group {
			return t1.Group < t2.Group
		}
		return t1.Element < t2.Element
	})

	for _, elem := range elements {
		explicit := bodyExplicit || elem.Tag.IsGroup0002()
		if err := writeElement(cw, elem, explicit); err != nil {
			return cw.n.Load(), fmt.Errorf("failed to write element %v: %w", elem.Tag, err)
		}
	}
	return cw.n.Load(), nil
}

func writeElement(w io.Writer, elem *Element, explicit bool) error {
	if err := binary.Write(w, binary.LittleEndian, elem.Tag.Group); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, elem.Tag.Element); err != nil {
		return err
	}

	vr := elem.VR
	if len(vr) != 2 {
		slog.Warn("Invalid VR length, defaulting to UN", "vr", vr, "tag", elem.Tag)
		vr = "UN"
	}

	valBytes, err := encodeValue(elem.Value)
	if err != nil {
		return err
	}

	if !explicit {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(valBytes))); err != nil {
			return err
		}
		_, err := w.Write(valBytes)
		return err
	}

	if _, err := w.Write([]byte(vr)); err != nil {
		return err
	}
	if isLongVR(vr) {
		if _, err := w.Write([]byte{0, 0}); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(valBytes))); err != nil {
			return err
		}
	} else {
		if len(valBytes) > 0xFFFF {
			return fmt.Errorf("value too long for VR %s: %d bytes", vr, len(valBytes))
		}
		if err := binary.Write(w, binary.LittleEndian, uint16(len(valBytes))); err != nil {
			return err
		}
	}
	_, err = w.Write(valBytes)
	return err
}

// encodeValue returns the even-length encoding of a header value
func encodeValue(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte{}, nil
	case string:
		b := []byte(val)
		if len(b)%2 != 0 {
			b = append(b, ' ')
		}
		return b, nil
	case uint16:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, val)
		return b, nil
	case uint32:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, val)
		return b, nil
	case []byte:
		if len(val)%2 != 0 {
			return append(append([]byte{}, val...), 0), nil
		}
		return val, nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}

// countingWriter counts the bytes written through it
type countingWriter struct {
	n atomic.Int64
	w io.Writer
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n.Add(int64(n))
	return n, err
}
