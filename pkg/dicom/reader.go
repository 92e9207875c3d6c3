package dicom

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jpfielding/cornertext.go/pkg/dicom/tag"
)

// ErrNotDICOM is returned when the Part 10 preamble or DICM magic is missing
var ErrNotDICOM = errors.New("invalid DICOM file: missing DICM magic")

// MaxValueLength caps the header values the reader keeps in memory. Longer
// values are streamed past and dropped.
const MaxValueLength = 64 << 10

// Reader reads the header of a DICOM Part 10 stream. Reading stops at
// Pixel Data; sequences are skipped.
type Reader struct {
	r              io.Reader
	transferSyntax string
	explicitVR     bool
}

// NewReader creates a new header reader
func NewReader(r io.Reader) *Reader {
	return &Reader{
		r:          r,
		explicitVR: true,
	}
}

// Parse reads the header elements of a DICOM stream
func Parse(r io.Reader) (*Dataset, error) {
	return NewReader(bufio.NewReader(r)).ReadDataset()
}

// ReadFile reads the header elements of a DICOM file from disk
func ReadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// ReadDataset reads elements until Pixel Data or EOF
func (r *Reader) ReadDataset() (*Dataset, error) {
	ds := NewDataset()

	preamble := make([]byte, 128)
	if _, err := io.ReadFull(r.r, preamble); err != nil {
		return nil, fmt.Errorf("failed to read preamble: %w", errors.Join(ErrNotDICOM, err))
	}
	magic := make([]byte, 4)
	if _, err := io.ReadFull(r.r, magic); err != nil {
		return nil, fmt.Errorf("failed to read DICM magic: %w", errors.Join(ErrNotDICOM, err))
	}
	if string(magic) != "DICM" {
		return nil, ErrNotDICOM
	}

	// Group 0002 (File Meta Information) is ALWAYS Explicit VR Little Endian
	inMeta := true
	for {
		t, err := r.readTag()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tag: %w", err)
		}

		if inMeta && !t.IsGroup0002() {
			inMeta = false
			if r.transferSyntax == "" {
				r.transferSyntax = ImplicitVRLittleEndian
			}
			if r.transferSyntax == ExplicitVRBigEndian {
				return nil, fmt.Errorf("unsupported transfer syntax %s", r.transferSyntax)
			}
			r.explicitVR = isExplicitVR(r.transferSyntax)
		}

		if t == tag.PixelData {
			break
		}

		elem, err := r.readElementWithTag(t)
		if err != nil {
			return nil, fmt.Errorf("failed to read element %v: %w", t, err)
		}
		if elem == nil {
			continue
		}
		ds.Elements[elem.Tag] = elem

		if t == tag.TransferSyntaxUID {
			if s, ok := elem.Value.(string); ok {
				r.transferSyntax = s
			}
		}
	}

	return ds, nil
}

// readTag reads a DICOM tag
func (r *Reader) readTag() (Tag, error) {
	var group, element uint16
	if err := binary.Read(r.r, binary.LittleEndian, &group); err != nil {
		return Tag{}, err
	}
	if err := binary.Read(r.r, binary.LittleEndian, &element); err != nil {
		if err == io.EOF {
			return Tag{}, io.ErrUnexpectedEOF
		}
		return Tag{}, err
	}
	return tag.New(group, element), nil
}

// readVRAndLength reads the VR (explicit only) and value length of an element
func (r *Reader) readVRAndLength(t Tag) (string, uint32, error) {
	var vl uint32
	if !r.explicitVR {
		if err := binary.Read(r.r, binary.LittleEndian, &vl); err != nil {
			return "", 0, err
		}
		return VROf(t), vl, nil
	}

	var vrBytes [2]byte
	if _, err := io.ReadFull(r.r, vrBytes[:]); err != nil {
		return "", 0, err
	}
	vr := string(vrBytes[:])
	if isLongVR(vr) {
		var reserved uint16
		if err := binary.Read(r.r, binary.LittleEndian, &reserved); err != nil {
			return "", 0, err
		}
		if err := binary.Read(r.r, binary.LittleEndian, &vl); err != nil {
			return "", 0, err
		}
		return vr, vl, nil
	}
	var vl16 uint16
	if err := binary.Read(r.r, binary.LittleEndian, &vl16); err != nil {
		return "", 0, err
	}
	return vr, uint32(vl16), nil
}

// readElementWithTag reads a DICOM element after the tag has been read.
// Sequences are consumed and dropped (nil element).
func (r *Reader) readElementWithTag(t Tag) (*Element, error) {
	vr, vl, err := r.readVRAndLength(t)
	if err != nil {
		return nil, err
	}

	if vl == 0xFFFFFFFF {
		if err := r.skipUndefinedLength(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if vr == "SQ" {
		if _, err := io.CopyN(io.Discard, r.r, int64(vl)); err != nil {
			return nil, fmt.Errorf("skipping sequence: %w", err)
		}
		return nil, nil
	}

	if vl > MaxValueLength {
		if _, err := io.CopyN(io.Discard, r.r, int64(vl)); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("skipping %d byte value: %w", vl, err)
		}
		return nil, nil
	}
	data := make([]byte, vl)
	if _, err := io.ReadFull(r.r, data); err != nil {
		return nil, err
	}

	elem := &Element{Tag: t, VR: vr}
	switch {
	case isTextVR(vr):
		elem.Value = trimPadding(string(data))
	case vr == "UL" && len(data) == 4:
		elem.Value = binary.LittleEndian.Uint32(data)
	case vr == "US" && len(data) == 2:
		elem.Value = binary.LittleEndian.Uint16(data)
	default:
		elem.Value = data
	}
	return elem, nil
}

// skipUndefinedLength skips a sequence or item with undefined length.
// Reads until Sequence Delimitation Item (FFFE,E0DD)
func (r *Reader) skipUndefinedLength() error {
	for {
		itemTag, err := r.readTag()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading sequence item tag: %w", err)
		}

		// delimiters carry a 4-byte length and no VR
		if itemTag.Group == 0xFFFE {
			var delimLen uint32
			if err := binary.Read(r.r, binary.LittleEndian, &delimLen); err != nil {
				return fmt.Errorf("reading delimiter length: %w", err)
			}
			switch itemTag {
			case tag.SequenceDelimitationItem:
				return nil
			case tag.ItemDelimitationItem:
				continue
			case tag.Item:
				if delimLen != 0xFFFFFFFF && delimLen > 0 {
					if _, err := io.CopyN(io.Discard, r.r, int64(delimLen)); err != nil {
						return fmt.Errorf("skipping item data: %w", err)
					}
				}
				continue
			}
		}

		_, vl, err := r.readVRAndLength(itemTag)
		if err != nil {
			return fmt.Errorf("reading nested element: %w", err)
		}
		if vl == 0xFFFFFFFF {
			if err := r.skipUndefinedLength(); err != nil {
				return err
			}
			continue
		}
		if _, err := io.CopyN(io.Discard, r.r, int64(vl)); err != nil {
			return fmt.Errorf("skipping element value: %w", err)
		}
	}
}
