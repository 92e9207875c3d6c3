package tag

import (
	"encoding/json"
	"fmt"
)

// String returns a string representation of the Tag (GGGG,EEEE)
func (t Tag) String() string {
	return fmt.Sprintf("(%04X,%04X)", t.Group, t.Element)
}

// MarshalJSON returns a JSON representation of the Tag
func (t Tag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// MarshalText renders the tag as its database code so tags work as JSON map keys
func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.Code()), nil
}

// UnmarshalText accepts "gggg,eeee" or "(GGGG,EEEE)"
func (t *Tag) UnmarshalText(text []byte) error {
	parsed, err := ParseCode(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
