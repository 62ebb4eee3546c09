package types

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Bytes is a byte count written as a human size ("10MB", "1.5 GiB") in
// config files and flags. Plain numbers are read as bytes.
type Bytes uint64

// ParseBytes parses a human size or a plain byte count.
func ParseBytes(s string) (Bytes, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return Bytes(n), nil
}

func (b Bytes) String() string {
	return humanize.Bytes(uint64(b))
}

func (b Bytes) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText lets kong parse --rate-limit style flags.
func (b *Bytes) UnmarshalText(text []byte) error {
	parsed, err := ParseBytes(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

func (b *Bytes) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case nil:
		*b = 0
		return nil
	case float64:
		if v < 0 {
			return fmt.Errorf("invalid size %v: negative", v)
		}
		*b = Bytes(v)
		return nil
	default:
		return b.UnmarshalText([]byte(fmt.Sprint(v)))
	}
}

func (b Bytes) MarshalYAML() (any, error) {
	return b.String(), nil
}
