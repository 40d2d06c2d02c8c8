package confloader

import (
	"errors"

	"github.com/knadh/koanf/maps"
)

// mapProvider feeds a dotted-key map to koanf.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("confloader: map provider does not support ReadBytes")
}

// Read unflattens dotted keys so they merge with nested sources.
func (m mapProvider) Read() (map[string]any, error) {
	return maps.Unflatten(map[string]any(m), "."), nil
}
