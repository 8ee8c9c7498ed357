package card

import (
	"encoding/json"
)

// Card dimensions in pixels at 1:1 print scale (standard photo-ID aspect).
const (
	Width  = 825
	Height = 260
)

// Position is a coordinate in card-local pixel space.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Clamp forces both axes into the card bounds.
func (p Position) Clamp() Position {
	return Position{
		X: clampAxis(p.X, Width),
		Y: clampAxis(p.Y, Height),
	}
}

func clampAxis(v, bound int) int {
	if v < 0 {
		return 0
	}
	if v > bound {
		return bound
	}
	return v
}

// UnmarshalJSON accepts either a native {"x":..,"y":..} object or the same
// object JSON-encoded as a string, which some store drivers hand back for
// jsonb columns. Anything unreadable decodes to the origin instead of
// failing the whole layout.
func (p *Position) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		data = []byte(asString)
	}

	var raw struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		*p = Position{}
		return nil
	}

	*p = Position{X: int(raw.X), Y: int(raw.Y)}.Clamp()
	return nil
}
