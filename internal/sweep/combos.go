package sweep

import "fmt"

// Combo is one point in the parameter grid.
type Combo struct {
	Radius             float64 `json:"radius"`
	VerticalResolution float64 `json:"vertical_resolution"`
	MinPoints          int     `json:"min_points"`
}

func (c Combo) String() string {
	return fmt.Sprintf("r=%.3f v=%.3f m=%d", c.Radius, c.VerticalResolution, c.MinPoints)
}

// Combos returns the cartesian product of the three value lists, ordered by
// radius, then vertical resolution, then min points. Any empty list yields
// no combinations.
func Combos(radii, verticalResolutions []float64, minPoints []int) []Combo {
	if len(radii) == 0 || len(verticalResolutions) == 0 || len(minPoints) == 0 {
		return nil
	}
	out := make([]Combo, 0, len(radii)*len(verticalResolutions)*len(minPoints))
	for _, r := range radii {
		for _, v := range verticalResolutions {
			for _, m := range minPoints {
				out = append(out, Combo{Radius: r, VerticalResolution: v, MinPoints: m})
			}
		}
	}
	return out
}
