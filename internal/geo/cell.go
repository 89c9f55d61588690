package geo

import (
	"fmt"

	"github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/model"
)

// CellOf returns the H3 cell index containing c at resolution res.
func CellOf(c model.Coordinate, res int) (string, error) {
	if res < 0 || res > 15 {
		return "", fmt.Errorf("h3 resolution %d out of range [0,15]", res)
	}
	cell, err := h3.LatLngToCell(h3.LatLng{Lat: c.Lat, Lng: c.Lon}, res)
	if err != nil {
		return "", fmt.Errorf("h3 cell for %s: %w", c, err)
	}
	return cell.String(), nil
}
