// Package geo computes distances between resolved cities.
package geo

import (
	"math"

	"github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/model"
)

// WGS-84 ellipsoid
const (
	semiMajor  = 6378137.0
	flattening = 1 / 298.257223563
	semiMinor  = (1 - flattening) * semiMajor

	maxIterations = 200
	convergence   = 1e-12
)

// Distance returns the geodesic distance in km between two cached cities,
// rounded to two decimals. ok is false if either city is missing or
// unresolved.
func Distance(source, destination string, cache model.CoordinateCache) (km float64, ok bool) {
	a, ok := cache.Lookup(source)
	if !ok {
		return 0, false
	}
	b, ok := cache.Lookup(destination)
	if !ok {
		return 0, false
	}
	return Round2(GeodesicKm(a, b)), true
}

// GeodesicKm solves the inverse geodesic problem on the WGS-84 ellipsoid
// (Vincenty). Near-antipodal pairs where the iteration does not converge fall
// back to the spherical great-circle distance.
func GeodesicKm(a, b model.Coordinate) float64 {
	// canonical order keeps the result bit-for-bit symmetric
	if b.Lat < a.Lat || (b.Lat == a.Lat && b.Lon < a.Lon) {
		a, b = b, a
	}
	if m, ok := vincenty(a, b); ok {
		return m / 1000
	}
	return h3.GreatCircleDistanceKm(
		h3.LatLng{Lat: a.Lat, Lng: a.Lon},
		h3.LatLng{Lat: b.Lat, Lng: b.Lon},
	)
}

func vincenty(p1, p2 model.Coordinate) (float64, bool) {
	l := toRad(p2.Lon - p1.Lon)
	u1 := math.Atan((1 - flattening) * math.Tan(toRad(p1.Lat)))
	u2 := math.Atan((1 - flattening) * math.Tan(toRad(p2.Lat)))
	sinU1, cosU1 := math.Sincos(u1)
	sinU2, cosU2 := math.Sincos(u2)

	lambda := l
	var sinSigma, cosSigma, sigma, cosSqAlpha, cos2SigmaM float64
	converged := false
	for i := 0; i < maxIterations; i++ {
		sinLambda, cosLambda := math.Sincos(lambda)
		x := cosU2 * sinLambda
		y := cosU1*sinU2 - sinU1*cosU2*cosLambda
		sinSigma = math.Sqrt(x*x + y*y)
		if sinSigma == 0 {
			return 0, true // coincident points
		}
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)
		sinAlpha := cosU1 * cosU2 * sinLambda / sinSigma
		cosSqAlpha = 1 - sinAlpha*sinAlpha
		if cosSqAlpha != 0 {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cosSqAlpha
		} else {
			cos2SigmaM = 0 // equatorial line
		}
		c := flattening / 16 * cosSqAlpha * (4 + flattening*(4-3*cosSqAlpha))
		prev := lambda
		lambda = l + (1-c)*flattening*sinAlpha*
			(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))
		if math.Abs(lambda-prev) < convergence {
			converged = true
			break
		}
	}
	if !converged {
		return 0, false
	}

	uSq := cosSqAlpha * (semiMajor*semiMajor - semiMinor*semiMinor) / (semiMinor * semiMinor)
	bigA := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	bigB := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
	deltaSigma := bigB * sinSigma * (cos2SigmaM + bigB/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
		bigB/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))
	return semiMinor * bigA * (sigma - deltaSigma), true
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
