package proj

import (
	"math"

	"github.com/paulmach/orb"
)

// BC Albers (EPSG:3005): an ellipsoidal Albers equal-area conic on the
// GRS 80 ellipsoid with standard parallels 50°N and 58.5°N, origin at
// 45°N 126°W, false easting 1 000 000 m, false northing 0. Formulas
// follow Snyder, Map Projections: A Working Manual (USGS PP 1395),
// pp. 101-102.

const (
	grs80A  = 6378137.0
	grs80E2 = 0.006694380022903416 // first eccentricity squared

	albersLat1   = 50.0
	albersLat2   = 58.5
	albersLat0   = 45.0
	albersLon0   = -126.0
	albersFalseE = 1000000.0
	albersFalseN = 0.0

	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
)

// albers holds the precomputed cone constants n, C, and rho0.
var albers = newAlbersCone()

type albersCone struct {
	n    float64
	c    float64
	rho0 float64
}

func newAlbersCone() albersCone {
	m1 := albersM(math.Sin(albersLat1 * degToRad), math.Cos(albersLat1*degToRad))
	m2 := albersM(math.Sin(albersLat2 * degToRad), math.Cos(albersLat2*degToRad))
	q1 := albersQ(math.Sin(albersLat1 * degToRad))
	q2 := albersQ(math.Sin(albersLat2 * degToRad))
	q0 := albersQ(math.Sin(albersLat0 * degToRad))

	n := (m1*m1 - m2*m2) / (q2 - q1)
	c := m1*m1 + n*q1
	return albersCone{
		n:    n,
		c:    c,
		rho0: grs80A * math.Sqrt(c-n*q0) / n,
	}
}

// albersM is Snyder eq. 14-15.
func albersM(sinphi, cosphi float64) float64 {
	return cosphi / math.Sqrt(1-grs80E2*sinphi*sinphi)
}

// albersQ is Snyder eq. 3-12, the authalic latitude function.
func albersQ(sinphi float64) float64 {
	e := math.Sqrt(grs80E2)
	return (1 - grs80E2) * (sinphi/(1-grs80E2*sinphi*sinphi) -
		(1/(2*e))*math.Log((1-e*sinphi)/(1+e*sinphi)))
}

func bcAlbersForward(p orb.Point) orb.Point {
	lon := p[0] * degToRad
	lat := p[1] * degToRad

	q := albersQ(math.Sin(lat))
	rho := grs80A * math.Sqrt(albers.c-albers.n*q) / albers.n
	theta := albers.n * (lon - albersLon0*degToRad)

	return orb.Point{
		albersFalseE + rho*math.Sin(theta),
		albersFalseN + albers.rho0 - rho*math.Cos(theta),
	}
}

func bcAlbersInverse(p orb.Point) orb.Point {
	x := p[0] - albersFalseE
	y := albers.rho0 - (p[1] - albersFalseN)

	// n is positive for northern standard parallels, so no quadrant
	// adjustment is needed here.
	rho := math.Hypot(x, y)
	theta := math.Atan2(x, y)
	q := (albers.c - rho*rho*albers.n*albers.n/(grs80A*grs80A)) / albers.n

	lon := albersLon0*degToRad + theta/albers.n
	return orb.Point{lon * radToDeg, latFromQ(q) * radToDeg}
}

// latFromQ inverts the authalic latitude function by fixed-point
// iteration (Snyder eq. 3-16). Values of q at or beyond the pole clamp
// to ±90°.
func latFromQ(q float64) float64 {
	e := math.Sqrt(grs80E2)
	if math.Abs(q) >= albersQ(1) {
		return math.Copysign(math.Pi/2, q)
	}
	phi := math.Asin(q / 2)
	for i := 0; i < 15; i++ {
		sinphi := math.Sin(phi)
		d := 1 - grs80E2*sinphi*sinphi
		next := phi + (d*d/(2*math.Cos(phi)))*
			(q/(1-grs80E2)-sinphi/d+(1/(2*e))*math.Log((1-e*sinphi)/(1+e*sinphi)))
		if math.Abs(next-phi) < 1e-12 {
			return next
		}
		phi = next
	}
	return phi
}
