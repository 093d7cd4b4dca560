package distance

import (
	"math"
	"strconv"
)

const minutesPerMile = 1.2

type band struct {
	maxDiff int
	miles   float64
}

// Bands by absolute difference of the three-digit ZIP prefixes.
var estimateBands = []band{
	{maxDiff: 0, miles: 25},
	{maxDiff: 5, miles: 100},
	{maxDiff: 20, miles: 500},
	{maxDiff: 50, miles: 1000},
}

const farMiles = 2000

// Estimate derives a distance from the ZIP prefixes alone. It is pure and
// never touches the network. Prefixes that do not parse land in the farthest
// band.
func Estimate(originZip, destinationZip string) Result {
	origin, destination := normalizeZip(originZip), normalizeZip(destinationZip)
	miles := estimateMiles(origin, destination)
	return Result{
		OriginZip:       origin,
		DestinationZip:  destination,
		Miles:           miles,
		DurationMinutes: int(math.Round(miles * minutesPerMile)),
		Source:          SourceEstimate,
	}
}

func estimateMiles(origin, destination string) float64 {
	a, okA := zipPrefix(origin)
	b, okB := zipPrefix(destination)
	if !okA || !okB {
		return farMiles
	}

	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	for _, bnd := range estimateBands {
		if diff <= bnd.maxDiff {
			return bnd.miles
		}
	}
	return farMiles
}

func zipPrefix(zip string) (int, bool) {
	if len(zip) < 3 {
		return 0, false
	}
	n, err := strconv.Atoi(zip[:3])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
