package grade

import "scholarship-matcher/internal/models"

// TableVersion identifies the discrete band midpoints below. Bump it when a
// midpoint changes so stored snapshots can be interpreted later.
const TableVersion = "2024-1"

// Band maps a discrete grade symbol to its canonical percentage midpoint.
type Band struct {
	Symbol   string
	Midpoint float64
}

// Table lists the bands of one discrete system, best first.
type Table struct {
	System  models.GradingSystem
	Version string
	Bands   []Band
}

var letterTable = Table{
	System:  models.GradingLetter,
	Version: TableVersion,
	Bands: []Band{
		{"A+", 97}, {"A", 93}, {"A-", 90},
		{"B+", 87}, {"B", 83}, {"B-", 80},
		{"C+", 77}, {"C", 73}, {"C-", 70},
		{"D+", 67}, {"D", 63}, {"D-", 60},
		{"F", 50},
	},
}

var ukTable = Table{
	System:  models.GradingUK,
	Version: TableVersion,
	Bands: []Band{
		{"First", 75},
		{"2:1", 65},
		{"2:2", 55},
		{"Third", 45},
		{"Pass", 40},
		{"Fail", 30},
	},
}

// TableFor returns the band table of a discrete system.
func TableFor(system models.GradingSystem) (Table, bool) {
	switch system {
	case models.GradingLetter:
		return letterTable, true
	case models.GradingUK:
		return ukTable, true
	default:
		return Table{}, false
	}
}

func (t Table) lookup(symbol string) (Band, bool) {
	for _, b := range t.Bands {
		if b.Symbol == symbol {
			return b, true
		}
	}
	return Band{}, false
}

// nearest returns the band whose midpoint is closest to pct. Bands are
// ordered best first, so a tie resolves to the better band.
func (t Table) nearest(pct float64) Band {
	best := t.Bands[0]
	bestDist := abs(pct - best.Midpoint)
	for _, b := range t.Bands[1:] {
		if d := abs(pct - b.Midpoint); d < bestDist {
			best, bestDist = b, d
		}
	}
	return best
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
