package datamodel

// Match is one (population row, peripheral row) pair satisfying join-key
// equality and, when time stamps are present, the temporal window in §3.
type Match struct {
	IxPopulation int
	IxPeripheral int
}

// MatchSet is the ordered set of peripheral rows matching one population
// row. Matchmaker yields these in peripheral time-stamp order when time
// stamps exist, otherwise in peripheral row order (§4.3, §5).
type MatchSet struct {
	Population int
	Peripheral []int
}

// Len reports the number of matched peripheral rows.
func (m MatchSet) Len() int { return len(m.Peripheral) }
