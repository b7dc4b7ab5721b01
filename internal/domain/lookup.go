package domain

// Base market segments a company can be listed on
const (
	MarketSHA  = 1  // Shanghai A
	MarketSHB  = 2  // Shanghai B
	MarketSZA  = 4  // Shenzhen A
	MarketSZB  = 8  // Shenzhen B
	MarketGEMB = 16 // ChiNext
)

var compositeSegments = map[CompositeMarketType][]int{
	5:  {MarketSHA, MarketSZA},
	10: {MarketSHB, MarketSZB},
	15: {MarketSHA, MarketSHB, MarketSZA, MarketSZB},
	21: {MarketSHA, MarketSZA, MarketGEMB},
	31: {MarketSHA, MarketSHB, MarketSZA, MarketSZB, MarketGEMB},
}

var boardPrefixes = map[BoardType]string{
	BoardSZMBA: "000",
	BoardSZMBB: "200",
	BoardSHMBA: "6",
	BoardSHMBB: "900",
	BoardMSB:   "002",
	BoardGEMB:  "300",
}

var boardIndexIDs = map[BoardType]string{
	BoardSZMBA: "399107",
	BoardSZMBB: "399108",
	BoardSHMBA: "000002",
	BoardSHMBB: "000003",
	BoardMSB:   "399005",
	BoardGEMB:  "399006",
}

var marketIndexIDs = map[int]string{
	MarketSHA:  "000002",
	MarketSHB:  "000003",
	MarketSZA:  "399107",
	MarketSZB:  "399108",
	MarketGEMB: "399006",
}

// Segments returns the base market types included in c.
// An unrecognized code has no segments.
func (c CompositeMarketType) Segments() []int {
	segs := compositeSegments[c]
	out := make([]int, len(segs))
	copy(out, segs)
	return out
}

// Includes reports whether marketType is one of c's segments
func (c CompositeMarketType) Includes(marketType int) bool {
	for _, s := range compositeSegments[c] {
		if s == marketType {
			return true
		}
	}
	return false
}

// Prefix returns the stock id prefix of securities listed on the board
func (b BoardType) Prefix() string {
	return boardPrefixes[b]
}

// IndexID returns the id of the board's benchmark index
func (b BoardType) IndexID() string {
	return boardIndexIDs[b]
}

// MarketIndexID returns the benchmark index id of a base market type
func MarketIndexID(marketType int) (string, bool) {
	id, ok := marketIndexIDs[marketType]
	return id, ok
}
