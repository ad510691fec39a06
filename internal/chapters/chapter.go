package chapters

import "sort"

// Chapter is one numbered installment of a series as discovered on the
// listing page. Number is the ordinal used for progress tracking; gaps in
// the sequence are possible and tolerated.
type Chapter struct {
	Number int
	Title  string
	URL    string
}

// SortAscending orders chapters by number, lowest first. Processing is
// strictly sequential in chapter-number order.
func SortAscending(chs []Chapter) {
	sort.Slice(chs, func(i, j int) bool { return chs[i].Number < chs[j].Number })
}
