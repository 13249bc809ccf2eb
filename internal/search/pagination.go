package search

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
	windowSize     = 5
)

func NormalizePerPage(perPage int) int {
	if perPage <= 0 {
		return DefaultPerPage
	}
	if perPage > MaxPerPage {
		return MaxPerPage
	}
	return perPage
}

// Window returns up to five page numbers around current. It widens toward
// whichever edge is pinned so the strip keeps its width near the ends.
func Window(current, total int) []int {
	if total <= 1 {
		return nil
	}
	current = clamp(current, 1, total)
	start := max(1, current-2)
	end := min(total, current+2)
	if end-start < windowSize-1 {
		if start == 1 {
			end = min(total, start+windowSize-1)
		} else if end == total {
			start = max(1, end-windowSize+1)
		}
	}
	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}

type PageLink struct {
	Number  int  `json:"number,omitempty"`
	Current bool `json:"current,omitempty"`
	Gap     bool `json:"gap,omitempty"`
}

// EllipsisWindow shows the first and last pages, the neighbours of current,
// and a gap marker wherever pages are skipped.
func EllipsisWindow(current, total int) []PageLink {
	if total <= 1 {
		return nil
	}
	current = clamp(current, 1, total)
	var links []PageLink
	last := 0
	for i := 1; i <= total; i++ {
		if i != 1 && i != total && (i < current-1 || i > current+1) {
			continue
		}
		if last != 0 && i-last > 1 {
			links = append(links, PageLink{Gap: true})
		}
		links = append(links, PageLink{Number: i, Current: i == current})
		last = i
	}
	return links
}

type Pager struct {
	Current      int        `json:"current"`
	Total        int        `json:"total"`
	Links        []PageLink `json:"links"`
	PrevDisabled bool       `json:"prev_disabled"`
	NextDisabled bool       `json:"next_disabled"`
}

// NewPager builds the controls for a result set. Hidden reports a single
// page, for which nothing is drawn.
func NewPager(current, total int, ellipsis bool) Pager {
	p := Pager{Current: current, Total: total}
	if total <= 1 {
		return p
	}
	if ellipsis {
		p.Links = EllipsisWindow(current, total)
	} else {
		for _, n := range Window(current, total) {
			p.Links = append(p.Links, PageLink{Number: n, Current: n == current})
		}
	}
	p.PrevDisabled = current <= 1
	p.NextDisabled = current >= total
	return p
}

func (p Pager) Hidden() bool { return p.Total <= 1 }

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
