package repositories

// Page selects a 1-based page of Size rows.
type Page struct {
	Number int
	Size   int
}

// Offset is the number of rows skipped before the page.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}
