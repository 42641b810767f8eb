package cleanup

// Windows partitions a page into consecutive groups of at most width items.
// Every item lands in exactly one window and page order is preserved; only
// the last window may be shorter than width.
func Windows(page Page, width int) []Page {
	if width <= 0 {
		width = 1
	}
	windows := make([]Page, 0, (len(page)+width-1)/width)
	for start := 0; start < len(page); start += width {
		end := min(start+width, len(page))
		windows = append(windows, page[start:end:end])
	}
	return windows
}
