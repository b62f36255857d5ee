package filter

// SortOptions answers the fixed sort-criteria vocabulary. Codes are the
// provider's sort_by values; labels are what the menu and headings show.
func SortOptions() []Option {
	return []Option{
		{Code: "original_title.asc", Label: "Original Title, Ascending"},
		{Code: "original_title.desc", Label: "Original Title, Descending"},
		{Code: "popularity.asc", Label: "Popularity, Ascending"},
		{Code: "popularity.desc", Label: "Popularity, Descending"},
		{Code: "revenue.asc", Label: "Revenue, Ascending"},
		{Code: "revenue.desc", Label: "Revenue, Descending"},
		{Code: "primary_release_date.asc", Label: "Primary release date, Ascending"},
		{Code: "primary_release_date.desc", Label: "Primary release date, Descending"},
		{Code: "title.asc", Label: "Title, Ascending"},
		{Code: "title.desc", Label: "Title, Descending"},
		{Code: "vote_average.asc", Label: "Vote average, Ascending"},
		{Code: "vote_average.desc", Label: "Vote average, Descending"},
		{Code: "vote_count.desc", Label: "Vote count, Descending"},
	}
}

// SortLabel answers the display label for a sort code, or "".
func SortLabel(code string) string {
	for _, o := range SortOptions() {
		if o.Code == code {
			return o.Label
		}
	}
	return ""
}
