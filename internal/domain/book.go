package domain

// Book is a catalog title. The catalog is read-only at serving time; only
// the seeder writes it.
type Book struct {
	ID          string
	Title       string
	Author      string
	Description string
	CoverURL    string
	Links       []BookLink
}

// BookLink is an outbound purchase link (universal retailer links, one or
// more per title).
type BookLink struct {
	Name string
	URL  string
}
