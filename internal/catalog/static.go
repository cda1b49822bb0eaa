// Package catalog holds the embedded default catalog: the fixed list of
// titles served when no external catalog database is configured, and the
// seed data for the seeder when one is.
package catalog

import (
	"context"
	"errors"

	"bookhub/internal/domain"
)

const d2dRetailers = "Apple Books, Everand, Tolino, Overdrive, Kobo, Barnes & Noble, and more."

// Books is the fixed catalog. Ordering is presentation order.
var Books = []domain.Book{
	{
		ID:          "rising-disgrace",
		Title:       "Rising with Disgrace",
		Author:      "TURYAHIKAYO EVEREST",
		Description: "A compelling narrative examining resilience and social challenges. Find this title across all major ebook and print-on-demand retailers.",
		CoverURL:    "https://placehold.co/300x450/475569/ffffff?text=Rising+with+Disgrace",
		Links: []domain.BookLink{
			{Name: "Universal D2D Link (Covers " + d2dRetailers + ")", URL: "https://books2read.com/u/bpPM5q"},
		},
	},
	{
		ID:          "truth-justice",
		Title:       "Truth Without Justice",
		Author:      "TURYAHIKAYO EVEREST",
		Description: "An intense exploration of moral dilemmas and the heavy price of truth in a world that denies it. Available everywhere using the link below.",
		CoverURL:    "https://placehold.co/300x450/be123c/ffffff?text=Truth+Without+Justice",
		Links: []domain.BookLink{
			{Name: "Universal D2D Link (Covers " + d2dRetailers + ")", URL: "https://books2read.com/u/3GQ7YO"},
		},
	},
	{
		ID:          "lost-teenager",
		Title:       "The Lost Teenager: Stories of Mothers, Choices and Teenage Struggles",
		Author:      "TURYAHIKAYO EVEREST",
		Description: "A collection of poignant stories focusing on the challenges faced by mothers and teenagers navigating difficult life choices.",
		CoverURL:    "https://placehold.co/300x450/065f46/ffffff?text=The+Lost+Teenager",
		Links: []domain.BookLink{
			{Name: "Universal D2D Link (Covers " + d2dRetailers + ")", URL: "https://books2read.com/u/4ADpZJ"},
		},
	},
	{
		ID:          "why-tongue-slips",
		Title:       "Why the Tongue Slips: How to Catch It",
		Author:      "TURYAHIKAYO EVEREST",
		Description: "A practical guide to understanding and controlling verbal missteps, improving communication and social interactions.",
		CoverURL:    "https://placehold.co/300x450/5b21b6/ffffff?text=Why+the+Tongue+Slips",
		Links: []domain.BookLink{
			{Name: "Universal D2D Link (Covers " + d2dRetailers + ")", URL: "https://books2read.com/u/mqLMd1"},
		},
	},
	{
		ID:          "por-que-se-sale-la-lengua",
		Title:       "POR QUÉ SE SALE LA LENGUA: Cómo detectarlo",
		Author:      "TURYAHIKAYO EVEREST",
		Description: "The Spanish edition of the popular guide on verbal awareness and control. Available now through all your favorite retailers.",
		CoverURL:    "https://placehold.co/300x450/2563eb/ffffff?text=Por+que+Se+Sale",
		Links: []domain.BookLink{
			{Name: "Universal D2D Link (Covers " + d2dRetailers + ")", URL: "https://books2read.com/u/3RvYXY"},
		},
	},
}

// Static serves the embedded catalog through the repository port. It is
// read-only; the write paths exist only for the database repo.
type Static struct{}

var errReadOnly = errors.New("embedded catalog is read-only")

func (Static) UpsertBook(context.Context, domain.Book) error { return errReadOnly }
func (Static) UpsertLinks(context.Context, string, []domain.BookLink) error {
	return errReadOnly
}

func (Static) GetBook(_ context.Context, id string) (domain.Book, error) {
	for _, b := range Books {
		if b.ID == id {
			return b, nil
		}
	}
	return domain.Book{}, domain.ErrNotFound
}

func (Static) ListBooks(context.Context) ([]domain.Book, error) {
	out := make([]domain.Book, len(Books))
	copy(out, Books)
	return out, nil
}
