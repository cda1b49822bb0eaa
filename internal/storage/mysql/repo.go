package mysql

import (
	"context"
	"database/sql"
	"strings"

	"bookhub/internal/domain"
)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) UpsertBook(ctx context.Context, b domain.Book) error {
	_, err := r.db.ExecContext(ctx, upsertBookSQL,
		b.ID,
		b.Title,
		b.Author,
		b.Description,
		b.CoverURL,
	)
	return err
}

// UpsertLinks replaces the link list for a book. Links have no identity of
// their own, so replace-wholesale keeps them in step with the catalog seed.
func (r *Repo) UpsertLinks(ctx context.Context, bookID string, links []domain.BookLink) error {
	if _, err := r.db.ExecContext(ctx, deleteLinksSQL, bookID); err != nil {
		return err
	}
	if len(links) == 0 {
		return nil
	}
	values := make([]string, 0, len(links))
	args := make([]any, 0, len(links)*4)
	for i, l := range links {
		values = append(values, "(?,?,?,?)")
		args = append(args, bookID, i, l.Name, l.URL)
	}
	sqlStr := insertLinksPrefix + strings.Join(values, ",")
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *Repo) GetBook(ctx context.Context, id string) (domain.Book, error) {
	row := r.db.QueryRowContext(ctx, getBookSQL, id)

	var b domain.Book
	var author, desc, cover sql.NullString
	if err := row.Scan(&b.ID, &b.Title, &author, &desc, &cover); err != nil {
		if err == sql.ErrNoRows {
			return domain.Book{}, domain.ErrNotFound
		}
		return domain.Book{}, err
	}
	b.Author = author.String
	b.Description = desc.String
	b.CoverURL = cover.String

	links, err := r.listLinks(ctx, id)
	if err != nil {
		return domain.Book{}, err
	}
	b.Links = links
	return b, nil
}

func (r *Repo) ListBooks(ctx context.Context) ([]domain.Book, error) {
	rows, err := r.db.QueryContext(ctx, listBooksSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Book
	for rows.Next() {
		var b domain.Book
		var author, desc, cover sql.NullString
		if err := rows.Scan(&b.ID, &b.Title, &author, &desc, &cover); err != nil {
			return nil, err
		}
		b.Author = author.String
		b.Description = desc.String
		b.CoverURL = cover.String
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		links, err := r.listLinks(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Links = links
	}
	return out, nil
}

func (r *Repo) listLinks(ctx context.Context, bookID string) ([]domain.BookLink, error) {
	rows, err := r.db.QueryContext(ctx, listLinksSQL, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BookLink
	for rows.Next() {
		var l domain.BookLink
		if err := rows.Scan(&l.Name, &l.URL); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
