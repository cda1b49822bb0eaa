package mysql

const upsertBookSQL = `
INSERT INTO books
  (id, title, author, description, cover_url)
VALUES
  (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  title       = VALUES(title),
  author      = VALUES(author),
  description = VALUES(description),
  cover_url   = VALUES(cover_url),
  updated_at  = CURRENT_TIMESTAMP
`

const deleteLinksSQL = `DELETE FROM book_links WHERE book_id = ?`

const insertLinksPrefix = "INSERT INTO book_links\n  (book_id, position, name, url)\nVALUES "

const getBookSQL = `
SELECT id, title, author, description, cover_url
FROM books
WHERE id = ?
`

const listBooksSQL = `
SELECT id, title, author, description, cover_url
FROM books
ORDER BY title
`

const listLinksSQL = `
SELECT name, url
FROM book_links
WHERE book_id = ?
ORDER BY position
`
