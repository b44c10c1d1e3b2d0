package quill

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/eringen/quill/markdown"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = sql.ErrNoRows

const (
	timeLayout     = "2006-01-02 15:04:05"
	maxTitleLen    = 100
	maxNameLen     = 100
	maxExcerptLen  = 200
	autoExcerptLen = 100
)

// Store wraps a SQLite database holding posts, categories, tags and comments.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// Pragmas go in the DSN so every pooled connection gets them; foreign_keys
	// and busy_timeout are per connection in SQLite.
	dsn := "file:" + path +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS categories (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS tags (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    slug TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    body TEXT NOT NULL,
    excerpt TEXT NOT NULL DEFAULT '',
    author TEXT NOT NULL DEFAULT '',
    category_id INTEGER NOT NULL REFERENCES categories(id),
    views INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    modified_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS posts_created_at ON posts(created_at);
CREATE TABLE IF NOT EXISTS post_tags (
    post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
    tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
    PRIMARY KEY (post_id, tag_id)
);
CREATE TABLE IF NOT EXISTS comments (
    id TEXT PRIMARY KEY,
    post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    url TEXT NOT NULL DEFAULT '',
    text TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS comments_post ON comments(post_id, created_at);
`)
	return err
}

// PostFilter narrows post listings. Zero fields do not filter.
type PostFilter struct {
	CategoryID int64
	TagID      int64
	Year       int
	Month      int
}

func (f PostFilter) where() (string, []any) {
	var conds []string
	var args []any
	if f.CategoryID != 0 {
		conds = append(conds, "p.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.TagID != 0 {
		conds = append(conds, "p.id IN (SELECT post_id FROM post_tags WHERE tag_id = ?)")
		args = append(args, f.TagID)
	}
	if f.Year != 0 {
		if f.Month != 0 {
			conds = append(conds, "substr(p.created_at, 1, 7) = ?")
			args = append(args, fmt.Sprintf("%04d-%02d", f.Year, f.Month))
		} else {
			conds = append(conds, "substr(p.created_at, 1, 4) = ?")
			args = append(args, fmt.Sprintf("%04d", f.Year))
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

const postColumns = `p.id, p.slug, p.title, p.body, p.excerpt, p.author, p.views, p.created_at, p.modified_at, c.id, c.name`

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (Post, error) {
	var p Post
	var created, modified string
	if err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.Body, &p.Excerpt, &p.Author, &p.Views,
		&created, &modified, &p.Category.ID, &p.Category.Name); err != nil {
		return Post{}, err
	}
	p.CreatedAt = parseTime(created)
	p.ModifiedAt = parseTime(modified)
	return p, nil
}

func parseTime(s string) time.Time {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// CountPosts returns the number of posts matching f.
func (s *Store) CountPosts(f PostFilter) (int, error) {
	where, args := f.where()
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM posts p`+where, args...).Scan(&n)
	return n, err
}

// ListPosts returns up to limit posts matching f, newest first, skipping
// offset posts. A negative limit returns every match.
func (s *Store) ListPosts(f PostFilter, limit, offset int) ([]Post, error) {
	where, args := f.where()
	args = append(args, limit, offset)
	rows, err := s.db.Query(`SELECT `+postColumns+`
FROM posts p JOIN categories c ON c.id = p.category_id`+where+`
ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.loadTags(posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// RecentPosts returns the n newest posts.
func (s *Store) RecentPosts(n int) ([]Post, error) {
	return s.ListPosts(PostFilter{}, n, 0)
}

func (s *Store) loadTags(posts []Post) error {
	if len(posts) == 0 {
		return nil
	}
	index := make(map[int64]int, len(posts))
	args := make([]any, len(posts))
	for i, p := range posts {
		index[p.ID] = i
		args[i] = p.ID
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(posts)), ",")
	rows, err := s.db.Query(`SELECT pt.post_id, t.id, t.name FROM post_tags pt
JOIN tags t ON t.id = pt.tag_id
WHERE pt.post_id IN (`+placeholders+`) ORDER BY t.name`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var postID int64
		var t Tag
		if err := rows.Scan(&postID, &t.ID, &t.Name); err != nil {
			return err
		}
		i := index[postID]
		posts[i].Tags = append(posts[i].Tags, t)
	}
	return rows.Err()
}

// GetPost returns a single post by slug.
func (s *Store) GetPost(slug string) (Post, error) {
	return s.getPost(`p.slug = ?`, slug)
}

// GetPostByID returns a single post by id.
func (s *Store) GetPostByID(id int64) (Post, error) {
	return s.getPost(`p.id = ?`, id)
}

func (s *Store) getPost(cond string, arg any) (Post, error) {
	row := s.db.QueryRow(`SELECT `+postColumns+`
FROM posts p JOIN categories c ON c.id = p.category_id WHERE `+cond, arg)
	p, err := scanPost(row)
	if err != nil {
		return Post{}, err
	}
	posts := []Post{p}
	if err := s.loadTags(posts); err != nil {
		return Post{}, err
	}
	return posts[0], nil
}

// SavePost inserts p when p.ID is zero and updates it otherwise; views are
// never overwritten. Category and tags are matched by ID, or by name when
// the ID is zero, creating missing names. An empty slug is derived from the
// title and an empty excerpt from the rendered body. p is updated in place.
func (s *Store) SavePost(p *Post) error {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return errors.New("post title is required")
	}
	if utf8.RuneCountInString(p.Title) > maxTitleLen {
		return fmt.Errorf("post title longer than %d characters", maxTitleLen)
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if p.Slug == "" {
		return errors.New("post slug is required")
	}
	if strings.TrimSpace(p.Excerpt) == "" {
		p.Excerpt = markdown.Excerpt(p.Body, autoExcerptLen)
	}
	p.Excerpt = truncateRunes(strings.TrimSpace(p.Excerpt), maxExcerptLen)

	now := s.now().UTC().Truncate(time.Second)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.ModifiedAt = now

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// IDs reach p only after commit, so a failed save can be retried as is.
	catID := p.Category.ID
	if catID == 0 {
		if catID, err = ensureNamed(tx, "categories", p.Category.Name); err != nil {
			return fmt.Errorf("category: %w", err)
		}
	}
	tagIDs := make([]int64, len(p.Tags))
	for i, t := range p.Tags {
		tagIDs[i] = t.ID
		if t.ID == 0 {
			if tagIDs[i], err = ensureNamed(tx, "tags", t.Name); err != nil {
				return fmt.Errorf("tag: %w", err)
			}
		}
	}

	postID := p.ID
	if postID == 0 {
		res, err := tx.Exec(`INSERT INTO posts (slug, title, body, excerpt, author, category_id, created_at, modified_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.Slug, p.Title, p.Body, p.Excerpt, p.Author, catID, formatTime(p.CreatedAt), formatTime(p.ModifiedAt))
		if err != nil {
			return err
		}
		if postID, err = res.LastInsertId(); err != nil {
			return err
		}
	} else {
		res, err := tx.Exec(`UPDATE posts SET slug = ?, title = ?, body = ?, excerpt = ?, author = ?, category_id = ?,
created_at = ?, modified_at = ? WHERE id = ?`,
			p.Slug, p.Title, p.Body, p.Excerpt, p.Author, catID, formatTime(p.CreatedAt), formatTime(p.ModifiedAt), postID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		if _, err := tx.Exec(`DELETE FROM post_tags WHERE post_id = ?`, postID); err != nil {
			return err
		}
	}
	for _, id := range tagIDs {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO post_tags (post_id, tag_id) VALUES (?, ?)`, postID, id); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	p.ID = postID
	p.Category.ID = catID
	for i := range p.Tags {
		p.Tags[i].ID = tagIDs[i]
	}
	return nil
}

// ensureNamed returns the id of the row called name in table, inserting it
// when missing. table is always a package constant.
func ensureNamed(tx *sql.Tx, table, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return 0, fmt.Errorf("name longer than %d characters", maxNameLen)
	}
	if _, err := tx.Exec(`INSERT OR IGNORE INTO `+table+` (name) VALUES (?)`, name); err != nil {
		return 0, err
	}
	var id int64
	err := tx.QueryRow(`SELECT id FROM `+table+` WHERE name = ?`, name).Scan(&id)
	return id, err
}

// DeletePost removes a post, its tag links and its comments.
func (s *Store) DeletePost(slug string) error {
	res, err := s.db.Exec(`DELETE FROM posts WHERE slug = ?`, slug)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncreaseViews adds one to the post's view counter and returns the new count.
func (s *Store) IncreaseViews(id int64) (int, error) {
	var views int
	err := s.db.QueryRow(`UPDATE posts SET views = views + 1 WHERE id = ? RETURNING views`, id).Scan(&views)
	return views, err
}

// Archives returns every month that has posts, newest first.
func (s *Store) Archives() ([]ArchiveMonth, error) {
	rows, err := s.db.Query(`SELECT CAST(substr(created_at, 1, 4) AS INTEGER), CAST(substr(created_at, 6, 2) AS INTEGER), COUNT(*)
FROM posts GROUP BY substr(created_at, 1, 7) ORDER BY substr(created_at, 1, 7) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var months []ArchiveMonth
	for rows.Next() {
		var a ArchiveMonth
		var month int
		if err := rows.Scan(&a.Year, &month, &a.Count); err != nil {
			return nil, err
		}
		a.Month = time.Month(month)
		months = append(months, a)
	}
	return months, rows.Err()
}

// Categories returns categories with at least one post, with post counts.
func (s *Store) Categories() ([]Category, error) {
	rows, err := s.db.Query(`SELECT c.id, c.name, COUNT(p.id) FROM categories c
JOIN posts p ON p.category_id = c.id GROUP BY c.id ORDER BY c.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Tags returns tags attached to at least one post, with post counts.
func (s *Store) Tags() ([]Tag, error) {
	rows, err := s.db.Query(`SELECT t.id, t.name, COUNT(pt.post_id) FROM tags t
JOIN post_tags pt ON pt.tag_id = t.id GROUP BY t.id ORDER BY t.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Count); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetCategory returns a category by id.
func (s *Store) GetCategory(id int64) (Category, error) {
	var c Category
	err := s.db.QueryRow(`SELECT id, name FROM categories WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	return c, err
}

// GetTag returns a tag by id.
func (s *Store) GetTag(id int64) (Tag, error) {
	var t Tag
	err := s.db.QueryRow(`SELECT id, name FROM tags WHERE id = ?`, id).Scan(&t.ID, &t.Name)
	return t, err
}

// EnsureCategory returns the category called name, creating it if needed.
func (s *Store) EnsureCategory(name string) (Category, error) {
	id, err := s.ensure("categories", name)
	return Category{ID: id, Name: strings.TrimSpace(name)}, err
}

// EnsureTag returns the tag called name, creating it if needed.
func (s *Store) EnsureTag(name string) (Tag, error) {
	id, err := s.ensure("tags", name)
	return Tag{ID: id, Name: strings.TrimSpace(name)}, err
}

func (s *Store) ensure(table, name string) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	id, err := ensureNamed(tx, table, name)
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// AddComment stores c on its post, assigning ID and CreatedAt.
func (s *Store) AddComment(c *Comment) error {
	c.ID = ulid.Make().String()
	c.CreatedAt = s.now().UTC().Truncate(time.Second)
	_, err := s.db.Exec(`INSERT INTO comments (id, post_id, name, email, url, text, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.PostID, c.Name, c.Email, c.URL, c.Text, formatTime(c.CreatedAt))
	return err
}

// ListComments returns the comments on a post, oldest first.
func (s *Store) ListComments(postID int64) ([]Comment, error) {
	rows, err := s.db.Query(`SELECT id, post_id, name, email, url, text, created_at FROM comments
WHERE post_id = ? ORDER BY created_at, id`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		var c Comment
		var created string
		if err := rows.Scan(&c.ID, &c.PostID, &c.Name, &c.Email, &c.URL, &c.Text, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
