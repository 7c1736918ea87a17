package pressroom

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/eringen/pressroom/editor"
	"github.com/eringen/pressroom/media"
	"github.com/eringen/pressroom/settings"
	"github.com/eringen/pressroom/sitemap"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = sql.ErrNoRows
	// ErrSlugTaken is returned when a slug is already used by another record.
	ErrSlugTaken = errors.New("slug is already in use")
)

// Store wraps a SQLite database holding posts, pages, categories, the
// media index and the site settings.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets readers run alongside the writer; busy_timeout makes writers
	// wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
		PRAGMA mmap_size=268435456;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS blogs (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    excerpt TEXT NOT NULL DEFAULT '',
    category_id TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'draft',
    content TEXT NOT NULL,
    featured_image TEXT NOT NULL DEFAULT '',
    og_image TEXT NOT NULL DEFAULT '',
    meta_title TEXT NOT NULL DEFAULT '',
    meta_description TEXT NOT NULL DEFAULT '',
    meta_keywords TEXT NOT NULL DEFAULT '',
    canonical_url TEXT NOT NULL DEFAULT '',
    robots TEXT NOT NULL DEFAULT 'index, follow',
    is_indexing INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_blogs_status ON blogs(status, created_at);
CREATE TABLE IF NOT EXISTS categories (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    slug TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS pages (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    content TEXT NOT NULL DEFAULT '',
    meta_title TEXT NOT NULL DEFAULT '',
    meta_description TEXT NOT NULL DEFAULT '',
    is_main_page INTEGER NOT NULL DEFAULT 0,
    published INTEGER NOT NULL DEFAULT 1,
    updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS media (
    id TEXT PRIMARY KEY,
    media_id TEXT NOT NULL,
    url TEXT NOT NULL,
    original_name TEXT NOT NULL DEFAULT '',
    width INTEGER NOT NULL DEFAULT 0,
    height INTEGER NOT NULL DEFAULT 0,
    size INTEGER NOT NULL DEFAULT 0,
    in_library INTEGER NOT NULL DEFAULT 0,
    in_use INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS site_settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    data TEXT NOT NULL,
    updated_at DATETIME NOT NULL
);
`)
	return err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func encodeImage(img *editor.Image) (string, error) {
	if img == nil {
		return "", nil
	}
	b, err := json.Marshal(img)
	return string(b), err
}

func decodeImage(raw string) *editor.Image {
	if raw == "" {
		return nil
	}
	var img editor.Image
	if err := json.Unmarshal([]byte(raw), &img); err != nil {
		return nil
	}
	return &img
}

const blogColumns = `id, slug, title, excerpt, category_id, status, content, featured_image, og_image,
	meta_title, meta_description, meta_keywords, canonical_url, robots, is_indexing, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlog(r rowScanner) (BlogPost, error) {
	var (
		p                 BlogPost
		status            string
		featured, ogImage string
		indexing          int
	)
	err := r.Scan(&p.ID, &p.Slug, &p.Title, &p.Excerpt, &p.CategoryID, &status, &p.Content,
		&featured, &ogImage, &p.MetaTitle, &p.MetaDescription, &p.MetaKeywords,
		&p.CanonicalURL, &p.Robots, &indexing, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return BlogPost{}, err
	}
	p.Status = editor.ParseStatus(status)
	p.FeaturedImage = decodeImage(featured)
	p.OGImage = decodeImage(ogImage)
	p.IsIndexing = indexing == 1
	return p, nil
}

// normalizeDraft fills the fields a stored post always carries.
func normalizeDraft(d editor.Draft) (editor.Draft, error) {
	d.Title = strings.TrimSpace(d.Title)
	d.Slug = strings.TrimSpace(d.Slug)
	if d.Slug == "" {
		d.Slug = editor.DeriveSlug(d.Title)
	}
	if d.Slug == "" {
		return d, errors.New("slug is required, add a title or slug")
	}
	if err := editor.ValidateContent(d.Content); err != nil {
		return d, err
	}
	d.Status = editor.ParseStatus(string(d.Status))
	if d.Robots == "" {
		d.Robots = editor.DefaultRobots
	}
	return d, nil
}

// CreateBlog stores a new post under a fresh id.
func (s *Store) CreateBlog(d editor.Draft) (BlogPost, error) {
	d, err := normalizeDraft(d)
	if err != nil {
		return BlogPost{}, err
	}
	now := time.Now().UTC()
	p := BlogPost{Draft: d, CreatedAt: now, UpdatedAt: now}
	p.ID = uuid.NewString()
	featured, err := encodeImage(p.FeaturedImage)
	if err != nil {
		return BlogPost{}, err
	}
	ogImage, err := encodeImage(p.OGImage)
	if err != nil {
		return BlogPost{}, err
	}
	_, err = s.db.Exec(`INSERT INTO blogs (`+blogColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Slug, p.Title, p.Excerpt, p.CategoryID, string(p.Status), p.Content, featured, ogImage,
		p.MetaTitle, p.MetaDescription, p.MetaKeywords, p.CanonicalURL, p.Robots, boolInt(p.IsIndexing),
		p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return BlogPost{}, ErrSlugTaken
	}
	if err != nil {
		return BlogPost{}, fmt.Errorf("insert blog: %w", err)
	}
	return p, nil
}

// UpdateBlog replaces the post with the given id.
func (s *Store) UpdateBlog(id string, d editor.Draft) (BlogPost, error) {
	existing, err := s.GetBlog(id)
	if err != nil {
		return BlogPost{}, err
	}
	d, err = normalizeDraft(d)
	if err != nil {
		return BlogPost{}, err
	}
	p := BlogPost{Draft: d, CreatedAt: existing.CreatedAt, UpdatedAt: time.Now().UTC()}
	p.ID = id
	featured, err := encodeImage(p.FeaturedImage)
	if err != nil {
		return BlogPost{}, err
	}
	ogImage, err := encodeImage(p.OGImage)
	if err != nil {
		return BlogPost{}, err
	}
	_, err = s.db.Exec(`UPDATE blogs SET slug = ?, title = ?, excerpt = ?, category_id = ?, status = ?, content = ?,
		featured_image = ?, og_image = ?, meta_title = ?, meta_description = ?, meta_keywords = ?,
		canonical_url = ?, robots = ?, is_indexing = ?, updated_at = ? WHERE id = ?`,
		p.Slug, p.Title, p.Excerpt, p.CategoryID, string(p.Status), p.Content, featured, ogImage,
		p.MetaTitle, p.MetaDescription, p.MetaKeywords, p.CanonicalURL, p.Robots, boolInt(p.IsIndexing),
		p.UpdatedAt, id)
	if isUniqueViolation(err) {
		return BlogPost{}, ErrSlugTaken
	}
	if err != nil {
		return BlogPost{}, fmt.Errorf("update blog: %w", err)
	}
	return p, nil
}

// GetBlog returns a post by id regardless of status.
func (s *Store) GetBlog(id string) (BlogPost, error) {
	return scanBlog(s.db.QueryRow(`SELECT `+blogColumns+` FROM blogs WHERE id = ?`, id))
}

// GetPublishedBlog returns a published post by slug.
func (s *Store) GetPublishedBlog(slug string) (BlogPost, error) {
	return scanBlog(s.db.QueryRow(`SELECT `+blogColumns+` FROM blogs WHERE slug = ? AND status = 'published'`, slug))
}

// ListBlogs returns posts newest first. publishedOnly hides drafts.
func (s *Store) ListBlogs(publishedOnly bool) ([]BlogPost, error) {
	q := `SELECT ` + blogColumns + ` FROM blogs`
	if publishedOnly {
		q += ` WHERE status = 'published'`
	}
	rows, err := s.db.Query(q + ` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []BlogPost
	for rows.Next() {
		p, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// DeleteBlog removes a post by id.
func (s *Store) DeleteBlog(id string) error {
	res, err := s.db.Exec(`DELETE FROM blogs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCategories returns categories sorted by name.
func (s *Store) ListCategories() ([]Category, error) {
	rows, err := s.db.Query(`SELECT id, name, slug FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cats := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// SaveCategory inserts or updates a category. A missing id or slug is
// generated.
func (s *Store) SaveCategory(c Category) (Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Category{}, errors.New("category name is required")
	}
	if c.Slug == "" {
		c.Slug = editor.DeriveSlug(c.Name)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`INSERT INTO categories (id, name, slug) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, slug = excluded.slug`, c.ID, c.Name, c.Slug)
	if isUniqueViolation(err) {
		return Category{}, ErrSlugTaken
	}
	return c, err
}

// DeleteCategory removes a category. Posts keep their stale category id.
func (s *Store) DeleteCategory(id string) error {
	_, err := s.db.Exec(`DELETE FROM categories WHERE id = ?`, id)
	return err
}

const pageColumns = `id, slug, title, content, meta_title, meta_description, is_main_page, published, updated_at`

func scanPage(r rowScanner) (Page, error) {
	var (
		p               Page
		main, published int
	)
	if err := r.Scan(&p.ID, &p.Slug, &p.Title, &p.Content, &p.MetaTitle, &p.MetaDescription, &main, &published, &p.UpdatedAt); err != nil {
		return Page{}, err
	}
	p.IsMainPage = main == 1
	p.Published = published == 1
	return p, nil
}

// SavePage inserts or updates a page. Flagging a page as main clears the
// flag on every other page.
func (s *Store) SavePage(p Page) (Page, error) {
	p.Title = strings.TrimSpace(p.Title)
	p.Slug = strings.TrimSpace(p.Slug)
	if p.Slug == "" {
		p.Slug = editor.DeriveSlug(p.Title)
	}
	if p.Slug == "" {
		return Page{}, errors.New("page slug is required")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.UpdatedAt = time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return Page{}, err
	}
	defer tx.Rollback()
	if p.IsMainPage {
		if _, err := tx.Exec(`UPDATE pages SET is_main_page = 0 WHERE id != ?`, p.ID); err != nil {
			return Page{}, err
		}
	}
	_, err = tx.Exec(`INSERT INTO pages (`+pageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET slug = excluded.slug, title = excluded.title, content = excluded.content,
		meta_title = excluded.meta_title, meta_description = excluded.meta_description,
		is_main_page = excluded.is_main_page, published = excluded.published, updated_at = excluded.updated_at`,
		p.ID, p.Slug, p.Title, p.Content, p.MetaTitle, p.MetaDescription, boolInt(p.IsMainPage), boolInt(p.Published), p.UpdatedAt)
	if isUniqueViolation(err) {
		return Page{}, ErrSlugTaken
	}
	if err != nil {
		return Page{}, fmt.Errorf("save page: %w", err)
	}
	return p, tx.Commit()
}

// GetPublishedPage returns a published page by slug.
func (s *Store) GetPublishedPage(slug string) (Page, error) {
	return scanPage(s.db.QueryRow(`SELECT `+pageColumns+` FROM pages WHERE slug = ? AND published = 1`, slug))
}

// MainPage returns the published main page.
func (s *Store) MainPage() (Page, error) {
	return scanPage(s.db.QueryRow(`SELECT ` + pageColumns + ` FROM pages WHERE is_main_page = 1 AND published = 1 LIMIT 1`))
}

// ListPages returns every page sorted by slug.
func (s *Store) ListPages() ([]Page, error) {
	rows, err := s.db.Query(`SELECT ` + pageColumns + ` FROM pages ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pages := []Page{}
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// DeletePage removes a page by id.
func (s *Store) DeletePage(id string) error {
	_, err := s.db.Exec(`DELETE FROM pages WHERE id = ?`, id)
	return err
}

// SitemapData lists the published pages and posts with their update times.
func (s *Store) SitemapData(ctx context.Context) (sitemap.Data, error) {
	var data sitemap.Data
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.db.QueryContext(ctx, `SELECT slug, updated_at, is_main_page FROM pages WHERE published = 1 ORDER BY slug`)
		if err != nil {
			return fmt.Errorf("sitemap pages: %w", err)
		}
		defer rows.Close()
		data.Pages = []sitemap.PageRef{}
		for rows.Next() {
			var (
				ref     sitemap.PageRef
				updated time.Time
				main    int
			)
			if err := rows.Scan(&ref.Slug, &updated, &main); err != nil {
				return err
			}
			ref.UpdatedAt = updated.UTC().Format(time.RFC3339)
			ref.IsMainPage = main == 1
			data.Pages = append(data.Pages, ref)
		}
		return rows.Err()
	})
	g.Go(func() error {
		rows, err := s.db.QueryContext(ctx, `SELECT slug, updated_at FROM blogs WHERE status = 'published' ORDER BY created_at DESC`)
		if err != nil {
			return fmt.Errorf("sitemap blogs: %w", err)
		}
		defer rows.Close()
		data.Blogs = []sitemap.BlogRef{}
		for rows.Next() {
			var (
				ref     sitemap.BlogRef
				updated time.Time
			)
			if err := rows.Scan(&ref.Slug, &updated); err != nil {
				return err
			}
			ref.UpdatedAt = updated.UTC().Format(time.RFC3339)
			data.Blogs = append(data.Blogs, ref)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return sitemap.Data{}, err
	}
	return data, nil
}

// SiteSettings returns the stored settings, or Defaults when none were saved.
func (s *Store) SiteSettings(ctx context.Context) (settings.Settings, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM site_settings WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return settings.Defaults(), nil
	}
	if err != nil {
		return settings.Settings{}, err
	}
	var st settings.Settings
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return settings.Settings{}, fmt.Errorf("decode site settings: %w", err)
	}
	return st, nil
}

// SaveSiteSettings replaces the stored settings.
func (s *Store) SaveSiteSettings(ctx context.Context, st settings.Settings) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO site_settings (id, data, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`, string(b), time.Now().UTC())
	return err
}

// MediaExists reports whether a file name is taken.
func (s *Store) MediaExists(filename string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM media WHERE id = ?`, filename).Scan(&n)
	return n > 0, err
}

// SaveMedia inserts or replaces a media record.
func (s *Store) SaveMedia(f media.File) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO media (id, media_id, url, original_name, width, height, size, in_library, in_use, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.MediaID, f.URL, f.OriginalName, f.Width, f.Height, f.Size, boolInt(f.InLibrary), boolInt(f.InUse), f.CreatedAt)
	return err
}

const mediaColumns = `id, media_id, url, original_name, width, height, size, in_library, in_use, created_at`

func scanMedia(r rowScanner) (media.File, error) {
	var (
		f          media.File
		lib, inUse int
	)
	if err := r.Scan(&f.ID, &f.MediaID, &f.URL, &f.OriginalName, &f.Width, &f.Height, &f.Size, &lib, &inUse, &f.CreatedAt); err != nil {
		return media.File{}, err
	}
	f.Filename = f.ID
	f.InLibrary = lib == 1
	f.InUse = inUse == 1
	return f, nil
}

// GetMedia returns a media record by id.
func (s *Store) GetMedia(id string) (media.File, error) {
	f, err := scanMedia(s.db.QueryRow(`SELECT `+mediaColumns+` FROM media WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return media.File{}, media.ErrNotFound
	}
	return f, err
}

// DeleteMedia removes a media record.
func (s *Store) DeleteMedia(id string) error {
	_, err := s.db.Exec(`DELETE FROM media WHERE id = ?`, id)
	return err
}

// ListMedia returns media records newest first. libraryOnly hides files
// that were not added to the library.
func (s *Store) ListMedia(libraryOnly bool) ([]media.File, error) {
	q := `SELECT ` + mediaColumns + ` FROM media`
	if libraryOnly {
		q += ` WHERE in_library = 1`
	}
	rows, err := s.db.Query(q + ` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []media.File{}
	for rows.Next() {
		f, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

var _ media.Index = (*Store)(nil)
