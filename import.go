package quill

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Draft is a post read from a Markdown file with YAML front matter:
//
//	---
//	title: Hello
//	category: Go
//	tags: [go, web]
//	---
//	Body in Markdown.
type Draft struct {
	Title    string   `yaml:"title"`
	Slug     string   `yaml:"slug"`
	Category string   `yaml:"category"`
	Tags     []string `yaml:"tags"`
	Author   string   `yaml:"author"`
	Date     string   `yaml:"date"`
	Excerpt  string   `yaml:"excerpt"`
	Body     string   `yaml:"-"`
}

var dateLayouts = []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"}

// ParseDraft reads a post source file.
func ParseDraft(r io.Reader) (Draft, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Draft{}, err
	}
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(data, []byte("---\n")) {
		return Draft{}, errors.New("missing front matter: file must start with ---")
	}
	rest := data[len("---\n"):]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return Draft{}, errors.New("unterminated front matter")
	}
	var d Draft
	if err := yaml.Unmarshal(rest[:end], &d); err != nil {
		return Draft{}, fmt.Errorf("front matter: %w", err)
	}
	body := rest[end+len("\n---"):]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}
	d.Body = strings.TrimSpace(string(body))
	d.Tags = FilterEmpty(d.Tags)
	if strings.TrimSpace(d.Title) == "" {
		return Draft{}, errors.New("front matter: title is required")
	}
	if strings.TrimSpace(d.Category) == "" {
		return Draft{}, errors.New("front matter: category is required")
	}
	return d, nil
}

// CreatedAt parses the draft date in UTC; the zero time means "now".
func (d Draft) CreatedAt() (time.Time, error) {
	if strings.TrimSpace(d.Date) == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, strings.TrimSpace(d.Date), time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or YYYY-MM-DD HH:MM", d.Date)
}

// Publish saves d, updating the existing post with the same slug in place.
// Views and, when d has no date, the creation time of an existing post are kept.
func (s *Store) Publish(d Draft) (Post, error) {
	created, err := d.CreatedAt()
	if err != nil {
		return Post{}, err
	}
	p := Post{
		Slug:      strings.TrimSpace(d.Slug),
		Title:     d.Title,
		Body:      d.Body,
		Excerpt:   d.Excerpt,
		Author:    d.Author,
		Category:  Category{Name: d.Category},
		CreatedAt: created,
	}
	for _, name := range d.Tags {
		p.Tags = append(p.Tags, Tag{Name: name})
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	existing, err := s.GetPost(p.Slug)
	switch {
	case err == nil:
		p.ID = existing.ID
		if p.CreatedAt.IsZero() {
			p.CreatedAt = existing.CreatedAt
		}
	case !errors.Is(err, ErrNotFound):
		return Post{}, err
	}
	if err := s.SavePost(&p); err != nil {
		return Post{}, err
	}
	return s.GetPostByID(p.ID)
}
