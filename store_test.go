package quill

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "blog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// savePost stores a post in category cat created at the given day.
func savePost(t *testing.T, s *Store, title, cat, day string, tags ...string) Post {
	t.Helper()
	created, err := time.Parse("2006-01-02", day)
	require.NoError(t, err)
	p := Post{Title: title, Body: "Body of **" + title + "**.", Category: Category{Name: cat}, CreatedAt: created}
	for _, name := range tags {
		p.Tags = append(p.Tags, Tag{Name: name})
	}
	require.NoError(t, s.SavePost(&p))
	return p
}

func TestNewStoreCreatesDataDir(t *testing.T) {
	s := setupTestStore(t)
	require.NotNil(t, s.db)
}

func TestSaveAndGetPost(t *testing.T) {
	s := setupTestStore(t)
	saved := savePost(t, s, "Hello, Wörld", "Go", "2024-01-15", "web", "go")

	assert.Equal(t, "hello-world", saved.Slug)
	assert.NotZero(t, saved.ID)
	assert.NotZero(t, saved.Category.ID)

	got, err := s.GetPost("hello-world")
	require.NoError(t, err)
	assert.Equal(t, "Hello, Wörld", got.Title)
	assert.Equal(t, "Go", got.Category.Name)
	assert.Equal(t, "Body of Hello, Wörld.", got.Excerpt)
	assert.Equal(t, []string{"go", "web"}, TagNames(got.Tags))
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), got.CreatedAt)
	assert.Equal(t, "/posts/hello-world/", got.Link())
}

func TestGetPostNotFound(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.GetPost("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSavePostValidation(t *testing.T) {
	s := setupTestStore(t)

	err := s.SavePost(&Post{Title: "  ", Category: Category{Name: "Go"}})
	assert.EqualError(t, err, "post title is required")

	err = s.SavePost(&Post{Title: "!!!", Category: Category{Name: "Go"}})
	assert.EqualError(t, err, "post slug is required")

	err = s.SavePost(&Post{Title: "No category"})
	assert.ErrorContains(t, err, "category")
}

func TestSavePostFailureLeavesPostRetryable(t *testing.T) {
	s := setupTestStore(t)
	p := Post{
		Title:    "Retry",
		Body:     "body",
		Category: Category{Name: "Fresh"},
		Tags:     []Tag{{Name: "ok"}, {Name: strings.Repeat("x", maxNameLen+1)}},
	}

	require.Error(t, s.SavePost(&p))
	assert.Zero(t, p.ID)
	assert.Zero(t, p.Category.ID, "category id from the rolled back insert")
	assert.Zero(t, p.Tags[0].ID, "tag id from the rolled back insert")

	p.Tags = p.Tags[:1]
	require.NoError(t, s.SavePost(&p))
	assert.NotZero(t, p.Category.ID)
	assert.NotZero(t, p.Tags[0].ID)

	got, err := s.GetPost(p.Slug)
	require.NoError(t, err)
	assert.Equal(t, "Fresh", got.Category.Name)
	assert.Equal(t, []string{"ok"}, TagNames(got.Tags))
}

func TestSavePostUpdateKeepsViewsAndReplacesTags(t *testing.T) {
	s := setupTestStore(t)
	p := savePost(t, s, "Post", "Go", "2024-01-15", "a", "b")

	views, err := s.IncreaseViews(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, views)

	p.Title = "Post, revised"
	p.Tags = []Tag{{Name: "c"}}
	require.NoError(t, s.SavePost(&p))

	got, err := s.GetPostByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Post, revised", got.Title)
	assert.Equal(t, 1, got.Views)
	assert.Equal(t, []string{"c"}, TagNames(got.Tags))

	tags, err := s.Tags()
	require.NoError(t, err)
	require.Len(t, tags, 1, "tags without posts are not listed")
	assert.Equal(t, "c", tags[0].Name)
}

func TestListPostsFiltersAndOrder(t *testing.T) {
	s := setupTestStore(t)
	savePost(t, s, "Jan", "Go", "2024-01-10", "web")
	savePost(t, s, "Feb", "Life", "2024-02-03")
	savePost(t, s, "Feb late", "Go", "2024-02-20", "web")

	all, err := s.ListPosts(PostFilter{}, -1, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Feb late", all[0].Title, "newest first")
	assert.Equal(t, "Jan", all[2].Title)

	page, err := s.ListPosts(PostFilter{}, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Jan", page[0].Title)

	goCat := all[0].Category
	n, err := s.CountPosts(PostFilter{CategoryID: goCat.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	web := all[0].Tags[0]
	n, err = s.CountPosts(PostFilter{TagID: web.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	feb, err := s.ListPosts(PostFilter{Year: 2024, Month: 2}, -1, 0)
	require.NoError(t, err)
	assert.Len(t, feb, 2)

	n, err = s.CountPosts(PostFilter{Year: 2023})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestArchivesAndCategories(t *testing.T) {
	s := setupTestStore(t)
	savePost(t, s, "One", "Go", "2024-01-10")
	savePost(t, s, "Two", "Go", "2024-03-01")
	savePost(t, s, "Three", "Art", "2024-03-09")
	_, err := s.EnsureCategory("Empty")
	require.NoError(t, err)

	months, err := s.Archives()
	require.NoError(t, err)
	assert.Equal(t, []ArchiveMonth{
		{Year: 2024, Month: time.March, Count: 2},
		{Year: 2024, Month: time.January, Count: 1},
	}, months)
	assert.Equal(t, "/archives/2024/3/", months[0].Link())

	cats, err := s.Categories()
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Art", cats[0].Name)
	assert.Equal(t, 1, cats[0].Count)
	assert.Equal(t, "Go", cats[1].Name)
	assert.Equal(t, 2, cats[1].Count)
}

func TestEnsureCategoryIsIdempotent(t *testing.T) {
	s := setupTestStore(t)
	a, err := s.EnsureCategory(" Go ")
	require.NoError(t, err)
	b, err := s.EnsureCategory("Go")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)

	got, err := s.GetCategory(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go", got.Name)

	_, err = s.EnsureTag("")
	assert.Error(t, err)
}

func TestDeletePostCascades(t *testing.T) {
	s := setupTestStore(t)
	p := savePost(t, s, "Doomed", "Go", "2024-01-10", "x")
	c := Comment{PostID: p.ID, Name: "Ann", Email: "ann@example.com", Text: "hi"}
	require.NoError(t, s.AddComment(&c))

	require.NoError(t, s.DeletePost("doomed"))
	assert.ErrorIs(t, s.DeletePost("doomed"), ErrNotFound)

	comments, err := s.ListComments(p.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestCommentsOldestFirst(t *testing.T) {
	s := setupTestStore(t)
	p := savePost(t, s, "Talk", "Go", "2024-01-10")

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	first := Comment{PostID: p.ID, Name: "Ann", Email: "ann@example.com", Text: "first"}
	require.NoError(t, s.AddComment(&first))
	clock = clock.Add(time.Minute)
	second := Comment{PostID: p.ID, Name: "Bob", Email: "bob@example.com", Text: "second"}
	require.NoError(t, s.AddComment(&second))

	assert.Len(t, first.ID, 26, "ULID")
	comments, err := s.ListComments(p.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Text)
	assert.Equal(t, "second", comments[1].Text)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), comments[0].CreatedAt)
}
