package web

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/romiojoseph/at-protocol/internal/core/blogs"
)

func TestNewTemplates(t *testing.T) {
	templates, err := NewTemplates()
	if err != nil {
		t.Fatalf("NewTemplates() error = %v", err)
	}
	if templates == nil {
		t.Fatal("NewTemplates() returned nil")
	}
}

func TestTemplatesRender_Login(t *testing.T) {
	templates, err := NewTemplates()
	if err != nil {
		t.Fatalf("NewTemplates() error = %v", err)
	}

	w := httptest.NewRecorder()
	err = templates.Render(w, "login.html", LoginPageData{Handle: "alice.test", Error: "Sign in failed."})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	body := w.Body.String()
	if !strings.Contains(body, `value="alice.test"`) {
		t.Error("login page does not preserve the entered handle")
	}
	if !strings.Contains(body, "Sign in failed.") {
		t.Error("login page does not show the error message")
	}
}

func TestTemplatesRender_PostList(t *testing.T) {
	templates, err := NewTemplates()
	if err != nil {
		t.Fatalf("NewTemplates() error = %v", err)
	}

	data := PostListData{
		Handle: "alice.test",
		Records: []postItem{
			{RKey: "my-first-post", Value: blogs.Value{
				Title:            "My First Post",
				ShortDescription: "An introduction",
				Category:         "Tech",
				PublishedAt:      "2024-03-01T10:30:00Z",
				Recommended:      true,
			}},
		},
		Categories: []string{"Recommended", "Tech"},
		View:       blogs.ViewState{SortOrder: blogs.SortNewest},
		SortParam:  "newest",
	}

	w := httptest.NewRecorder()
	if err := templates.Render(w, "posts.html", data); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	body := w.Body.String()
	if !strings.Contains(body, "My First Post") {
		t.Error("list does not contain the post title")
	}
	if !strings.Contains(body, `href="/posts/my-first-post"`) {
		t.Error("list does not link to the post detail page")
	}
	if !strings.Contains(body, "1 Mar 2024, 10:30") {
		t.Error("list does not render the date in the human layout")
	}
	if !strings.Contains(body, "Load more") {
		t.Error("list hides the load-more button while pages remain")
	}
}

func TestTemplatesRender_PostListAllLoaded(t *testing.T) {
	templates, err := NewTemplates()
	if err != nil {
		t.Fatalf("NewTemplates() error = %v", err)
	}

	data := PostListData{
		Handle:    "alice.test",
		View:      blogs.ViewState{AllLoaded: true},
		SortParam: "newest",
	}

	w := httptest.NewRecorder()
	if err := templates.Render(w, "posts.html", data); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	body := w.Body.String()
	if strings.Contains(body, "Load more") {
		t.Error("load-more button shown after everything is loaded")
	}
	if !strings.Contains(body, "No posts match") {
		t.Error("empty list does not show the empty state")
	}
}

func TestTemplatesRender_PostDetail(t *testing.T) {
	templates, err := NewTemplates()
	if err != nil {
		t.Fatalf("NewTemplates() error = %v", err)
	}

	data := PostDetailData{
		Handle: "alice.test",
		Value: blogs.Value{
			Title:             "My First Post",
			AuthorHandle:      "alice.test",
			AuthorDisplayName: "Alice",
			Content:           "Hello from the blog.",
			PublishedAt:       "2024-03-01T10:30:00Z",
			UpdatedAt:         "2024-04-01T09:00:00Z",
			Tags:              []string{"intro", "meta"},
		},
	}

	w := httptest.NewRecorder()
	if err := templates.Render(w, "post.html", data); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	body := w.Body.String()
	if !strings.Contains(body, "Hello from the blog.") {
		t.Error("detail page does not contain the content")
	}
	if !strings.Contains(body, "Alice (@alice.test)") {
		t.Error("detail page does not show the display name with handle")
	}
	if !strings.Contains(body, "Updated 1 Apr 2024, 09:00") {
		t.Error("detail page does not show the update date")
	}
}

func TestTemplatesRender_NotFound(t *testing.T) {
	templates, err := NewTemplates()
	if err != nil {
		t.Fatalf("NewTemplates() error = %v", err)
	}

	w := httptest.NewRecorder()
	if err := templates.Render(w, "nonexistent.html", nil); err == nil {
		t.Fatal("Render() should return error for nonexistent template")
	}
}
