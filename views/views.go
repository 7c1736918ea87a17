// Package views is the stock set of page templates. Templates are
// html/template files embedded in the binary; each page is exposed as a
// templ.Component so it plugs into pressroom.ViewFuncs like any
// hand-written templ view.
package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/a-h/templ"

	"github.com/eringen/pressroom"
	"github.com/eringen/pressroom/analytics"
	"github.com/eringen/pressroom/media"
	"github.com/eringen/pressroom/settings"
)

//go:embed templates/*.html
var templateFS embed.FS

// pages are rendered inside layout.html; partials.html is shared.
var pages = []string{
	"home", "blog", "post", "page",
	"admin_login", "admin_dashboard", "admin_editor", "admin_media",
	"admin_analytics", "admin_settings",
	"not_found", "server_error",
}

// data is the union of everything a page template reads. Each page fills
// only what it uses.
type data struct {
	Shell pressroom.Shell

	Main       *pressroom.Page
	Page       pressroom.Page
	Posts      []pressroom.BlogPost
	Post       pressroom.BlogPost
	Related    []pressroom.BlogPost
	Category   string
	Active     string
	Categories []pressroom.Category

	ShowError bool
	Message   string
	Editor    pressroom.EditorView
	Files     []media.File
	Period    string
	Stats     *analytics.Stats
	Settings  settings.Settings
}

// Renderer holds the parsed page set.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page against the shared layout.
func New() (*Renderer, error) {
	base, err := template.New("base").Funcs(funcMap()).ParseFS(templateFS, "templates/layout.html", "templates/partials.html")
	if err != nil {
		return nil, fmt.Errorf("views: parse layout: %w", err)
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		src, err := fs.ReadFile(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("views: read %s: %w", name, err)
		}
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.New(name).Parse(string(src)); err != nil {
			return nil, fmt.Errorf("views: parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Must is like New but panics on a template error.
func Must() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Renderer) component(name string, d data) templ.Component {
	t := r.pages[name]
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return t.ExecuteTemplate(w, "layout", d)
	})
}

// Funcs returns the ViewFuncs backed by the embedded templates.
func (r *Renderer) Funcs() pressroom.ViewFuncs {
	return pressroom.ViewFuncs{
		Home: func(shell pressroom.Shell, main *pressroom.Page, posts []pressroom.BlogPost) templ.Component {
			return r.component("home", data{Shell: shell, Main: main, Posts: posts})
		},
		BlogIndex: func(shell pressroom.Shell, posts []pressroom.BlogPost, active string, cats []pressroom.Category) templ.Component {
			return r.component("blog", data{Shell: shell, Posts: posts, Active: active, Categories: cats})
		},
		Post: func(shell pressroom.Shell, post pressroom.BlogPost, category string, related []pressroom.BlogPost) templ.Component {
			return r.component("post", data{Shell: shell, Post: post, Category: category, Related: related})
		},
		Page: func(shell pressroom.Shell, page pressroom.Page) templ.Component {
			return r.component("page", data{Shell: shell, Page: page})
		},
		AdminLogin: func(shell pressroom.Shell, showError bool) templ.Component {
			return r.component("admin_login", data{Shell: shell, ShowError: showError})
		},
		AdminDashboard: func(shell pressroom.Shell, posts []pressroom.BlogPost, msg string) templ.Component {
			return r.component("admin_dashboard", data{Shell: shell, Posts: posts, Message: msg})
		},
		AdminEditor: func(shell pressroom.Shell, view pressroom.EditorView) templ.Component {
			return r.component("admin_editor", data{Shell: shell, Editor: view})
		},
		AdminMedia: func(shell pressroom.Shell, files []media.File, msg string) templ.Component {
			return r.component("admin_media", data{Shell: shell, Files: files, Message: msg})
		},
		AdminAnalytics: func(shell pressroom.Shell, period string, stats *analytics.Stats) templ.Component {
			return r.component("admin_analytics", data{Shell: shell, Period: period, Stats: stats})
		},
		AdminSettings: func(shell pressroom.Shell, current settings.Settings, msg string) templ.Component {
			return r.component("admin_settings", data{Shell: shell, Settings: current, Message: msg})
		},
		NotFound: func(shell pressroom.Shell) templ.Component {
			return r.component("not_found", data{Shell: shell})
		},
		ServerError: func(shell pressroom.Shell) templ.Component {
			return r.component("server_error", data{Shell: shell})
		},
	}
}
