package pressroom

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/pressroom/contentapi"
	"github.com/eringen/pressroom/editor"
)

// The composer is one multipart form; every action button posts the whole
// form, so field edits are merged before the action runs and switching tabs
// never loses input.
func (a *App) setupEditorRoutes(g *echo.Group) {
	g.GET("/new/", a.handleEditorNew)
	g.GET("/edit/:id/", a.handleEditorEdit)
	g.GET("/:ws/", a.handleEditorShow)
	g.POST("/:ws/", a.handleEditorFields)
	g.POST("/:ws/upload/:slot/", a.handleEditorUpload)
	g.POST("/:ws/library/:slot/", a.handleEditorLibrary)
	g.POST("/:ws/remove/:slot/", a.handleEditorRemove)
	g.POST("/:ws/generate/", a.handleEditorGenerate)
	g.POST("/:ws/apply/", a.handleEditorApply)
	g.POST("/:ws/discard/", a.handleEditorDiscard)
	g.POST("/:ws/seo/suggest/", a.handleEditorSuggest)
	g.POST("/:ws/seo/analyze/", a.handleEditorAnalyze)
	g.POST("/:ws/submit/", a.handleEditorSubmit)
	g.POST("/:ws/close/", a.handleEditorClose)
}

func (a *App) openEditor(c echo.Context, initial *editor.Draft) error {
	cats, err := a.Content.Categories(c.Request().Context())
	if err != nil {
		a.Logger.Warn("error loading categories", zap.Error(err))
	}
	f := editor.NewForm(initial,
		editor.WithCategories(cats),
		editor.WithLogger(a.Logger.Named("editor")))
	ws := a.Editors.Open(f)
	return c.Redirect(http.StatusSeeOther, editorPath(ws, ""))
}

func editorPath(ws, flash string) string {
	p := "/admin/editor/" + ws + "/"
	if flash != "" {
		p += "?flash=" + url.QueryEscape(flash)
	}
	return p
}

func (a *App) handleEditorNew(c echo.Context) error {
	return a.openEditor(c, nil)
}

func (a *App) handleEditorEdit(c echo.Context) error {
	d, err := a.Content.Blog(c.Request().Context(), c.Param("id"))
	if contentapi.IsNotFound(err) {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	return a.openEditor(c, &d)
}

// editorForm resolves the workspace id and merges any posted fields.
func (a *App) editorForm(c echo.Context) (*editor.Form, string, error) {
	ws := c.Param("ws")
	f, ok := a.Editors.Get(ws)
	if !ok {
		return nil, "", echo.NewHTTPError(http.StatusNotFound, "editor session expired")
	}
	if c.Request().Method == http.MethodPost {
		vals, err := c.FormParams()
		if err != nil {
			return nil, "", echo.NewHTTPError(http.StatusBadRequest, "invalid form")
		}
		f.ApplyValues(vals)
	}
	return f, ws, nil
}

func (a *App) handleEditorShow(c echo.Context) error {
	f, ws, err := a.editorForm(c)
	if err != nil {
		return err
	}
	if t := c.QueryParam("tab"); t != "" {
		f.SwitchTab(editor.ParseTab(t))
	}
	view := EditorView{
		Workspace: ws,
		Form:      f.Snapshot(),
		SEO:       f.SEO(),
		Analysis:  f.Analyze(),
		Preview:   f.Preview(),
		Flash:     c.QueryParam("flash"),
	}
	if lib, err := a.Content.MediaLibrary(c.Request().Context()); err == nil {
		view.Library = lib
	} else {
		a.Logger.Warn("error loading media library", zap.Error(err))
	}
	return Render(c, a.Views.AdminEditor(a.shell(c, adminMeta), view))
}

// handleEditorFields saves field edits and optionally switches tab.
func (a *App) handleEditorFields(c echo.Context) error {
	f, ws, err := a.editorForm(c)
	if err != nil {
		return err
	}
	if t := c.FormValue("tab"); t != "" {
		f.SwitchTab(editor.ParseTab(t))
	}
	return c.Redirect(http.StatusSeeOther, editorPath(ws, ""))
}

func (a *App) slotParam(c echo.Context) (editor.Slot, error) {
	slot, ok := editor.ParseSlot(c.Param("slot"))
	if !ok {
		return "", echo.NewHTTPError(http.StatusNotFound, "unknown image slot")
	}
	return slot, nil
}

func (a *App) handleEditorUpload(c echo.Context) error {
	f, ws, err := a.editorForm(c)
	if err != nil {
		return err
	}
	slot, err := a.slotParam(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile(string(slot))
	if err != nil {
		return c.Redirect(http.StatusSeeOther, editorPath(ws, "Choose an image to upload."))
	}
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	_, err = f.Upload(c.Request().Context(), a.Content, slot, editor.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Body:        src,
	})
	switch {
	case errors.Is(err, editor.ErrUploadInFlight):
		return c.Redirect(http.StatusSeeOther, editorPath(ws, "An upload is already in progress."))
	case errors.Is(err, editor.ErrUploadSuperseded):
		return c.Redirect(http.StatusSeeOther, editorPath(ws, "The image was changed while uploading."))
	case err != nil:
		a.Logger.Warn("image upload failed", zap.String("slot", string(slot)), zap.Error(err))
		return c.Redirect(http.StatusSeeOther, editorPath(ws, "Failed to upload image."))
	}
	return c.Redirect(http.StatusSeeOther, editorPath(ws, "Image uploaded."))
}

func (a *App) handleEditorLibrary(c echo.Context) error {
	f, ws, err := a.editorForm(c)
	if err != nil {
		return err
	}
	slot, err := a.slotParam(c)
	if err != nil {
		return err
	}
	id := c.FormValue("libraryId")
	lib, err := a.Content.MediaLibrary(c.Request().Context())
	if err != nil {
		a.Logger.Warn("error loading media library", zap.Error(err))
		return c.Redirect(http.StatusSeeOther, editorPath(ws, "Media library unavailable."))
	}
	var img editor.Image
	for _, m := range lib {
		if m.ID == id {
			img = editor.Image{ID: m.ID, URL: m.URL, MediaID: m.MediaID}
			break
		}
	}
	if img.URL == "" {
		return c.Redirect(http.StatusSeeOther, editorPath(ws, "Choose an image from the library."))
	}
	f.SelectFromLibrary(slot, img)
	return c.Redirect(http.StatusSeeOther, editorPath(ws, ""))
}

func (a *App) handleEditorRemove(c echo.Context) error {
	f, ws, err := a.editorForm(c)
	if err != nil {
		return err
	}
	slot, err := a.slotParam(c)
	if err != nil {
		return err
	}
	f.Remove(c.Request().Context(), a.Content, slot)
	return c.Redirect(http.StatusSeeOther, editorPath(ws, ""))
}

func (a *App) handleEditorGenerate(c echo.Context) error {
	f, ws, err := a.editorForm(c)
	if err != nil {
		return err
	}
	mode := editor.ParseInsertMode(c.FormValue("mode"))
	tone := c.FormValue("tone")
	if tone == "" {
		tone = editor.DefaultTone
	}
	_, err = f.Generate(c.Request().Context(), a.Content, mode, tone, c.FormValue("customPrompt"))
	switch {
	case errors.Is(err, editor.ErrTitleRequired):
		return c.Redirect(http.StatusSeeOther, editorPath(ws, "Add a title before generating content."))
	case errors.Is(err, editor.ErrGenerating):
		return c.Redirect(http.StatusSeeOther, editorPath(ws, "Generation already in progress."))
	case err != nil:
		// The form carries the error in its status banner.
		return c.Redirect(http.StatusSeeOther, editorPath(ws, ""))
	}
	return c.Redirect(http.StatusSeeOther, editorPath(ws, "Content generated. Review it, then apply or discard."))
}

func (a *App) handleEditorApply(c echo.Context) error {
	f, ws, err := a.editorForm(c)
	if err != nil {
		return err
	}
	if !f.ApplyGenerated() {
		return c.Redirect(http.StatusSeeOther, editorPath(ws, "Nothing to apply."))
	}
	f.SwitchTab(editor.TabContent)
	return c.Redirect(http.StatusSeeOther, editorPath(ws, "Generated content applied."))
}

func (a *App) handleEditorDiscard(c echo.Context) error {
	f, ws, err := a.editorForm(c)
	if err != nil {
		return err
	}
	f.DiscardGenerated()
	return c.Redirect(http.StatusSeeOther, editorPath(ws, ""))
}

func (a *App) handleEditorSuggest(c echo.Context) error {
	f, ws, err := a.editorForm(c)
	if err != nil {
		return err
	}
	if !f.ApplySuggestion(c.QueryParam("kind"), c.FormValue("suggestValue")) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown suggestion")
	}
	return c.Redirect(http.StatusSeeOther, editorPath(ws, "SEO suggestion applied."))
}

func (a *App) handleEditorAnalyze(c echo.Context) error {
	f, ws, err := a.editorForm(c)
	if err != nil {
		return err
	}
	f.ApplyAnalysis(f.Analyze())
	return c.Redirect(http.StatusSeeOther, editorPath(ws, "SEO analysis applied to empty fields."))
}

func (a *App) handleEditorSubmit(c echo.Context) error {
	f, ws, err := a.editorForm(c)
	if err != nil {
		return err
	}
	res, err := f.Submit(c.Request().Context(), a.Content)
	switch {
	case errors.Is(err, editor.ErrEmptyContent):
		f.SwitchTab(editor.TabContent)
		return c.Redirect(http.StatusSeeOther, editorPath(ws, ""))
	case errors.Is(err, editor.ErrSubmitting):
		return c.Redirect(http.StatusSeeOther, editorPath(ws, "Already saving."))
	case err != nil:
		a.Logger.Error("error saving blog post", zap.Error(err))
		return c.Redirect(http.StatusSeeOther, editorPath(ws, ""))
	}
	a.Cache.Invalidate()
	return c.Redirect(http.StatusSeeOther, editorPath(ws, res.Message))
}

func (a *App) handleEditorClose(c echo.Context) error {
	a.Editors.Close(c.Param("ws"))
	return c.Redirect(http.StatusSeeOther, "/admin/")
}
