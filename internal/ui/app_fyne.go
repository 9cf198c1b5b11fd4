//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"shinobiwriter/internal/config"
	"shinobiwriter/internal/crash"
	"shinobiwriter/internal/domain"
	"shinobiwriter/internal/export"
	applog "shinobiwriter/internal/log"
	"shinobiwriter/internal/session"
	"shinobiwriter/internal/storage"
	"shinobiwriter/internal/version"
)

const autosaveEvery = 30 * time.Second

// editor holds the window state. The session is replaced when a project is
// opened, so it is always read through current.
type editor struct {
	cfg  config.AppConfig
	opts session.Options
	l    *slog.Logger
	w    fyne.Window

	mu      sync.Mutex
	s       *session.Session
	history *storage.Index

	snippets *storage.Index

	title, summary, image, body *widget.Entry
	preview                     *widget.RichText
	outline                     *widget.List
	outlineItems                []string
	status                      *widget.Label

	// syncing suppresses OnChanged while entries are filled from the session.
	syncing bool

	exportMu     sync.Mutex
	cancelExport context.CancelFunc
}

// Run starts the desktop editor. Pass an optional project file to open
// immediately.
func Run(project string, cfg config.AppConfig) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	opts, err := session.OptionsFromConfig(cfg)
	if err != nil {
		l.Warn("theme ignored", slog.Any("err", err))
	}
	ed := &editor{cfg: cfg, opts: opts, l: l}
	ed.s = session.New(opts)
	defer crash.RecoverCurrent(ed.current)
	defer ed.closeIndexes()

	fyneApp := app.NewWithID("shinobiwriter")
	ed.w = fyneApp.NewWindow("Shinobi Writer")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1200)
	winH := prefs.IntWithFallback("window.height", 800)
	if winW < 800 {
		winW = 800
	}
	if winH < 600 {
		winH = 600
	}
	ed.w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	ed.build()
	ed.w.SetMainMenu(ed.menu(prefs))
	ed.shortcuts()

	ed.w.SetCloseIntercept(func() {
		sz := ed.w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		if !ed.current().Dirty() {
			ed.w.Close()
			return
		}
		dialog.ShowConfirm("Unsaved changes", "Quit without saving?", func(ok bool) {
			if ok {
				ed.w.Close()
			}
		}, ed.w)
	})

	if project != "" {
		ed.open(project, prefs)
	} else {
		ed.syncFromSession()
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go ed.autosaveLoop(ctx)

	ed.w.ShowAndRun()
	return nil
}

func (ed *editor) current() *session.Session {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.s
}

func (ed *editor) closeIndexes() {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	if ed.history != nil {
		_ = ed.history.Close()
		ed.history = nil
	}
	if ed.snippets != nil {
		_ = ed.snippets.Close()
		ed.snippets = nil
	}
}

func (ed *editor) build() {
	ed.status = widget.NewLabel("Ready")
	ed.title = widget.NewEntry()
	ed.title.SetPlaceHolder("Scenario title")
	ed.summary = widget.NewMultiLineEntry()
	ed.summary.SetPlaceHolder("Summary")
	ed.summary.SetMinRowsVisible(3)
	ed.image = widget.NewEntry()
	ed.image.SetPlaceHolder("Header image path")
	ed.body = widget.NewMultiLineEntry()
	ed.body.Wrapping = fyne.TextWrapWord

	ed.title.OnChanged = ed.edited(func(s *session.Session, v string) { s.SetTitle(v) })
	ed.summary.OnChanged = ed.edited(func(s *session.Session, v string) { s.SetSummary(v) })
	ed.image.OnChanged = ed.edited(func(s *session.Session, v string) { s.SetHeaderImage(v) })
	ed.body.OnChanged = ed.edited(func(s *session.Session, v string) { s.SetBody(v) })

	browse := widget.NewButton("…", func() {
		open := dialog.NewFileOpen(func(ur fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, ed.w)
				return
			}
			if ur == nil {
				return
			}
			p := ur.URI().Path()
			_ = ur.Close()
			ed.image.SetText(p)
		}, ed.w)
		open.SetFilter(fstorage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"}))
		open.Show()
	})

	ed.preview = widget.NewRichText()
	ed.preview.Wrapping = fyne.TextWrapWord
	ed.outline = widget.NewList(
		func() int { return len(ed.outlineItems) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if int(i) < len(ed.outlineItems) {
				o.(*widget.Label).SetText(ed.outlineItems[i])
			}
		},
	)
	ed.outline.OnSelected = func(id widget.ListItemID) {
		entries := ed.current().Outline()
		if int(id) >= len(entries) {
			return
		}
		ed.body.CursorRow = entries[id].Line - 1
		ed.body.CursorColumn = 0
		ed.body.Refresh()
		ed.w.Canvas().Focus(ed.body)
	}

	form := widget.NewForm(
		widget.NewFormItem("Title", ed.title),
		widget.NewFormItem("Image", container.NewBorder(nil, nil, nil, browse, ed.image)),
		widget.NewFormItem("Summary", ed.summary),
	)
	editorPane := container.NewBorder(form, nil, nil, nil, ed.body)
	right := container.NewVSplit(
		container.NewBorder(widget.NewLabel("Outline"), nil, nil, nil, ed.outline),
		container.NewBorder(widget.NewLabel("Preview"), nil, nil, nil, container.NewVScroll(ed.preview)),
	)
	right.SetOffset(0.3)
	split := container.NewHSplit(editorPane, right)
	split.SetOffset(0.55)
	ed.w.SetContent(container.NewBorder(nil, ed.status, nil, nil, split))
}

// edited wraps a session setter for an entry's OnChanged.
func (ed *editor) edited(set func(*session.Session, string)) func(string) {
	return func(v string) {
		if ed.syncing {
			return
		}
		set(ed.current(), v)
		ed.refresh()
	}
}

// refresh re-renders the preview, outline and title from the session.
func (ed *editor) refresh() {
	s := ed.current()
	ed.preview.Segments = previewSegments(s.Preview())
	ed.preview.Refresh()
	ed.outlineItems = outlineLabels(s.Outline())
	ed.outline.Refresh()
	doc := s.Snapshot()
	ed.w.SetTitle(windowTitle(doc.Title, s.Path(), s.Dirty()))
}

// syncFromSession fills the entries from the session document.
func (ed *editor) syncFromSession() {
	doc := ed.current().Snapshot()
	ed.syncing = true
	ed.title.SetText(doc.Title)
	ed.summary.SetText(doc.Summary)
	ed.image.SetText(doc.HeaderImage)
	ed.body.SetText(doc.Body)
	ed.syncing = false
	ed.refresh()
}

func (ed *editor) setStatus(r session.Result) {
	ed.status.SetText(statusText(r))
	if r.Failed() {
		ed.l.Warn("operation failed", slog.String("kind", r.Kind.String()), slog.String("msg", r.Message))
		dialog.ShowError(r.Err(), ed.w)
	}
	for _, w := range r.Warnings {
		ed.l.Warn("export warning", slog.String("msg", w))
	}
}

// focusedField maps the focused entry to a session field; the body is the
// default.
func (ed *editor) focusedField() (session.Field, *widget.Entry) {
	switch ed.w.Canvas().Focused() {
	case ed.title:
		return session.FieldTitle, ed.title
	case ed.summary:
		return session.FieldSummary, ed.summary
	case ed.image:
		return session.FieldImage, ed.image
	}
	return session.FieldBody, ed.body
}

func (ed *editor) undo(redo bool) {
	f, _ := ed.focusedField()
	s := ed.current()
	var r session.Result
	if redo {
		r = s.Redo(f)
	} else {
		r = s.Undo(f)
	}
	ed.syncFromSession()
	ed.setStatus(r)
}

func (ed *editor) shortcuts() {
	mod := fyne.KeyModifierShortcutDefault | fyne.KeyModifierAlt
	ed.w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: mod}, func(fyne.Shortcut) { ed.undo(false) })
	ed.w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: mod}, func(fyne.Shortcut) { ed.undo(true) })
	ed.w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { ed.save(false) })
}

// newSession builds a session for project with the history index kept next
// to it. The caller installs it once it holds a document.
func (ed *editor) newSession(project string) (*session.Session, *storage.Index) {
	opts := ed.opts
	opts.Empty = project != ""
	var ix *storage.Index
	if project != "" {
		abs, _ := filepath.Abs(project)
		var rebuilt bool
		var err error
		ix, rebuilt, err = storage.OpenIndexRecover(context.Background(), filepath.Dir(abs))
		switch {
		case err != nil:
			ed.l.Warn("history unavailable", slog.Any("err", err))
			ix = nil
		case rebuilt:
			ed.l.Warn("history index was damaged and has been rebuilt", slog.String("project", abs))
		}
	}
	opts.Index = ix
	return session.New(opts), ix
}

func (ed *editor) install(s *session.Session, ix *storage.Index) {
	ed.mu.Lock()
	old := ed.history
	ed.s, ed.history = s, ix
	ed.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
}

// open loads path into a fresh session; on failure the current document stays.
func (ed *editor) open(path string, prefs fyne.Preferences) {
	s, ix := ed.newSession(path)
	r := s.Load(path)
	if !r.OK {
		if ix != nil {
			_ = ix.Close()
		}
		ed.setStatus(r)
		return
	}
	ed.install(s, ix)
	addRecentProject(prefs, path)
	ed.syncFromSession()
	ed.setStatus(r)
}

func (ed *editor) save(as bool) {
	s := ed.current()
	if s.Path() != "" && !as {
		ed.setStatus(s.Save(context.Background(), ""))
		ed.refresh()
		return
	}
	save := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, ed.w)
			return
		}
		if uc == nil {
			ed.setStatus(session.Result{Kind: domain.KindCancelledByUser})
			return
		}
		p := uc.URI().Path()
		_ = uc.Close()
		ed.setStatus(s.Save(context.Background(), p))
		addRecentProject(fyne.CurrentApp().Preferences(), p)
		ed.refresh()
	}, ed.w)
	save.SetFileName(export.BaseName(s.Snapshot().Title) + ".json")
	save.SetFilter(fstorage.NewExtensionFileFilter([]string{".json"}))
	save.Show()
}

// export runs in the background; a second export cancels the first.
func (ed *editor) export(ext string) {
	s := ed.current()
	save := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, ed.w)
			return
		}
		if uc == nil {
			ed.setStatus(session.Result{Kind: domain.KindCancelledByUser})
			return
		}
		out := uc.URI().Path()
		_ = uc.Close()
		ctx, cancel := context.WithTimeout(context.Background(), ed.cfg.Export.Timeout())
		ed.exportMu.Lock()
		if ed.cancelExport != nil {
			ed.cancelExport()
		}
		ed.cancelExport = cancel
		ed.exportMu.Unlock()
		ed.status.SetText("Exporting " + filepath.Base(out) + "…")
		go func() {
			defer cancel()
			r := s.Export(ctx, "", out)
			fyne.Do(func() { ed.setStatus(r) })
		}()
	}, ed.w)
	save.SetFileName(export.OutputName(export.BaseName(s.Snapshot().Title), export.FormatForPath("x."+ext)))
	save.SetFilter(fstorage.NewExtensionFileFilter([]string{"." + ext}))
	save.Show()
}

func (ed *editor) stopExport() {
	ed.exportMu.Lock()
	defer ed.exportMu.Unlock()
	if ed.cancelExport != nil {
		ed.cancelExport()
		ed.cancelExport = nil
	}
}

func (ed *editor) batch(preset export.PresetName) {
	s := ed.current()
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, ed.w)
			return
		}
		if uri == nil {
			ed.setStatus(session.Result{Kind: domain.KindCancelledByUser})
			return
		}
		dir := uri.Path()
		ed.status.SetText(fmt.Sprintf("Exporting preset %s…", preset))
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), ed.cfg.Export.Timeout())
			defer cancel()
			r := s.Batch(ctx, preset, nil, dir)
			fyne.Do(func() { ed.setStatus(r) })
		}()
	}, ed.w)
}

func (ed *editor) snippetIndex() (*storage.Index, error) {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	if ed.snippets != nil {
		return ed.snippets, nil
	}
	p, err := config.ConfigPath()
	if err != nil {
		return nil, err
	}
	ix, rebuilt, err := storage.OpenIndexRecover(context.Background(), filepath.Dir(p))
	if err != nil {
		return nil, err
	}
	if rebuilt {
		ed.l.Warn("snippet index rebuilt")
	}
	ed.snippets = ix
	return ix, nil
}

func (ed *editor) insertSnippet() {
	ix, err := ed.snippetIndex()
	if err != nil {
		dialog.ShowError(err, ed.w)
		return
	}
	list, err := ix.ListSnippets(context.Background())
	if err != nil {
		dialog.ShowError(err, ed.w)
		return
	}
	if len(list) == 0 {
		dialog.ShowInformation("Insert Snippet", "No snippets yet. Use Insert > Save Selection as Snippet.", ed.w)
		return
	}
	names := make([]string, len(list))
	for i, sn := range list {
		names[i] = sn.Name
	}
	sel := widget.NewSelect(names, nil)
	sel.SetSelectedIndex(0)
	dialog.NewCustomConfirm("Insert Snippet", "Insert", "Cancel", sel, func(ok bool) {
		i := sel.SelectedIndex()
		if !ok || i < 0 {
			return
		}
		ed.insertText(list[i].Content)
	}, ed.w).Show()
}

// insertText inserts at the body cursor and moves the cursor past the text.
func (ed *editor) insertText(text string) {
	s := ed.current()
	at := cursorOffset(ed.body.Text, ed.body.CursorRow, ed.body.CursorColumn)
	end := s.Insert(at, text)
	ed.syncFromSession()
	ed.body.CursorRow, ed.body.CursorColumn = rowCol(ed.body.Text, end)
	ed.body.Refresh()
	ed.w.Canvas().Focus(ed.body)
}

func (ed *editor) saveSnippet() {
	text := ed.body.SelectedText()
	if strings.TrimSpace(text) == "" {
		dialog.ShowInformation("Save Snippet", "Select some text in the body first.", ed.w)
		return
	}
	name := widget.NewEntry()
	dialog.ShowForm("Save Snippet", "Save", "Cancel", []*widget.FormItem{widget.NewFormItem("Name", name)}, func(ok bool) {
		if !ok {
			return
		}
		ix, err := ed.snippetIndex()
		if err == nil {
			_, err = ix.AddSnippet(context.Background(), name.Text, text)
		}
		if err != nil {
			dialog.ShowError(err, ed.w)
			return
		}
		ed.status.SetText("Saved snippet " + name.Text)
	}, ed.w)
}

// editHandout defines or removes the dictionary text of one handout key.
func (ed *editor) editHandout() {
	s := ed.current()
	key := widget.NewSelectEntry(s.HandoutKeys())
	key.SetPlaceHolder("HO1")
	text := widget.NewMultiLineEntry()
	text.SetMinRowsVisible(5)
	key.OnChanged = func(k string) {
		text.SetText(s.Snapshot().Handouts[k])
	}
	items := []*widget.FormItem{
		widget.NewFormItem("Key", key),
		widget.NewFormItem("Text", text),
	}
	d := dialog.NewForm("Handouts", "Apply", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		if err := s.SetHandout(strings.TrimSpace(key.Text), text.Text); err != nil {
			dialog.ShowError(err, ed.w)
			return
		}
		ed.refresh()
	}, ed.w)
	d.Resize(fyne.NewSize(480, 320))
	d.Show()
}

func (ed *editor) showHistory() {
	s := ed.current()
	ix := s.Index()
	if ix == nil {
		dialog.ShowInformation("History", "Save the project first; history is kept next to the project file.", ed.w)
		return
	}
	snaps, err := ix.ListSnapshots(context.Background(), s.Path(), 50)
	if err != nil {
		dialog.ShowError(err, ed.w)
		return
	}
	if len(snaps) == 0 {
		dialog.ShowInformation("History", "No autosaves yet.", ed.w)
		return
	}
	labels := make([]string, len(snaps))
	for i, sn := range snaps {
		labels[i] = fmt.Sprintf("%s  %s", sn.TS.Local().Format("2006-01-02 15:04:05"), sn.Doc.Title)
	}
	sel := widget.NewSelect(labels, nil)
	sel.SetSelectedIndex(0)
	dialog.NewCustomConfirm("Restore from History", "Restore", "Cancel", sel, func(ok bool) {
		i := sel.SelectedIndex()
		if !ok || i < 0 {
			return
		}
		r := s.Restore(context.Background(), snaps[i].ID)
		ed.syncFromSession()
		ed.setStatus(r)
	}, ed.w).Show()
}

func (ed *editor) autosaveLoop(ctx context.Context) {
	t := time.NewTicker(autosaveEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s := ed.current()
			if !s.Dirty() || s.Path() == "" {
				continue
			}
			r := s.Autosave(ctx)
			if r.Failed() {
				ed.l.Warn("autosave failed", slog.String("msg", r.Message))
				continue
			}
			fyne.Do(func() { ed.status.SetText("Autosaved " + time.Now().Format("15:04:05")) })
		}
	}
}

func (ed *editor) menu(prefs fyne.Preferences) *fyne.MainMenu {
	newItem := fyne.NewMenuItem("New", func() {
		ed.install(ed.newSession(""))
		ed.syncFromSession()
		ed.status.SetText("New scenario")
	})
	openItem := fyne.NewMenuItem("Open…", func() {
		open := dialog.NewFileOpen(func(ur fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, ed.w)
				return
			}
			if ur == nil {
				ed.setStatus(session.Result{Kind: domain.KindCancelledByUser})
				return
			}
			p := ur.URI().Path()
			_ = ur.Close()
			ed.open(p, prefs)
		}, ed.w)
		open.SetFilter(fstorage.NewExtensionFileFilter([]string{".json"}))
		open.Show()
	})
	recentItem := fyne.NewMenuItem("Open Recent", nil)
	recentItem.ChildMenu = fyne.NewMenu("")
	for _, p := range loadRecentProjects(prefs) {
		recentItem.ChildMenu.Items = append(recentItem.ChildMenu.Items, fyne.NewMenuItem(p, func() { ed.open(p, prefs) }))
	}
	if len(recentItem.ChildMenu.Items) == 0 {
		recentItem.Disabled = true
	}
	saveItem := fyne.NewMenuItem("Save", func() { ed.save(false) })
	saveAsItem := fyne.NewMenuItem("Save As…", func() { ed.save(true) })
	historyItem := fyne.NewMenuItem("History…", ed.showHistory)
	fileMenu := fyne.NewMenu("File", newItem, openItem, recentItem, fyne.NewMenuItemSeparator(), saveItem, saveAsItem, historyItem)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo Field", func() { ed.undo(false) }),
		fyne.NewMenuItem("Redo Field", func() { ed.undo(true) }),
	)
	insertMenu := fyne.NewMenu("Insert",
		fyne.NewMenuItem("Heading", func() { ed.insertText("\n# ") }),
		fyne.NewMenuItem("Handout", func() { ed.insertText("\n{{HO1}}\n") }),
		fyne.NewMenuItem("Secret", func() { ed.insertText("\n:::secret  :::\n") }),
		fyne.NewMenuItem("Ruby", func() { ed.insertText("{}()") }),
		fyne.NewMenuItem("Edit Handouts…", ed.editHandout),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Snippet…", ed.insertSnippet),
		fyne.NewMenuItem("Save Selection as Snippet…", ed.saveSnippet),
	)

	exportMenu := fyne.NewMenu("Export")
	for _, f := range []struct{ label, ext string }{
		{"PDF…", "pdf"}, {"PNG…", "png"}, {"SVG…", "svg"}, {"HTML…", "html"}, {"Typst source…", "typ"}, {"Markup…", "md"},
	} {
		exportMenu.Items = append(exportMenu.Items, fyne.NewMenuItem(f.label, func() { ed.export(f.ext) }))
	}
	exportMenu.Items = append(exportMenu.Items, fyne.NewMenuItemSeparator())
	for _, p := range export.Presets() {
		exportMenu.Items = append(exportMenu.Items, fyne.NewMenuItem("Preset "+string(p)+"…", func() { ed.batch(p) }))
	}
	exportMenu.Items = append(exportMenu.Items, fyne.NewMenuItemSeparator(), fyne.NewMenuItem("Cancel Export", ed.stopExport))

	aboutMenu := fyne.NewMenu("About", fyne.NewMenuItem("About Shinobi Writer", func() {
		dialog.ShowInformation("About", "Shinobi Writer "+version.String(), ed.w)
	}))
	return fyne.NewMainMenu(fileMenu, editMenu, insertMenu, exportMenu, aboutMenu)
}
