package weaver

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/voiceweave/voice-weaver/pkg/util"
	"github.com/voiceweave/voice-weaver/pkg/weaver/render"
)

// Finalizer drains the store and turns conversation buffers into output
// documents plus the cross-conversation index.
type Finalizer struct {
	opts     *Options
	logger   *slog.Logger
	renderer render.Renderer
}

// NewFinalizer creates a finalizer writing through renderer.
func NewFinalizer(opts *Options, handler slog.Handler, renderer render.Renderer) *Finalizer {
	if handler == nil {
		handler = slog.NewTextHandler(io.Discard, nil)
	}
	return &Finalizer{
		opts:     opts,
		logger:   slog.New(handler).With(slog.String("component", "finalizer")),
		renderer: renderer,
	}
}

// Finalize writes every non-empty conversation and the index document.
// Conversations that fail to render are written as placeholder documents
// and recorded as non-fatal errors; only context cancellation aborts the
// pass. Returns the written conversations, the errors encountered, and the
// number of empty buffers purged.
func (f *Finalizer) Finalize(ctx context.Context, store *ConversationStore) ([]ConversationInfo, []ErrorInfo, int, error) {
	records := store.Drain()
	generatedAt := time.Now()
	ext := f.extension()

	infos := make([]ConversationInfo, 0, len(records))
	var errs []ErrorInfo
	purged := 0
	usedNames := map[string]bool{}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return infos, errs, purged, err
		}
		if len(rec.Messages) == 0 {
			f.logger.Debug("Purging conversation with no messages", slog.String("id", rec.ID))
			purged++
			continue
		}

		sort.SliceStable(rec.Messages, func(i, j int) bool {
			return rec.Messages[i].Timestamp.Before(rec.Messages[j].Timestamp)
		})

		fileName := uniqueFileName(util.SanitizeFilename(rec.ID), ext, usedNames)
		info := ConversationInfo{
			ID:              rec.ID,
			OutputFile:      fileName,
			MessageCount:    len(rec.Messages),
			SMSCount:        rec.KindCounts[KindSMS],
			CallCount:       rec.KindCounts[KindCall],
			VoicemailCount:  rec.KindCounts[KindVoicemail],
			AttachmentCount: rec.AttachmentTotal,
			UnresolvedCount: rec.UnresolvedCount,
			FirstActivity:   rec.FirstActivity,
			LastActivity:    rec.LastActivity,
			RenderStatus:    RenderStatusOK,
		}

		doc, fmErr := f.conversationDoc(rec, generatedAt)
		var buf bytes.Buffer
		renderErr := fmErr
		if renderErr == nil {
			renderErr = f.renderer.Conversation(&buf, doc)
		}
		if renderErr != nil {
			wrapped := fmt.Errorf("%w: %s: %w", ErrRender, rec.ID, renderErr)
			f.logger.Warn("Conversation failed to render, writing placeholder",
				slog.String("id", rec.ID),
				slog.String("error", renderErr.Error()))
			errs = append(errs, ErrorInfo{Path: fileName, Error: wrapped.Error(), IsFatal: false})
			buf.Reset()
			buf.WriteString(f.placeholder(rec.ID, renderErr))
			info.RenderStatus = RenderStatusPlaceholder
		}

		outPath := filepath.Join(f.opts.OutputPath, fileName)
		if err := util.AtomicWriteFile(outPath, buf.Bytes(), 0o644); err != nil {
			wrapped := fmt.Errorf("%w: %s: %w", ErrWriteFailed, fileName, err)
			f.logger.Error("Failed to write conversation document",
				slog.String("id", rec.ID),
				slog.String("error", err.Error()))
			errs = append(errs, ErrorInfo{Path: fileName, Error: wrapped.Error(), IsFatal: false})
			continue
		}
		infos = append(infos, info)
	}

	if err := f.writeIndex(infos, generatedAt, ext); err != nil {
		errs = append(errs, ErrorInfo{Path: IndexFileBase + ext, Error: err.Error(), IsFatal: false})
	}
	return infos, errs, purged, nil
}

func (f *Finalizer) extension() string {
	if f.opts.DocumentFormat == DocumentFormatMarkdown {
		return ".md"
	}
	return ".html"
}

// uniqueFileName disambiguates identifiers that sanitize to the same base
// name by appending a counter.
func uniqueFileName(base, ext string, used map[string]bool) string {
	name := base + ext
	for n := 2; used[name]; n++ {
		name = fmt.Sprintf("%s-%d%s", base, n, ext)
	}
	used[name] = true
	return name
}

func (f *Finalizer) conversationDoc(rec *ConversationRecord, generatedAt time.Time) (*render.ConversationDoc, error) {
	doc := &render.ConversationDoc{
		ID:              rec.ID,
		Title:           rec.ID,
		GeneratedAt:     generatedAt,
		ToolVersion:     f.opts.AppVersion,
		MessageCount:    len(rec.Messages),
		SMSCount:        rec.KindCounts[KindSMS],
		CallCount:       rec.KindCounts[KindCall],
		VoicemailCount:  rec.KindCounts[KindVoicemail],
		AttachmentCount: rec.AttachmentTotal,
		UnresolvedCount: rec.UnresolvedCount,
		FirstActivity:   rec.FirstActivity,
		LastActivity:    rec.LastActivity,
	}
	for _, msg := range rec.Messages {
		view := render.MessageView{
			Timestamp: msg.Timestamp,
			Sender:    msg.Sender,
			Self:      msg.Self,
			Kind:      string(msg.Kind),
			Text:      msg.Text,
		}
		for _, att := range msg.Attachments {
			view.Attachments = append(view.Attachments, f.attachmentView(att))
		}
		doc.Messages = append(doc.Messages, view)
	}

	if f.opts.DocumentFormat == DocumentFormatMarkdown && f.opts.FrontMatter.Enabled {
		fields := map[string]interface{}{
			"title":    rec.ID,
			"messages": len(rec.Messages),
			"from":     rec.FirstActivity.Format(time.RFC3339),
			"to":       rec.LastActivity.Format(time.RFC3339),
		}
		for k, v := range f.opts.FrontMatter.Static {
			fields[k] = v
		}
		format := f.opts.FrontMatter.Format
		if format == "" {
			format = DefaultFrontMatterFormat
		}
		fm, err := render.FrontMatter(format, fields)
		if err != nil {
			return nil, err
		}
		doc.FrontMatter = fm
	}
	return doc, nil
}

func (f *Finalizer) attachmentView(att Attachment) render.AttachmentView {
	view := render.AttachmentView{
		Label:    att.Filename,
		Kind:     att.Kind,
		Resolved: att.Resolved,
	}
	if !att.Resolved {
		view.Label = att.Token
		return view
	}
	if f.opts.CopyAttachments {
		view.Href = path.Join(AttachmentsDirName, att.Filename)
	} else {
		view.Href = att.SourcePath
	}
	return view
}

// placeholder is the document written when rendering fails, so the
// conversation still has a file a reader can find.
func (f *Finalizer) placeholder(id string, renderErr error) string {
	if f.opts.DocumentFormat == DocumentFormatMarkdown {
		return fmt.Sprintf("# %s\n\nThis conversation could not be rendered.\n\nError: %s\n", id, renderErr)
	}
	escapedID := html.EscapeString(id)
	return fmt.Sprintf("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>%[1]s</title></head>\n"+
		"<body><h1>%[1]s</h1><p>This conversation could not be rendered.</p><pre>%[2]s</pre></body></html>\n",
		escapedID, html.EscapeString(renderErr.Error()))
}

func (f *Finalizer) writeIndex(infos []ConversationInfo, generatedAt time.Time, ext string) error {
	doc := &render.IndexDoc{
		GeneratedAt:       generatedAt,
		ToolVersion:       f.opts.AppVersion,
		ConversationCount: len(infos),
	}
	entries := make([]render.IndexEntry, 0, len(infos))
	for _, info := range infos {
		doc.MessageCount += info.MessageCount
		doc.AttachmentCount += info.AttachmentCount
		doc.UnresolvedCount += info.UnresolvedCount
		entries = append(entries, render.IndexEntry{
			ID:              info.ID,
			File:            info.OutputFile,
			MessageCount:    info.MessageCount,
			SMSCount:        info.SMSCount,
			CallCount:       info.CallCount,
			VoicemailCount:  info.VoicemailCount,
			AttachmentCount: info.AttachmentCount,
			UnresolvedCount: info.UnresolvedCount,
			LastActivity:    info.LastActivity,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].LastActivity.Equal(entries[j].LastActivity) {
			return entries[i].LastActivity.After(entries[j].LastActivity)
		}
		return entries[i].ID < entries[j].ID
	})
	doc.Conversations = entries

	var buf bytes.Buffer
	if err := f.renderer.Index(&buf, doc); err != nil {
		return fmt.Errorf("%w: index: %w", ErrRender, err)
	}
	outPath := filepath.Join(f.opts.OutputPath, IndexFileBase+ext)
	if err := util.AtomicWriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: index: %w", ErrWriteFailed, err)
	}
	f.logger.Info("Index written", slog.Int("conversations", len(infos)))
	return nil
}
