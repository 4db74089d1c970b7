package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"maps"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/nasermirzaei89/marginalia/annotations"
	"github.com/nasermirzaei89/marginalia/auth"
	authcontext "github.com/nasermirzaei89/marginalia/auth/context"
	"github.com/nasermirzaei89/marginalia/contents"
	"github.com/nasermirzaei89/marginalia/discuss"
	"github.com/nasermirzaei89/marginalia/reactions"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	//go:embed templates/*
	templatesFS embed.FS

	//go:embed static/*
	staticFS embed.FS
)

const defaultSiteTitle = "Marginalia"

type Handler struct {
	mux            *http.ServeMux
	handler        http.Handler
	tpl            *template.Template
	static         fs.FS
	authSvc        *auth.Service
	contentsSvc    *contents.Service
	discussSvc     *discuss.Service
	reactionsSvc   *reactions.Service
	annotationsSvc *annotations.Service
	cookieStore    *sessions.CookieStore
	sessionName    string
	markdown       goldmark.Markdown
}

var _ http.Handler = (*Handler)(nil)

func NewHandler(
	authSvc *auth.Service,
	contentsSvc *contents.Service,
	discussSvc *discuss.Service,
	reactionsSvc *reactions.Service,
	annotationsSvc *annotations.Service,
	cookieStore *sessions.CookieStore,
	sessionName string,
	csrfAuthKeys []byte,
	csrfTrustedOrigins []string,
) (*Handler, error) {
	h := &Handler{
		mux:            nil,
		handler:        nil,
		tpl:            nil,
		authSvc:        authSvc,
		contentsSvc:    contentsSvc,
		discussSvc:     discussSvc,
		reactionsSvc:   reactionsSvc,
		annotationsSvc: annotationsSvc,
		cookieStore:    cookieStore,
		sessionName:    sessionName,
		markdown:       nil,
	}

	{
		h.markdown = goldmark.New(
			goldmark.WithExtensions(
				extension.GFM, // tables, strikethrough, task lists
			),
		)
	}

	{
		tpl, err := template.New("").Funcs(h.funcs()).ParseFS(templatesFS, "templates/*.gohtml")
		if err != nil {
			return nil, fmt.Errorf("failed to parse templates: %w", err)
		}

		h.tpl = tpl
	}

	{
		static, err := fs.Sub(staticFS, "static")
		if err != nil {
			return nil, fmt.Errorf("failed to sub static fs: %w", err)
		}

		h.static = static
	}

	{
		h.mux = &http.ServeMux{}
		h.handler = h.mux

		h.registerRoutes()
	}

	{
		h.handler = h.authMiddleware(h.handler)

		{
			csrfMiddleware := csrf.Protect(
				csrfAuthKeys,
				csrf.TrustedOrigins(csrfTrustedOrigins),
			)

			h.handler = csrfMiddleware(h.handler)
		}

		h.handler = recoverMiddleware(h.handler)
	}

	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("/", h.HandleIndex)

	h.mux.Handle("GET /register", h.HandleRegisterPage())
	h.mux.Handle("POST /register", h.HandleRegister())
	h.mux.Handle("GET /login", h.HandleLoginPage())
	h.mux.Handle("POST /login", h.HandleLogin())
	h.mux.Handle("GET /logout", h.HandleLogoutPage())
	h.mux.Handle("POST /logout", h.HandleLogout())

	h.mux.Handle("GET /create-document", h.HandleCreateDocumentPage())
	h.mux.Handle("POST /create-document", h.HandleCreateDocument())
	h.mux.Handle("GET /d/{documentId}", h.HandleViewDocumentPage())
	h.mux.Handle("POST /d/{documentId}/comments", h.HandleStartCommenting())

	h.mux.Handle("GET /c/{commentId}", h.HandleCommentPermalink())
	h.mux.Handle("POST /comments/{commentId}/replies", h.HandleCreateReply())
	h.mux.Handle("POST /comments/{commentId}/edit", h.HandleEditComment())
	h.mux.Handle("POST /comments/{commentId}/delete", h.HandleDeleteComment())
	h.mux.Handle("POST /comments/{commentId}/reply-form", h.HandleOpenReplyForm())
	h.mux.Handle("POST /comments/{commentId}/edit-form", h.HandleOpenEditForm())
	h.mux.Handle("POST /panels/close", h.HandleClosePanels())

	h.mux.Handle("POST /react/{targetType}/{targetId}", h.HandleToggleReaction())
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func(ctx context.Context) {
			if err := recover(); err != nil {
				slog.ErrorContext(
					ctx,
					"recovered from panic",
					"error",
					err,
					"stack",
					string(debug.Stack()),
				)

				http.Error(w, "internal error occurred", http.StatusInternalServerError)
			}
		}(r.Context())

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) funcs() template.FuncMap {
	return template.FuncMap{
		"markdown": func(source string) (template.HTML, error) {
			var buf bytes.Buffer

			err := h.markdown.Convert([]byte(source), &buf)
			if err != nil {
				return "", fmt.Errorf("failed to convert markdown: %w", err)
			}

			return template.HTML(buf.String()), nil //nolint:gosec
		},
		"until": func(n int) []int {
			result := make([]int, n)
			for i := range result {
				result[i] = i
			}

			return result
		},
	}
}

// sanitizeReturnToPath keeps redirects on this site. Only rooted local paths
// pass; everything else falls back to the home page.
func sanitizeReturnToPath(returnTo string) string {
	if returnTo == "" {
		return "/"
	}

	if !strings.HasPrefix(returnTo, "/") {
		return "/"
	}

	if strings.HasPrefix(returnTo, "//") {
		return "/"
	}

	return returnTo
}

func (h *Handler) returnToFromRequest(r *http.Request) string {
	return sanitizeReturnToPath(r.FormValue("return_to"))
}

func (h *Handler) renderTemplate(w http.ResponseWriter, r *http.Request, name string, extraData map[string]any,
) {
	var currentUser *auth.User

	if isAuthenticated(r) {
		var err error

		currentUser, err = h.authSvc.GetCurrentUser(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to get current user", "error", err)
			http.Error(w, "Failed to get current user", http.StatusInternalServerError)

			return
		}
	}

	data := map[string]any{
		"CurrentPath":     r.URL.Path,
		"Lang":            "en",
		"Dir":             "ltr",
		"IsAuthenticated": isAuthenticated(r),
		"CurrentUser":     currentUser,
	}

	maps.Copy(data, extraData)

	data["SiteTitle"] = defaultSiteTitle

	if extraData["SiteTitle"] != nil {
		data["SiteTitle"] = fmt.Sprintf("%s | %s", extraData["SiteTitle"], data["SiteTitle"])
	}

	err := h.tpl.ExecuteTemplate(w, name, data)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to render template", "name", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}
}

func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		h.HandleHomePage(w, r)

		return
	}

	h.HandleStatic(w, r)
}

// HandleStatic serves static files.
func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	http.FileServer(http.FS(h.static)).ServeHTTP(w, r)
}

func (h *Handler) HandleHomePage(w http.ResponseWriter, r *http.Request) {
	documents, err := h.contentsSvc.ListDocuments(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list documents", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	documentsWithAuthors, err := h.listDocumentsWithAuthors(r.Context(), documents)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to preload document authors", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	data := map[string]any{
		"Documents":      documentsWithAuthors,
		csrf.TemplateTag: csrf.TemplateField(r),
	}

	h.renderTemplate(w, r, "home-page.gohtml", data)
}

func (h *Handler) HandleRegisterPage() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			csrf.TemplateTag: csrf.TemplateField(r),
			"SiteTitle":      "Register",
		}

		h.renderTemplate(w, r, "register-page.gohtml", data)
	})

	return h.GuestOnly(hf)
}

func (h *Handler) HandleRegister() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseForm()
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to parse form", "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)

			return
		}

		username := r.FormValue("username")
		password := r.FormValue("password")

		err = h.authSvc.Register(r.Context(), username, password)
		if err != nil {
			var userAlreadyExistsErr *auth.UserAlreadyExistsError
			switch {
			case errors.As(err, &userAlreadyExistsErr):
				http.Error(w, "Username already exists", http.StatusConflict)
			default:
				slog.ErrorContext(r.Context(), "failed to register user", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}

			return
		}

		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})

	return h.GuestOnly(hf)
}

func (h *Handler) HandleLoginPage() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			csrf.TemplateTag: csrf.TemplateField(r),
			"SiteTitle":      "Login",
		}

		h.renderTemplate(w, r, "login-page.gohtml", data)
	})

	return h.GuestOnly(hf)
}

func (h *Handler) HandleLogin() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseForm()
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to parse form", "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)

			return
		}

		username := r.FormValue("username")
		password := r.FormValue("password")

		session, err := h.authSvc.Login(r.Context(), username, password)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidCredentials):
				http.Error(w, "Invalid username or password", http.StatusUnauthorized)
			default:
				slog.ErrorContext(r.Context(), "failed to login user", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}

			return
		}

		err = h.setSessionValue(w, r, sessionIDKey, session.ID)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to set session ID", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	})

	return h.GuestOnly(hf)
}

func (h *Handler) HandleLogoutPage() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			csrf.TemplateTag: csrf.TemplateField(r),
			"SiteTitle":      "Logout",
		}

		h.renderTemplate(w, r, "logout-page.gohtml", data)
	})

	return h.AuthenticatedOnly(hf)
}

func (h *Handler) HandleLogout() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := authcontext.GetSessionID(r.Context())
		if ok {
			err := h.authSvc.Logout(r.Context(), sessionID)
			if err != nil {
				slog.ErrorContext(r.Context(), "error on logout", "sessionId", sessionID, "error", err)
				http.Error(w, "error on logout", http.StatusInternalServerError)

				return
			}
		}

		err := h.deleteSessionValue(w, r, sessionIDKey)
		if err != nil {
			slog.ErrorContext(
				r.Context(),
				"error on deleting session value",
				"key",
				sessionIDKey,
				"error",
				err,
			)
			http.Error(w, "error on deleting session value", http.StatusInternalServerError)

			return
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	})

	return h.AuthenticatedOnly(hf)
}

func (h *Handler) HandleCreateDocumentPage() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			csrf.TemplateTag: csrf.TemplateField(r),
			"SiteTitle":      "Create Document",
			"BlockKinds": []contents.BlockKind{
				contents.BlockKindParagraph,
				contents.BlockKindToggle,
				contents.BlockKindCallout,
			},
		}

		h.renderTemplate(w, r, "create-document-page.gohtml", data)
	})

	return h.AuthenticatedOnly(hf)
}

func (h *Handler) HandleCreateDocument() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseForm()
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to parse form", "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)

			return
		}

		currentUser, err := h.authSvc.GetCurrentUser(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to get current user", "error", err)
			http.Error(w, "Failed to get current user", http.StatusInternalServerError)

			return
		}

		title := r.FormValue("title")

		blocks := make([]contents.CreateBlockRequest, 0, len(r.Form["block_text"]))

		for i, text := range r.Form["block_text"] {
			if strings.TrimSpace(text) == "" {
				continue
			}

			kind := contents.BlockKindParagraph
			if i < len(r.Form["block_kind"]) && r.Form["block_kind"][i] != "" {
				kind = contents.BlockKind(r.Form["block_kind"][i])
			}

			blockTitle := ""
			if i < len(r.Form["block_title"]) {
				blockTitle = r.Form["block_title"][i]
			}

			blocks = append(blocks, contents.CreateBlockRequest{
				Kind:  kind,
				Title: blockTitle,
				Text:  text,
			})
		}

		document, err := h.contentsSvc.CreateDocument(r.Context(), contents.CreateDocumentRequest{
			AuthorID: currentUser.ID,
			Title:    title,
			Blocks:   blocks,
		})
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to create document", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		http.Redirect(w, r, "/d/"+document.ID, http.StatusSeeOther)
	})

	return h.AuthenticatedOnly(hf)
}

func (h *Handler) HandleViewDocumentPage() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		documentID := r.PathValue("documentId")

		// highlights are reconciled on every view, so block edits made since
		// the last visit get their markers re-placed (or dropped) before
		// anything renders.
		err := h.annotationsSvc.SyncDocument(r.Context(), documentID)
		if err != nil {
			var documentNotFoundErr contents.DocumentNotFoundError
			if errors.As(err, &documentNotFoundErr) {
				http.Error(w, "Document not found", http.StatusNotFound)

				return
			}

			slog.ErrorContext(r.Context(), "failed to sync document", "documentId", documentID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		page, err := h.buildDocumentPage(r, documentID)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to build document page", "documentId", documentID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		data := map[string]any{
			"Page":           page,
			"SiteTitle":      page.Document.Title,
			csrf.TemplateTag: csrf.TemplateField(r),
		}

		h.renderTemplate(w, r, "document-page.gohtml", data)
	})

	return hf
}

func (h *Handler) HandleStartCommenting() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		documentID := r.PathValue("documentId")

		err := r.ParseForm()
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to parse form", "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)

			return
		}

		content := r.FormValue("content")
		if strings.TrimSpace(content) == "" {
			http.Error(w, "Comment content is required", http.StatusBadRequest)

			return
		}

		blockID := r.FormValue("block_id")

		startOffset, err := strconv.Atoi(r.FormValue("start_offset"))
		if err != nil {
			http.Error(w, "Invalid start offset", http.StatusBadRequest)

			return
		}

		endOffset, err := strconv.Atoi(r.FormValue("end_offset"))
		if err != nil {
			http.Error(w, "Invalid end offset", http.StatusBadRequest)

			return
		}

		currentUser, err := h.authSvc.GetCurrentUser(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to get current user", "error", err)
			http.Error(w, "Failed to get current user", http.StatusInternalServerError)

			return
		}

		_, err = h.annotationsSvc.StartCommenting(r.Context(), annotations.StartCommentingRequest{
			DocumentID:  documentID,
			BlockID:     blockID,
			StartOffset: startOffset,
			EndOffset:   endOffset,
			AuthorID:    currentUser.ID,
			Content:     content,
		})
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to start commenting", "documentId", documentID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		http.Redirect(w, r, "/d/"+documentID, http.StatusSeeOther)
	})

	return h.AuthenticatedOnly(hf)
}

// HandleCommentPermalink resolves a copied comment link to the page and
// fragment that holds it.
func (h *Handler) HandleCommentPermalink() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		commentID := r.PathValue("commentId")

		documentID, err := h.annotationsSvc.DocumentOf(r.Context(), commentID)
		if err != nil {
			var commentNotFoundErr discuss.CommentNotFoundError
			if errors.As(err, &commentNotFoundErr) {
				http.Error(w, "Comment not found", http.StatusNotFound)

				return
			}

			slog.ErrorContext(r.Context(), "failed to resolve comment", "commentId", commentID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		http.Redirect(w, r, "/d/"+documentID+"#comment-"+commentID, http.StatusSeeOther)
	})
}

func (h *Handler) HandleCreateReply() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		commentID := r.PathValue("commentId")

		err := r.ParseForm()
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to parse form", "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)

			return
		}

		content := r.FormValue("content")
		if strings.TrimSpace(content) == "" {
			http.Error(w, "Reply content is required", http.StatusBadRequest)

			return
		}

		replyTo := r.FormValue("reply_to")

		currentUser, err := h.authSvc.GetCurrentUser(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to get current user", "error", err)
			http.Error(w, "Failed to get current user", http.StatusInternalServerError)

			return
		}

		_, err = h.discussSvc.CreateReply(r.Context(), discuss.CreateReplyRequest{
			CommentID: commentID,
			AuthorID:  currentUser.ID,
			Content:   content,
			ReplyTo:   replyTo,
		})
		if err != nil {
			var commentNotFoundErr discuss.CommentNotFoundError
			if errors.As(err, &commentNotFoundErr) {
				http.Error(w, "Comment not found", http.StatusNotFound)

				return
			}

			slog.ErrorContext(r.Context(), "failed to create reply", "commentId", commentID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		err = h.closePanels(w, r)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to close panels", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		h.redirectToComment(w, r, commentID)
	})

	return h.AuthenticatedOnly(hf)
}

func (h *Handler) HandleEditComment() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		commentID := r.PathValue("commentId")

		err := r.ParseForm()
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to parse form", "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)

			return
		}

		content := r.FormValue("content")
		if strings.TrimSpace(content) == "" {
			http.Error(w, "Comment content is required", http.StatusBadRequest)

			return
		}

		comment, ok := h.requireCommentAuthor(w, r, commentID)
		if !ok {
			return
		}

		_, err = h.discussSvc.UpdateComment(r.Context(), comment.ID, content)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to update comment", "commentId", commentID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		err = h.closePanels(w, r)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to close panels", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		h.redirectToComment(w, r, commentID)
	})

	return h.AuthenticatedOnly(hf)
}

func (h *Handler) HandleDeleteComment() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		commentID := r.PathValue("commentId")

		comment, ok := h.requireCommentAuthor(w, r, commentID)
		if !ok {
			return
		}

		documentID := comment.DocumentID

		err := h.annotationsSvc.DeleteComment(r.Context(), commentID)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to delete comment", "commentId", commentID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		http.Redirect(w, r, "/d/"+documentID, http.StatusSeeOther)
	})

	return h.AuthenticatedOnly(hf)
}

// requireCommentAuthor loads the comment and checks the current user wrote
// it. On failure it writes the response itself and returns ok=false.
func (h *Handler) requireCommentAuthor(
	w http.ResponseWriter,
	r *http.Request,
	commentID string,
) (*discuss.Comment, bool) {
	comment, err := h.discussSvc.GetComment(r.Context(), commentID)
	if err != nil {
		var commentNotFoundErr discuss.CommentNotFoundError
		if errors.As(err, &commentNotFoundErr) {
			http.Error(w, "Comment not found", http.StatusNotFound)

			return nil, false
		}

		slog.ErrorContext(r.Context(), "failed to get comment", "commentId", commentID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return nil, false
	}

	currentUser, err := h.authSvc.GetCurrentUser(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to get current user", "error", err)
		http.Error(w, "Failed to get current user", http.StatusInternalServerError)

		return nil, false
	}

	if comment.AuthorID != currentUser.ID {
		http.Error(w, "Only the author can do that", http.StatusForbidden)

		return nil, false
	}

	return comment, true
}

func (h *Handler) HandleOpenReplyForm() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		commentID := r.PathValue("commentId")

		err := h.openReplyInput(w, r, commentID)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to open reply input", "commentId", commentID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		h.redirectToComment(w, r, commentID)
	})

	return h.AuthenticatedOnly(hf)
}

func (h *Handler) HandleOpenEditForm() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		commentID := r.PathValue("commentId")

		if _, ok := h.requireCommentAuthor(w, r, commentID); !ok {
			return
		}

		err := h.openEditPanel(w, r, commentID)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to open edit panel", "commentId", commentID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		h.redirectToComment(w, r, commentID)
	})

	return h.AuthenticatedOnly(hf)
}

func (h *Handler) HandleClosePanels() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h.closePanels(w, r)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to close panels", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		http.Redirect(w, r, h.returnToFromRequest(r), http.StatusSeeOther)
	})
}

// redirectToComment sends the browser back to the document page, scrolled to
// the comment's thread.
func (h *Handler) redirectToComment(w http.ResponseWriter, r *http.Request, commentID string) {
	documentID, err := h.annotationsSvc.DocumentOf(r.Context(), commentID)
	if err != nil {
		http.Redirect(w, r, h.returnToFromRequest(r), http.StatusSeeOther)

		return
	}

	http.Redirect(w, r, "/d/"+documentID+"#comment-"+commentID, http.StatusSeeOther)
}

func (h *Handler) HandleToggleReaction() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		targetType := reactions.TargetType(r.PathValue("targetType"))
		targetID := r.PathValue("targetId")

		err := r.ParseForm()
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to parse reaction form", "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)

			return
		}

		returnTo := h.returnToFromRequest(r)

		if !isAuthenticated(r) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)

			return
		}

		emoji := r.FormValue("emoji")

		currentUser, err := h.authSvc.GetCurrentUser(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to get current user for reaction", "error", err)
			http.Error(w, "Failed to get current user", http.StatusInternalServerError)

			return
		}

		_, err = h.reactionsSvc.ToggleReaction(r.Context(), targetType, targetID, currentUser.ID, emoji)
		if err != nil {
			var invalidTargetTypeErr reactions.InvalidTargetTypeError

			var invalidEmojiErr reactions.InvalidEmojiError

			switch {
			case errors.As(err, &invalidTargetTypeErr):
				http.Error(w, "Invalid reaction target", http.StatusBadRequest)
			case errors.As(err, &invalidEmojiErr):
				http.Error(w, "Invalid reaction emoji", http.StatusBadRequest)
			default:
				slog.ErrorContext(r.Context(), "failed to toggle reaction", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}

			return
		}

		http.Redirect(w, r, returnTo, http.StatusSeeOther)
	})
}
