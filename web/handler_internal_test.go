package web

import (
	"bytes"
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/nasermirzaei89/marginalia/reactions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeReturnToPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty defaults to root",
			input:    "",
			expected: "/",
		},
		{
			name:     "relative path is allowed",
			input:    "/d/123",
			expected: "/d/123",
		},
		{
			name:     "relative path with query is allowed",
			input:    "/d/123?tab=comments",
			expected: "/d/123?tab=comments",
		},
		{
			name:     "relative path with fragment is allowed",
			input:    "/d/123#comment-456",
			expected: "/d/123#comment-456",
		},
		{
			name:     "missing leading slash is rejected",
			input:    "d/123",
			expected: "/",
		},
		{
			name:     "absolute url is rejected",
			input:    "https://evil.com",
			expected: "/",
		},
		{
			name:     "protocol relative url is rejected",
			input:    "//evil.com",
			expected: "/",
		},
		{
			name:     "triple slash is rejected",
			input:    "///evil.com",
			expected: "/",
		},
		{
			name:     "absolute url text as local path is allowed",
			input:    "/https://evil.com",
			expected: "/https://evil.com",
		},
		{
			name:     "double slash in local path is allowed",
			input:    "/foo//bar",
			expected: "/foo//bar",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := sanitizeReturnToPath(tt.input)

			assert.Equal(t, tt.expected, result)
		})
	}
}

func newPanelTestHandler(t *testing.T) *Handler {
	t.Helper()

	return &Handler{
		cookieStore: sessions.NewCookieStore([]byte("test-session-key")),
		sessionName: "marginalia-test",
	}
}

// requestWithCookies replays the cookies a previous response set, the way a
// browser would on the next request. The session may be saved several times
// in one response; only the last Set-Cookie per name survives.
func requestWithCookies(t *testing.T, rec *httptest.ResponseRecorder) *http.Request {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/", nil)

	latest := make(map[string]*http.Cookie)
	names := make([]string, 0)

	for _, cookie := range rec.Result().Cookies() {
		if _, seen := latest[cookie.Name]; !seen {
			names = append(names, cookie.Name)
		}

		latest[cookie.Name] = cookie
	}

	for _, name := range names {
		req.AddCookie(latest[name])
	}

	return req
}

func TestPanelStateSingleOpen(t *testing.T) {
	t.Parallel()

	h := newPanelTestHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	err := h.openReplyInput(rec, req, "comment-a")
	require.NoError(t, err)

	req = requestWithCookies(t, rec)
	state := h.getUIState(req)
	assert.Equal(t, "comment-a", state.OpenReplyFor)
	assert.Empty(t, state.OpenEditFor)

	// opening an edit panel closes the reply input
	rec = httptest.NewRecorder()

	err = h.openEditPanel(rec, req, "comment-b")
	require.NoError(t, err)

	req = requestWithCookies(t, rec)
	state = h.getUIState(req)
	assert.Empty(t, state.OpenReplyFor)
	assert.Equal(t, "comment-b", state.OpenEditFor)

	// opening another reply input closes the edit panel
	rec = httptest.NewRecorder()

	err = h.openReplyInput(rec, req, "comment-c")
	require.NoError(t, err)

	req = requestWithCookies(t, rec)
	state = h.getUIState(req)
	assert.Equal(t, "comment-c", state.OpenReplyFor)
	assert.Empty(t, state.OpenEditFor)
}

func TestReactionsTemplateTargetAttributes(t *testing.T) {
	t.Parallel()

	h := &Handler{}

	tpl, err := template.New("").Funcs(h.funcs()).ParseFS(templatesFS, "templates/*.gohtml")
	require.NoError(t, err)

	var buf bytes.Buffer

	err = tpl.ExecuteTemplate(&buf, "reactions", &ReactionWidgetData{
		TargetType: reactions.TargetTypeComment,
		TargetID:   "c1",
		Options: []reactions.ReactionOption{
			{Emoji: "👍", Count: 2, Available: true},
		},
		ReturnTo:        "/d/doc1",
		IsAuthenticated: true,
	})
	require.NoError(t, err)

	rendered := buf.String()

	assert.Contains(t, rendered, `data-target-kind="comment"`)
	assert.Contains(t, rendered, `data-target-id="c1"`)
	assert.NotContains(t, rendered, "data-target-type")
}

func TestPanelStateClose(t *testing.T) {
	t.Parallel()

	h := newPanelTestHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	err := h.openReplyInput(rec, req, "comment-a")
	require.NoError(t, err)

	req = requestWithCookies(t, rec)
	rec = httptest.NewRecorder()

	err = h.closePanels(rec, req)
	require.NoError(t, err)

	req = requestWithCookies(t, rec)
	state := h.getUIState(req)
	assert.Empty(t, state.OpenReplyFor)
	assert.Empty(t, state.OpenEditFor)
}
