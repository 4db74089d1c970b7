package web

import (
	"net/http"
)

// Transient panel state, tracked per session. At most one inline reply input
// and one inline edit panel are open at a time across the whole session;
// opening a member of the family closes the others. This mirrors the
// single-open invariant the comment panels rely on: the document page only
// renders the one form the session points at.
const (
	openReplyForKey = "openReplyFor"
	openEditForKey  = "openEditFor"
)

// uiState is the snapshot the document page renders from.
type uiState struct {
	OpenReplyFor string // comment id with an open reply input, if any
	OpenEditFor  string // comment id with an open edit panel, if any
}

func (h *Handler) getUIState(r *http.Request) uiState {
	state := uiState{}

	if value, err := h.getSessionValue(r, openReplyForKey); err == nil {
		state.OpenReplyFor, _ = value.(string)
	}

	if value, err := h.getSessionValue(r, openEditForKey); err == nil {
		state.OpenEditFor, _ = value.(string)
	}

	return state
}

// openReplyInput marks the reply input for one comment as open and closes
// every other transient panel.
func (h *Handler) openReplyInput(w http.ResponseWriter, r *http.Request, commentID string) error {
	err := h.closePanels(w, r)
	if err != nil {
		return err
	}

	return h.setSessionValue(w, r, openReplyForKey, commentID)
}

// openEditPanel marks the edit panel for one comment as open and closes
// every other transient panel.
func (h *Handler) openEditPanel(w http.ResponseWriter, r *http.Request, commentID string) error {
	err := h.closePanels(w, r)
	if err != nil {
		return err
	}

	return h.setSessionValue(w, r, openEditForKey, commentID)
}

// closePanels closes every transient panel of the session.
func (h *Handler) closePanels(w http.ResponseWriter, r *http.Request) error {
	for _, key := range []string{openReplyForKey, openEditForKey} {
		err := h.deleteSessionValue(w, r, key)
		if err != nil {
			return err
		}
	}

	return nil
}
