package web

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/sharelist/internal/errors"
	"github.com/louisbranch/sharelist/internal/events"
	"github.com/louisbranch/sharelist/internal/identity"
	"github.com/louisbranch/sharelist/internal/list"
	"github.com/louisbranch/sharelist/internal/settings"
	"github.com/louisbranch/sharelist/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Deps bundles the collaborators the HTTP handlers depend on.
type Deps struct {
	Identities *identity.Resolver
	Lists      *list.Service
	Settings   *settings.Service
	Broker     *events.Broker
}

type handlers struct {
	identities *identity.Resolver
	lists      *list.Service
	settings   *settings.Service
	broker     *events.Broker
}

// NewHandler builds the HTTP handler for the list sync API.
func NewHandler(deps Deps) http.Handler {
	h := handlers{
		identities: deps.Identities,
		lists:      deps.Lists,
		settings:   deps.Settings,
		broker:     deps.Broker,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodPost+" /api/users", h.handleCreateIdentity)
	mux.HandleFunc(http.MethodGet+" /api/users/{token}", h.handleResolveIdentity)
	mux.HandleFunc(http.MethodGet+" /api/todos", h.handleListAll)
	mux.HandleFunc(http.MethodGet+" /api/todos/unfinished", h.handleListUnfinished)
	mux.HandleFunc(http.MethodGet+" /api/todos/completed", h.handleListCompleted)
	mux.HandleFunc(http.MethodGet+" /api/todos/search", h.handleSearch)
	mux.HandleFunc(http.MethodPost+" /api/todos", h.handleAdd)
	mux.HandleFunc(http.MethodPut+" /api/todos/reorder", h.handleReorder)
	mux.HandleFunc(http.MethodPost+" /api/todos/complete-all", h.handleCompleteAll)
	mux.HandleFunc(http.MethodPost+" /api/todos/delete-unfinished", h.handleDeleteUnfinished)
	mux.HandleFunc(http.MethodPost+" /api/todos/clear-completed", h.handleClearCompleted)
	mux.HandleFunc(http.MethodPut+" /api/todos/{id}", h.handleUpdateTitle)
	mux.HandleFunc(http.MethodPut+" /api/todos/{id}/toggle", h.handleToggle)
	mux.HandleFunc(http.MethodDelete+" /api/todos/{id}", h.handleDelete)
	mux.HandleFunc(http.MethodGet+" /api/theme", h.handleGetTheme)
	mux.HandleFunc(http.MethodPut+" /api/theme", h.handleSetTheme)
	mux.HandleFunc(http.MethodGet+" /api/events", h.handleEvents)
	mux.HandleFunc(http.MethodGet+" /{segment}", h.handleIdentitySegment)

	return otelhttp.NewHandler(mux, "sharelist.http")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeError(w, apperrors.E(apperrors.KindInvalidInput, "malformed request body"))
		return false
	}
	return true
}

func pathItemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, apperrors.E(apperrors.KindInvalidInput, "invalid item identifier"))
		return 0, false
	}
	return id, true
}

func queryOrder(r *http.Request) storage.Order {
	if r.URL.Query().Get("order") == "custom" {
		return storage.OrderCustom
	}
	return storage.OrderChronological
}

func (h handlers) handleCreateIdentity(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	created, err := h.identities.Create(r.Context(), body.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, identityToView(created))
}

func (h handlers) handleResolveIdentity(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.identities.Resolve(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, identityToView(resolved))
}

// handleIdentitySegment serves a bare path segment. Segments that do not
// look like identity tokens are rejected outright so short routes never
// reach the resolver.
func (h handlers) handleIdentitySegment(w http.ResponseWriter, r *http.Request) {
	segment := r.PathValue("segment")
	if !identity.LooksLikeToken(segment) {
		http.NotFound(w, r)
		return
	}
	resolved, err := h.identities.Resolve(r.Context(), segment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, identityToView(resolved))
}

func (h handlers) handleListAll(w http.ResponseWriter, r *http.Request) {
	h.writeItemList(w, r, storage.ViewAll)
}

func (h handlers) handleListUnfinished(w http.ResponseWriter, r *http.Request) {
	h.writeItemList(w, r, storage.ViewUnfinished)
}

func (h handlers) handleListCompleted(w http.ResponseWriter, r *http.Request) {
	h.writeItemList(w, r, storage.ViewCompleted)
}

func (h handlers) writeItemList(w http.ResponseWriter, r *http.Request, view storage.View) {
	items, err := h.lists.List(r.Context(), r.URL.Query().Get("owner"), view, queryOrder(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsToViews(items))
}

func (h handlers) handleSearch(w http.ResponseWriter, r *http.Request) {
	items, err := h.lists.Search(r.Context(), r.URL.Query().Get("owner"), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsToViews(items))
}

func (h handlers) handleAdd(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
		Owner string `json:"owner"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	created, err := h.lists.Add(r.Context(), body.Owner, body.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, itemToView(created))
}

func (h handlers) handleUpdateTitle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathItemID(w, r)
	if !ok {
		return
	}
	var body struct {
		Title string `json:"title"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	updated, err := h.lists.UpdateTitle(r.Context(), id, body.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemToView(updated))
}

func (h handlers) handleToggle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathItemID(w, r)
	if !ok {
		return
	}
	toggled, err := h.lists.Toggle(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemToView(toggled))
}

func (h handlers) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathItemID(w, r)
	if !ok {
		return
	}
	deleted, err := h.lists.Delete(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemToView(deleted))
}

func ownerFromBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body struct {
		Owner string `json:"owner"`
	}
	if !decodeBody(w, r, &body) {
		return "", false
	}
	return body.Owner, true
}

func (h handlers) handleClearCompleted(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromBody(w, r)
	if !ok {
		return
	}
	if err := h.lists.ClearCompleted(r.Context(), owner); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h handlers) handleCompleteAll(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromBody(w, r)
	if !ok {
		return
	}
	if err := h.lists.CompleteAll(r.Context(), owner); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h handlers) handleDeleteUnfinished(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromBody(w, r)
	if !ok {
		return
	}
	if err := h.lists.DeleteUnfinished(r.Context(), owner); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h handlers) handleReorder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Owner string  `json:"owner"`
		IDs   []int64 `json:"ids"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := h.lists.Reorder(r.Context(), body.Owner, body.IDs); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h handlers) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := h.settings.Theme(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"theme": theme})
}

func (h handlers) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Theme string `json:"theme"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	theme := strings.TrimSpace(body.Theme)
	if err := h.settings.SetTheme(r.Context(), theme); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"theme": theme})
}
