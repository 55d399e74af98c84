// Package api serves the JSON and HTML fragment endpoints used by the
// listing pages' "load more" control.
package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/hlog"

	"newsroom/web/internal/content"
	"newsroom/web/internal/models"
	"newsroom/web/internal/pagination"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Response structure for the load-more endpoint
type Response struct {
	Items     []models.Article `json:"items"`
	NextToken *string          `json:"next_token,omitempty"`
	HasMore   bool             `json:"has_more"`
}

// FragmentRenderer renders listing cards as an HTML fragment.
type FragmentRenderer interface {
	RenderCards(w io.Writer, category models.Category, items []models.Article, nextToken string) error
}

// LoadMoreHandler holds dependencies for the API handler.
type LoadMoreHandler struct {
	content   *content.Gateway
	fragments FragmentRenderer
}

// NewLoadMoreHandler creates a new handler instance.
func NewLoadMoreHandler(gw *content.Gateway, fragments FragmentRenderer) *LoadMoreHandler {
	return &LoadMoreHandler{
		content:   gw,
		fragments: fragments,
	}
}

func wantsJSON(r *http.Request) bool {
	return r.URL.Query().Get("format") == "json" ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

// GetMore resumes a listing from its token and returns the next page.
func (h *LoadMoreHandler) GetMore(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	log.Debug().Msg("Processing load-more request")

	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		log.Warn().Msg("Missing required parameter: 'token'")
		http.Error(w, "Missing required parameter: 'token'", http.StatusBadRequest)
		return
	}

	state, err := pagination.DecodeToken(tokenStr)
	if err != nil {
		log.Warn().Err(err).Str("token", tokenStr).Msg("Invalid 'token' parameter")
		http.Error(w, "Invalid 'token' parameter", http.StatusBadRequest)
		return
	}

	ctrl := pagination.Resume(pagination.ForCategory(h.content, state.Category), state)
	if _, err := ctrl.LoadMore(r.Context()); err != nil {
		// The client keeps what it already shows and may retry the same token.
		status := http.StatusInternalServerError
		if errors.Is(err, content.ErrTransport) {
			status = http.StatusBadGateway
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	var nextToken *string
	if ctrl.HasMore() {
		t := pagination.EncodeToken(ctrl.State(state.Category))
		nextToken = &t
	}
	items := ctrl.Items()

	var body bytes.Buffer
	contentType := "text/html; charset=utf-8"
	if wantsJSON(r) {
		contentType = "application/json"
		err = jsonAPI.NewEncoder(&body).Encode(Response{
			Items:     items,
			NextToken: nextToken,
			HasMore:   nextToken != nil,
		})
	} else {
		next := ""
		if nextToken != nil {
			next = *nextToken
		}
		err = h.fragments.RenderCards(&body, state.Category, items, next)
	}
	if err != nil {
		log.Error().Err(err).Msg("Error encoding load-more response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK) // Now it's safe to send 200 OK
	if _, writeErr := body.WriteTo(w); writeErr != nil {
		log.Error().Err(writeErr).Msg("Error writing response body to client")
	}
	log.Debug().Int("items", len(items)).Bool("has_more", nextToken != nil).Msg("Response completed")
}
