package vocabulary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofhir/disorder"
	"github.com/gofhir/disorder/pkg/logger"
)

// DetailsPath is the route a Handler serves terms under.
const DetailsPath = "/disorders/"

// record is the response body, matching disorder.JSONDecoder.
type record struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Handler returns an http.Handler serving GET /disorders/{code}.
// Unknown codes get a 404; terms without a display are served without a
// name.
func (s *Service) Handler(log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.Discard()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+DetailsPath+"{code}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("code")
		term, ok := s.Lookup(id)
		if !ok {
			log.With("disorder", id).Debug("unknown disorder")
			writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown disorder " + id})
			return
		}
		log.With("disorder", term.Code).Debug("served disorder")
		writeJSON(w, http.StatusOK, record{ID: string(term.Code), Name: term.Display})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// LocalPattern is the endpoint template for Client.
const LocalPattern = DetailsPath + "{code}"

// Client returns a disorder.Client that answers from this vocabulary
// without a network round trip. Pair it with an endpoint.Template built
// from LocalPattern.
func (s *Service) Client() disorder.Client {
	return disorder.ClientFunc(func(ctx context.Context, target string) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		u, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("invalid lookup URL %s: %w", target, err)
		}
		id, ok := strings.CutPrefix(u.Path, DetailsPath)
		if !ok || id == "" {
			return nil, fmt.Errorf("lookup URL %s is not under %s", target, DetailsPath)
		}
		term, ok := s.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("unknown disorder %s", id)
		}
		return json.Marshal(record{ID: string(term.Code), Name: term.Display})
	})
}
