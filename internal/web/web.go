// Package web serves a browsable report for a saved duplicate-search
// result: an HTML overview, the raw result JSON, and the matched image
// files themselves.
package web

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const reportTemplate = `<!DOCTYPE html>
<html>
<head>
<title>dedoppel report</title>
<style>
body { font-family: sans-serif; margin: 2em; }
.group { border-bottom: 1px solid #ccc; padding: 1em 0; }
.thumb { max-height: 160px; margin: 0.2em; vertical-align: middle; }
.path { font-family: monospace; font-size: 0.9em; }
</style>
</head>
<body>
<h1>Duplicate report</h1>
<p>{{len .Groups}} reference images with matches</p>
{{range .Groups}}
<div class="group">
  <p class="path">{{.Reference}}</p>
  <img class="thumb" src="/image?path={{.Reference}}" alt="">
  &rarr;
  {{range .Matches}}
  <a href="/image?path={{.}}"><img class="thumb" src="/image?path={{.}}" alt="" title="{{.}}"></a>
  {{end}}
</div>
{{end}}
</body>
</html>
`

// group is one reference image and its matched target paths.
type group struct {
	Reference string
	Matches   []string
}

type Server struct {
	result  map[string][]string
	allowed map[string]bool
	tmpl    *template.Template
}

// New loads a saved find result and prepares the report server. Only
// files named in the result may be served.
func New(resultPath string) (*Server, error) {
	data, err := os.ReadFile(resultPath)
	if err != nil {
		return nil, fmt.Errorf("reading result %s: %w", resultPath, err)
	}

	var result map[string][]string
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parsing result %s: %w", resultPath, err)
	}

	allowed := make(map[string]bool)
	for ref, matches := range result {
		allowed[ref] = true
		for _, m := range matches {
			allowed[m] = true
		}
	}

	tmpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing report template: %w", err)
	}

	return &Server{result: result, allowed: allowed, tmpl: tmpl}, nil
}

// Router builds the HTTP handler for the report.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleReport)
	r.Get("/result", s.handleResult)
	r.Get("/image", s.handleImage)
	return r
}

// groups returns the result as a slice sorted by reference path, for
// stable rendering.
func (s *Server) groups() []group {
	groups := make([]group, 0, len(s.result))
	for ref, matches := range s.result {
		groups = append(groups, group{Reference: ref, Matches: matches})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Reference < groups[j].Reference })
	return groups
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, struct{ Groups []group }{s.groups()}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.result); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleImage serves a file from disk, but only paths that appear in
// the loaded result, so the server cannot be used to read arbitrary
// files.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if !s.allowed[path] {
		http.Error(w, "unknown image", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, path)
}
