package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// apiPrefixes never fall back to the web client.
var apiPrefixes = []string{"/api/", "/v1/", "/entry/"}

// WebAppHandler serves the browser client. Invitation links land on
// "/?session=<code>", so unknown paths fall back to index.html.
type WebAppHandler struct {
	staticDir string
	indexFile string
}

func NewWebAppHandler(staticDir string) *WebAppHandler {
	return &WebAppHandler{
		staticDir: staticDir,
		indexFile: "index.html",
	}
}

func (h *WebAppHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}

	urlPath := path.Clean("/" + r.URL.Path)
	for _, prefix := range apiPrefixes {
		if strings.HasPrefix(urlPath+"/", prefix) {
			http.NotFound(w, r)
			return
		}
	}

	filePath := filepath.Join(h.staticDir, filepath.FromSlash(urlPath))
	if info, err := os.Stat(filePath); err == nil && !info.IsDir() {
		http.ServeFile(w, r, filePath)
		return
	}

	indexPath := filepath.Join(h.staticDir, h.indexFile)
	if _, err := os.Stat(indexPath); err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, indexPath)
}
