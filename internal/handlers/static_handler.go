package handlers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// StaticHandler serves the web client and answers unknown routes.
type StaticHandler struct {
	root     string
	basePath string
}

func NewStaticHandler(publicDir, basePath string) *StaticHandler {
	if basePath == "/" {
		basePath = ""
	}
	return &StaticHandler{root: publicDir, basePath: basePath}
}

// @Summary      Liveness probe
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /healthz [get]
func (h *StaticHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// NoRoute serves /, /css/*, /js/* and *.html from the public directory
// (with or without the base path) and 404s everything else.
func (h *StaticHandler) NoRoute(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		notFound(c)
		return
	}

	p := c.Request.URL.Path
	if h.basePath != "" && (p == h.basePath || strings.HasPrefix(p, h.basePath+"/")) {
		p = strings.TrimPrefix(p, h.basePath)
	}
	if p == "" || p == "/" {
		p = "/login.html"
	}
	if !strings.HasPrefix(p, "/css/") && !strings.HasPrefix(p, "/js/") && !strings.HasSuffix(p, ".html") {
		notFound(c)
		return
	}

	// path.Clean on a rooted path cannot climb above the root
	file := filepath.Join(h.root, filepath.FromSlash(path.Clean(p)))
	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		notFound(c)
		return
	}
	c.File(file)
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Not found"})
}
