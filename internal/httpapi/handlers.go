package httpapi

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/teamfinder/internal/monitor"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageNames = map[string]string{
	"index":    "Inicio",
	"commands": "Comandos",
	"about":    "Acerca de",
	"add_bot":  "Añadir bot",
}

type CommandInfo struct {
	Name        string
	Description string
}

// Site is the data shared by the static pages.
type Site struct {
	Service   string
	Commands  []CommandInfo
	InviteURL string
}

type StatusSource interface {
	Status() monitor.Status
}

type pageData struct {
	Title string
	Site  Site
}

// Pages holds one parsed template set per page, each sharing the layout.
type Pages map[string]*template.Template

func LoadPages() (Pages, error) {
	pages := make(Pages, len(pageNames))
	for name := range pageNames {
		t, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

func Page(pages Pages, name string, site Site, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := pages[name].ExecuteTemplate(&buf, "layout", pageData{Title: pageNames[name], Site: site}); err != nil {
			log.Error("render page", zap.String("page", name), zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = buf.WriteTo(w)
	}
}

type statusResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
	Service   string `json:"service"`
}

func Status(src StatusSource, service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := src.Status()
		resp := statusResponse{
			Status:    "online",
			Message:   st.Message,
			Timestamp: time.Now().Format(time.DateTime),
			Uptime:    st.Uptime.Truncate(time.Second).String(),
			Service:   service,
		}
		if !st.Healthy {
			resp.Status = "degraded"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func Healthz(src StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !src.Status().Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
