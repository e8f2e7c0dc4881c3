package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"slices"
	"strings"

	"github.com/afroash/storm-antenna/internal/models"
)

//go:embed templates/*
var templateFS embed.FS

var pageFuncs = template.FuncMap{
	"yesNo": func(b bool) string {
		if b {
			return "YES"
		}
		return "NO"
	},
	"active": func(b bool) string {
		if b {
			return "sensor-active"
		}
		return "sensor-inactive"
	},
	"reading": func(v *float64, unit string) string {
		if v == nil {
			return "Error"
		}
		return fmt.Sprintf("%.1f%s", *v, unit)
	},
	"overrideNames": func(chs []models.Channel) string {
		names := make([]string, len(chs))
		for i, ch := range chs {
			names[i] = strings.ToUpper(ch.Label())
		}
		return strings.Join(names, ", ")
	},
}

var pageTemplate = template.Must(template.New("").Funcs(pageFuncs).ParseFS(templateFS, "templates/*.html"))

// PageData is rendered by templates/status.html
type PageData struct {
	Device     *models.DeviceInfo
	Status     StatusResponse
	Overrides  []models.Channel
	Thresholds models.Thresholds
	HasClouds  bool
	HasOnAir   bool
}

// HandlePage runs a decision cycle and renders the status page
func (api *APIHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	rec := api.ctrl.Cycle(r.Context())
	channels := api.ctrl.Channels()
	status := NewStatusResponse(rec, api.ctrl.Device(), api.ctrl.Thresholds())

	data := PageData{
		Device:     api.ctrl.Device(),
		Status:     status,
		Overrides:  status.ActiveOverrides,
		Thresholds: status.Thresholds,
		HasClouds:  slices.Contains(channels, models.ChannelCloudsLED),
		HasOnAir:   slices.Contains(channels, models.ChannelOnAirLED),
	}

	var buf bytes.Buffer
	if err := pageTemplate.ExecuteTemplate(&buf, "status.html", data); err != nil {
		api.serverError(w, err, "failed to render status page")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
