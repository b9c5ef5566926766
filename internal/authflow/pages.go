package authflow

import (
	"html/template"
	"net/http"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 36rem; margin: 4rem auto; padding: 0 1rem; color: #202124; }
h1 { font-size: 1.4rem; }
.detail { color: #5f6368; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{- if .Detail}}
<p class="detail">{{.Detail}}</p>
{{- end}}
{{- if .Link}}
<p><a href="{{.Link}}">Authorize Google Calendar access</a></p>
{{- end}}
</body>
</html>
`))

type page struct {
	Title   string
	Message string
	Detail  string
	Link    string
}

func indexPage(consentURL string) page {
	return page{
		Title:   "meetmcp authorization",
		Message: "Follow the link below to grant meetmcp access to your calendar.",
		Link:    consentURL,
	}
}

func successPage() page {
	return page{
		Title:   "Authorization complete",
		Message: "meetmcp can now access your calendar. You can close this window.",
	}
}

func failurePage(detail string) page {
	return page{
		Title:   "Authorization failed",
		Message: "meetmcp did not receive access to your calendar. Close this window and try again.",
		Detail:  detail,
	}
}

// renderPage writes p and flushes it so the browser has the full response
// before the server starts shutting down.
func renderPage(w http.ResponseWriter, status int, p page) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, p); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
