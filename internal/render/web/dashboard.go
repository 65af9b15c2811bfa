package web

import (
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/banshee-data/rangeview/internal/version"
)

const dashboardHTML = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="%d">
<title>%s</title>
<style>
body { background: #0a0a0a; color: #ddd; font-family: sans-serif; margin: 1em; }
.row { display: flex; flex-wrap: wrap; gap: 1em; }
iframe { border: 1px solid #333; width: 920px; height: 920px; }
a { color: #8cf; }
</style>
</head>
<body>
<h1>%s</h1>
<p>%s | <a href="/api/status">status</a> | <a href="/snapshot.png">snapshot</a> | <a href="/debug/">debug</a></p>
<div class="row">
%s
</div>
</body>
</html>
`

// refreshSeconds is how often the dashboard reloads its charts.
const refreshSeconds = 2

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	var frames []string
	if s.src.Bins != nil {
		frames = append(frames, "/scan")
	}
	if s.src.Grid != nil {
		frames = append(frames, "/grid/heatmap", "/grid/3d")
	}
	var b strings.Builder
	for _, f := range frames {
		fmt.Fprintf(&b, "<iframe src=%q></iframe>\n", f)
	}

	title := html.EscapeString(version.Banner(s.src.Tool))
	state := "NOT CONNECTED"
	if s.src.Link != nil {
		st := s.src.Link.Status()
		if st.Connected {
			state = "CONNECTED"
		}
		state = html.EscapeString("Port: "+st.Port) + " | " + state
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, dashboardHTML, refreshSeconds, title, title, state, b.String())
}
