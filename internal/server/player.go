package server

import (
	"html/template"
	"net/http"
)

var playerPage = template.Must(template.New("player").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>soundboard player</title>
  <style>
    body{ margin:0; background:#000 }
    #{{.MountID}}{ width:320px; height:180px }
  </style>
</head>
<body>
  <div id="{{.MountID}}"></div>
</body>
</html>
`))

// handlePlayerPage serves the page the browser-driven player mounts into.
func (s *Server) handlePlayerPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", htmlContentType)
	w.Header().Set("Cache-Control", "no-store")
	_ = playerPage.Execute(w, struct{ MountID string }{MountID: s.mountID})
}
