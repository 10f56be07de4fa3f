package main

import (
	"html/template"
	"net/http"

	"github.com/vango-dev/locsync/pkg/server"
)

var demoPage = template.Must(template.New("demo").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>locsync demo</title>
</head>
<body>
  <h1>locsync</h1>
  <p>Served path: <code>{{.Path}}</code></p>
  <p>Current location: <code id="href"></code></p>
  <p><a href="#section-1">#section-1</a> · <a href="#section-2">#section-2</a></p>
  <p>Change this page from the server:</p>
  <pre>curl -X PATCH {{.Sessions}}/&lt;id&gt;/location -d '{"pathname":"/elsewhere"}'</pre>
  <script>
    function show() { document.getElementById("href").textContent = location.href; }
    window.addEventListener("hashchange", show);
    window.addEventListener("popstate", show);
    setInterval(show, 500);
    show();
  </script>
  <script src="{{.Client}}"></script>
</body>
</html>
`))

// demoHandler serves a page at every path that loads the client script.
func demoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = demoPage.Execute(w, map[string]string{
			"Path":     r.URL.Path,
			"Sessions": server.SessionsPath,
			"Client":   server.ClientPath,
		})
	})
}
