package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-zoox/forwarder"
	"github.com/go-zoox/forwarder/utils/rewriter"
)

func main() {
	f := forwarder.New(&forwarder.Config{
		Rewrites: rewriter.Rewriters{
			{From: "/api", To: "https://httpbin.zcorky.com"},
		},
	})

	r := chi.NewRouter()
	r.Use(f.Middleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Hello, world!"))
	})

	http.ListenAndServe(":8080", r)
}

// curl http://127.0.0.1:8080/api/get => https://httpbin.zcorky.com/get
// curl http://127.0.0.1:8080/      => Hello, world!
