package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/go-zoox/forwarder"
	"github.com/go-zoox/forwarder/utils/rewriter"
)

func main() {
	rewrites, err := rewriter.Load("appsettings.json", rewriter.DefaultSection)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	fmt.Println("Starting forwarder at http://127.0.0.1:9999 ...")
	http.ListenAndServe(":9999", forwarder.New(&forwarder.Config{
		Upstream: "http://127.0.0.1:8080",
		Rewrites: rewrites,
	}))
}

// visit http://127.0.0.1:9999/api/old/items => http://127.0.0.1:8080/api/new/items
// curl -v http://127.0.0.1:9999/api/old/items
