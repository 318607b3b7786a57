package main

import (
	"github.com/gin-gonic/gin"
	"github.com/go-zoox/forwarder"
	"github.com/go-zoox/forwarder/utils/rewriter"
)

func main() {
	r := gin.Default()

	r.GET("/", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{
			"hello": "world",
		})
	})

	f := forwarder.New(&forwarder.Config{
		Rewrites: rewriter.Rewriters{
			{From: "/api", To: "https://httpbin.zcorky.com"},
		},
	})

	// requests no rule matches get a plain 404
	r.NoRoute(gin.WrapH(f))

	r.Run()
}
