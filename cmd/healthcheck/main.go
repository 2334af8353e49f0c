// Package main is a minimal HTTP health check binary for use in distroless
// containers running the preview server. It exits 0 when the /healthz
// endpoint returns HTTP 200, and 1 otherwise. Compile with CGO_ENABLED=0 for
// a fully static binary.
package main

import (
	"net/http"
	"os"
)

func main() {
	url := os.Getenv("FWCATALOG_HEALTHCHECK_URL")
	if url == "" {
		url = "http://localhost:8080/healthz"
	}

	resp, err := http.Get(url)
	if err != nil {
		os.Exit(1)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
