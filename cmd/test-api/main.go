// Package main is a post-deployment smoke test. It calls the open health endpoint, then the
// gated status and listings endpoints with the key from OPEN_CEC_API_KEY, and prints each
// status code. It exits non-zero when any call does not return 200.
//
// Usage: test-api [base-url]   (default http://localhost:8080)
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/auth"
)

func main() {
	baseURL := "http://localhost:8080"
	if len(os.Args) > 1 {
		baseURL = os.Args[1]
	}
	client := &http.Client{Timeout: 10 * time.Second}
	if !smoke(client, baseURL, os.Getenv("OPEN_CEC_API_KEY"), os.Stdout) {
		os.Exit(1)
	}
}

func smoke(client *http.Client, baseURL, key string, out io.Writer) bool {
	ok := true
	for _, path := range []string{"/health", "/", "/listings?status=active"} {
		req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
		if err != nil {
			fmt.Fprintf(out, "%-28s error: %v\n", path, err)
			ok = false
			continue
		}
		if key != "" {
			req.Header.Set(auth.DefaultHeader, key)
		}

		resp, err := client.Do(req)
		if err != nil {
			fmt.Fprintf(out, "%-28s error: %v\n", path, err)
			ok = false
			continue
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()

		fmt.Fprintf(out, "%-28s %d %s\n", path, resp.StatusCode, body)
		if resp.StatusCode != http.StatusOK {
			ok = false
		}
	}
	return ok
}
