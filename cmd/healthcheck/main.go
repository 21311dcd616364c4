// Package main implements the container healthcheck command. It probes the
// local server's liveness endpoint and reports only through its exit status.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/factcheck-tw/rumorbot/internal/config"
)

func main() {
	if err := probe(); err != nil {
		os.Exit(1)
	}
}

func probe() error {
	port := os.Getenv(config.EnvPort)
	if port == "" {
		port = config.DefaultPort
	}

	client := &http.Client{Timeout: 8 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthz returned status %d", resp.StatusCode)
	}
	return nil
}
