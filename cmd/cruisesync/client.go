package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const defaultBaseURL = "http://localhost:8080"

type tokenData struct {
	Token string `json:"token"`
}

// apiClient talks to a running `cruisesync serve`.
type apiClient struct {
	http  *http.Client
	base  string
	token string
}

// clientFlags adds --api and --token to cmd and returns a constructor for
// the client they describe.
func clientFlags(cmd *cobra.Command) func() *apiClient {
	var base, token, tokenPath string
	cmd.Flags().StringVar(&base, "api", defaultBaseURL, "API base URL")
	cmd.Flags().StringVar(&token, "token", "", "operator token (default: $CRUISESYNC_TOKEN or the saved login)")
	cmd.Flags().StringVar(&tokenPath, "token-file", defaultTokenPath(), "saved token path")
	return func() *apiClient {
		if token == "" {
			token = os.Getenv("CRUISESYNC_TOKEN")
		}
		if token == "" {
			token, _ = readToken(tokenPath)
		}
		return &apiClient{http: &http.Client{Timeout: 5 * time.Minute}, base: strings.TrimRight(base, "/"), token: token}
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s %s: %s (%d)", method, path, e.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s failed: %s", method, path, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.cruisesync-token.json"
	}
	return filepath.Join(home, ".cruisesync", "token.json")
}

func saveToken(path, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", err
	}
	return td.Token, nil
}
