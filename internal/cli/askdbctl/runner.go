// Package askdbctl implements the operator CLI: thin HTTP calls against a
// running API instance with pretty-printed JSON output.
package askdbctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("askdbctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "askdb API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 30*time.Second), "HTTP timeout (e.g. 30s)")
	limit := fs.Int("limit", 0, "row limit for query commands (0 = server default)")
	noCache := fs.Bool("no-cache", false, "bypass the translation cache")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	command := strings.TrimSpace(fs.Arg(0))
	argument := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))

	method := ""
	path := ""
	var payload map[string]any
	switch command {
	case "health":
		method, path = http.MethodGet, "/v1/health"
	case "ready":
		method, path = http.MethodGet, "/v1/ready"
	case "schema":
		method, path = http.MethodGet, "/v1/schema"
	case "schema-refresh":
		method, path = http.MethodPost, "/v1/schema/refresh"
	case "cache-stats":
		method, path = http.MethodGet, "/v1/cache/stats"
	case "cache-clear":
		method, path = http.MethodPost, "/v1/cache/clear"
	case "translate":
		if argument == "" {
			_, _ = fmt.Fprintln(stderr, "translate requires a question")
			return 2
		}
		method, path = http.MethodPost, "/v1/translate"
		payload = map[string]any{"question": argument, "use_cache": !*noCache}
	case "query":
		if argument == "" {
			_, _ = fmt.Fprintln(stderr, "query requires a question")
			return 2
		}
		method, path = http.MethodPost, "/v1/query"
		payload = map[string]any{"question": argument, "use_cache": !*noCache}
		if *limit > 0 {
			payload["limit"] = *limit
		}
	case "execute":
		if argument == "" {
			_, _ = fmt.Fprintln(stderr, "execute requires a SQL statement")
			return 2
		}
		method, path = http.MethodPost, "/v1/execute"
		payload = map[string]any{"sql": argument}
		if *limit > 0 {
			payload["limit"] = *limit
		}
	case "check":
		if argument == "" {
			_, _ = fmt.Fprintln(stderr, "check requires a SQL statement")
			return 2
		}
		method, path = http.MethodPost, "/v1/sql/check"
		payload = map[string]any{"sql": argument}
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}

	endpoint := strings.TrimRight(*baseURL, "/") + path
	code, responseBody, err := doRequest(ctx, client, method, endpoint, *apiKey, payload)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

func doRequest(ctx context.Context, client *http.Client, method, url, apiKey string, payload map[string]any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: askdbctl [flags] <command> [argument]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health             GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready              GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  schema             GET /v1/schema")
	_, _ = fmt.Fprintln(w, "  schema-refresh     POST /v1/schema/refresh")
	_, _ = fmt.Fprintln(w, "  cache-stats        GET /v1/cache/stats")
	_, _ = fmt.Fprintln(w, "  cache-clear        POST /v1/cache/clear")
	_, _ = fmt.Fprintln(w, "  translate <text>   POST /v1/translate")
	_, _ = fmt.Fprintln(w, "  query <text>       POST /v1/query")
	_, _ = fmt.Fprintln(w, "  execute <sql>      POST /v1/execute")
	_, _ = fmt.Fprintln(w, "  check <sql>        POST /v1/sql/check")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
