package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/kode4food/twill/pkg/api"
	"github.com/kode4food/twill/pkg/log"
)

// HTTP performs a single request against an arbitrary endpoint. The
// response always yields status, body, and headers outputs; an optional
// extract path pulls one value out of a JSON body
type HTTP struct {
	client *http.Client
}

const httpUserAgent = "Twill/" + Version

func NewHTTP(timeout time.Duration) *HTTP {
	return &HTTP{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (h *HTTP) Describe() *api.Schema {
	return &api.Schema{
		Name:        TypeHTTP,
		Version:     Version,
		Description: "Performs an HTTP request",
		Suspending:  true,
		Params: api.ParamSpecs{
			"url": {
				Role:        api.RoleRequired,
				Type:        api.TypeString,
				Description: "Request URL",
			},
			"method": {
				Role:        api.RoleOptional,
				Type:        api.TypeString,
				Default:     `"GET"`,
				Description: "HTTP method",
			},
			"headers": {
				Role:        api.RoleOptional,
				Type:        api.TypeObject,
				Description: "Request headers",
			},
			"body": {
				Role:        api.RoleOptional,
				Type:        api.TypeAny,
				Description: "Request body; non-strings are sent as JSON",
			},
			"timeout": {
				Role:        api.RoleOptional,
				Type:        api.TypeAny,
				Description: "Per-request timeout overriding the default",
			},
			"extract": {
				Role:        api.RoleOptional,
				Type:        api.TypeString,
				Description: "Path applied to a JSON response body",
			},
		},
		Outputs: api.OutputSpecs{
			"status":    {Type: api.TypeNumber, Description: "Response status code"},
			"body":      {Type: api.TypeString, Description: "Response body"},
			"headers":   {Type: api.TypeObject, Description: "Response headers"},
			"extracted": {Type: api.TypeAny, Description: "Value at the extract path"},
		},
	}
}

func (h *HTTP) Execute(
	ctx context.Context, input api.Args,
) (*api.StepResult, error) {
	url, err := requireString(input, "url")
	if err != nil {
		return nil, err
	}
	method := strings.ToUpper(input.GetString("method", http.MethodGet))

	if timeout := input.GetDuration("timeout", 0); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := h.newRequest(ctx, method, url, input)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		slog.Error("HTTP request failed",
			slog.String("method", method),
			slog.String("url", url),
			log.Error(err))
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	slog.Debug("HTTP request complete",
		slog.String("method", method),
		slog.String("url", url),
		slog.Int("status", resp.StatusCode),
		log.Elapsed(time.Since(start)))

	res := api.NewResult().
		WithOutput("status", resp.StatusCode).
		WithOutput("body", string(respBody)).
		WithOutput("headers", headerMap(resp.Header))

	if path := input.GetString("extract", ""); path != "" {
		res = res.WithOutput(
			"extracted", gjson.GetBytes(respBody, path).Value(),
		)
	}
	return res, nil
}

func (h *HTTP) newRequest(
	ctx context.Context, method, url string, input api.Args,
) (*http.Request, error) {
	body, contentType, err := requestBody(input)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", httpUserAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if headers, ok := input["headers"].(map[string]any); ok {
		for k, v := range headers {
			req.Header.Set(k, fmt.Sprintf("%v", v))
		}
	}
	return req, nil
}

func requestBody(input api.Args) (io.Reader, string, error) {
	raw, ok := input["body"]
	if !ok || raw == nil {
		return nil, "", nil
	}
	if s, ok := raw.(string); ok {
		return strings.NewReader(s), "", nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, "", fmt.Errorf("%w: body", ErrInvalidParameter)
	}
	return bytes.NewReader(data), "application/json", nil
}

func headerMap(h http.Header) map[string]any {
	res := map[string]any{}
	for k := range h {
		res[k] = h.Get(k)
	}
	return res
}

var _ api.Capability = (*HTTP)(nil)
