package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const googleEndpoint = "https://translate.googleapis.com/translate_a/single"

const googleUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// GoogleClient calls the public Google Translate web endpoint. No API key
// is required.
type GoogleClient struct {
	client   *http.Client
	endpoint string
}

func NewGoogle(client *http.Client) *GoogleClient {
	return &GoogleClient{
		client:   client,
		endpoint: googleEndpoint,
	}
}

func (c *GoogleClient) Name() string {
	return ServiceGoogle
}

func (c *GoogleClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if sourceLang == "" {
		sourceLang = "auto"
	}

	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", sourceLang)
	params.Set("tl", targetLang)
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", &ServiceError{Service: ServiceGoogle, Kind: KindPermanent, Message: "building request", Cause: err}
	}
	req.Header.Set("User-Agent", googleUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &ServiceError{Service: ServiceGoogle, Kind: KindTransient, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &ServiceError{
			Service: ServiceGoogle,
			Kind:    statusKind(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: truncate(string(body), 200),
		}
	}

	translated, err := parseGoogleResponse(body)
	if err != nil {
		return "", &ServiceError{Service: ServiceGoogle, Kind: KindPermanent, Message: "parsing response", Cause: err}
	}
	return translated, nil
}

// parseGoogleResponse extracts the translated text from the gtx response,
// which is a nested JSON array: [[[translated, original, ...], ...], ...].
func parseGoogleResponse(body []byte) (string, error) {
	var root []interface{}
	if err := json.Unmarshal(body, &root); err != nil {
		return "", err
	}
	if len(root) == 0 {
		return "", fmt.Errorf("empty response")
	}

	sentences, ok := root[0].([]interface{})
	if !ok {
		return "", fmt.Errorf("unexpected response shape")
	}

	var sb strings.Builder
	for _, item := range sentences {
		props, ok := item.([]interface{})
		if !ok || len(props) == 0 {
			continue
		}
		if s, ok := props[0].(string); ok {
			sb.WriteString(s)
		}
	}
	return sb.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
