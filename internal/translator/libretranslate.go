package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

const libreTranslateEndpoint = "https://libretranslate.com/translate"

// LibreTranslateClient calls a LibreTranslate server. The endpoint is
// configurable so self-hosted instances can be used.
type LibreTranslateClient struct {
	client   *http.Client
	endpoint string
}

func NewLibreTranslate(client *http.Client, endpoint string) *LibreTranslateClient {
	if endpoint == "" {
		endpoint = libreTranslateEndpoint
	}
	return &LibreTranslateClient{
		client:   client,
		endpoint: endpoint,
	}
}

func (c *LibreTranslateClient) Name() string {
	return ServiceLibreTranslate
}

func (c *LibreTranslateClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if sourceLang == "" {
		sourceLang = "auto"
	}

	payload, err := json.Marshal(map[string]string{
		"q":      text,
		"source": sourceLang,
		"target": targetLang,
		"format": "text",
	})
	if err != nil {
		return "", &ServiceError{Service: ServiceLibreTranslate, Kind: KindPermanent, Message: "encoding request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &ServiceError{Service: ServiceLibreTranslate, Kind: KindPermanent, Message: "building request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &ServiceError{Service: ServiceLibreTranslate, Kind: KindTransient, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &ServiceError{
			Service: ServiceLibreTranslate,
			Kind:    statusKind(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: truncate(string(body), 200),
		}
	}

	var parsed struct {
		TranslatedText string `json:"translatedText"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ServiceError{Service: ServiceLibreTranslate, Kind: KindPermanent, Message: "parsing response", Cause: err}
	}
	return parsed.TranslatedText, nil
}
