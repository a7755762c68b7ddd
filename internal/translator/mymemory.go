package translator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const myMemoryEndpoint = "https://api.mymemory.translated.net/get"

// MyMemoryClient calls the MyMemory API. The free tier allows a limited
// number of words per day; supplying a contact email raises the quota.
type MyMemoryClient struct {
	client   *http.Client
	endpoint string
	email    string
}

func NewMyMemory(client *http.Client, email string) *MyMemoryClient {
	return &MyMemoryClient{
		client:   client,
		endpoint: myMemoryEndpoint,
		email:    email,
	}
}

func (c *MyMemoryClient) Name() string {
	return ServiceMyMemory
}

func (c *MyMemoryClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	// MyMemory does not accept "auto" as a source language.
	if sourceLang == "" || sourceLang == "auto" {
		sourceLang = "en"
	}

	params := url.Values{}
	params.Set("q", text)
	params.Set("langpair", sourceLang+"|"+targetLang)
	if c.email != "" {
		params.Set("de", c.email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", &ServiceError{Service: ServiceMyMemory, Kind: KindPermanent, Message: "building request", Cause: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &ServiceError{Service: ServiceMyMemory, Kind: KindTransient, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &ServiceError{
			Service: ServiceMyMemory,
			Kind:    statusKind(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: truncate(string(body), 200),
		}
	}

	parsed, err := parseMyMemoryResponse(body)
	if err != nil {
		return "", err
	}
	return parsed, nil
}

func parseMyMemoryResponse(body []byte) (string, error) {
	var parsed struct {
		ResponseStatus  interface{} `json:"responseStatus"`
		ResponseDetails string      `json:"responseDetails"`
		ResponseData    struct {
			TranslatedText string `json:"translatedText"`
		} `json:"responseData"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ServiceError{Service: ServiceMyMemory, Kind: KindPermanent, Message: "parsing response", Cause: err}
	}

	// responseStatus is usually a number but arrives as a string for some
	// quota errors.
	status := 0
	switch v := parsed.ResponseStatus.(type) {
	case float64:
		status = int(v)
	case string:
		for _, r := range v {
			if r < '0' || r > '9' {
				break
			}
			status = status*10 + int(r-'0')
		}
	}

	if status != http.StatusOK {
		return "", &ServiceError{
			Service: ServiceMyMemory,
			Kind:    statusKind(status),
			Status:  status,
			Message: parsed.ResponseDetails,
		}
	}
	return parsed.ResponseData.TranslatedText, nil
}
