package keyprovider

import (
	"net/http"

	"go.uber.org/zap"
)

type Option func(*Client)

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *Client) {
		client.httpClient = httpClient
	}
}

func WithAPIURL(apiURL string) Option {
	return func(client *Client) {
		client.apiURL = apiURL
	}
}

func WithToken(token string) Option {
	return func(client *Client) {
		client.token = token
	}
}
