package keyprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

const (
	defaultAPIURL = "https://api.github.com"

	perPage       = 100
	retryAttempts = 3
)

// Client fetches the registered public keys of code-hosting users. A
// failure to fetch a single user's keys is logged and skipped; deciding
// whether the resulting union is sufficient is up to the caller.
type Client struct {
	logger     *zap.SugaredLogger
	httpClient *http.Client
	apiURL     string
	token      string
}

type userKey struct {
	ID  int64  `json:"id"`
	Key string `json:"key"`
}

func New(opts ...Option) *Client {
	client := &Client{}

	// Apply options
	for _, opt := range opts {
		opt(client)
	}

	// Apply defaults
	if client.logger == nil {
		client.logger = zap.NewNop().Sugar()
	}
	if client.httpClient == nil {
		client.httpClient = http.DefaultClient
	}
	if client.apiURL == "" {
		client.apiURL = defaultAPIURL
	}

	return client
}

// FetchKeys returns the union of the given users' registered public
// keys, deduplicated and in first-seen order.
func (client *Client) FetchKeys(ctx context.Context, usernames []string) *AllowedKeySet {
	set := NewAllowedKeySet()

	for _, username := range usernames {
		keys, err := client.userKeys(ctx, username)
		if err != nil {
			client.logger.Warnf("failed to fetch public keys for user %s, skipping: %v", username, err)

			continue
		}

		if len(keys) == 0 {
			client.logger.Warnf("user %s has no registered public keys", username)
		}

		for _, key := range keys {
			set.Add(key)
		}
	}

	return set
}

func (client *Client) userKeys(ctx context.Context, username string) ([]string, error) {
	var keys []string

	for page := 1; ; page++ {
		pageKeys, err := client.userKeysPage(ctx, username, page)
		if err != nil {
			return nil, err
		}

		for _, pageKey := range pageKeys {
			// Only accept well-formed keys
			if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(pageKey.Key)); err != nil {
				client.logger.Warnf("skipping unparseable public key %d of user %s: %v",
					pageKey.ID, username, err)

				continue
			}

			keys = append(keys, strings.TrimSpace(pageKey.Key))
		}

		if len(pageKeys) < perPage {
			return keys, nil
		}
	}
}

func (client *Client) userKeysPage(ctx context.Context, username string, page int) ([]userKey, error) {
	endpoint := fmt.Sprintf("%s/users/%s/keys?per_page=%d&page=%d",
		strings.TrimSuffix(client.apiURL, "/"), url.PathEscape(username), perPage, page)

	return retry.DoWithData(func() ([]userKey, error) {
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, retry.Unrecoverable(err)
		}

		request.Header.Set("Accept", "application/vnd.github+json")
		if client.token != "" {
			request.Header.Set("Authorization", "Bearer "+client.token)
		}

		response, err := client.httpClient.Do(request)
		if err != nil {
			return nil, err
		}
		defer response.Body.Close()

		if response.StatusCode != http.StatusOK {
			err := fmt.Errorf("unexpected HTTP %d from %s", response.StatusCode, endpoint)

			// Client errors won't go away on retry
			if response.StatusCode >= 400 && response.StatusCode < 500 {
				return nil, retry.Unrecoverable(err)
			}

			return nil, err
		}

		body, err := io.ReadAll(response.Body)
		if err != nil {
			return nil, err
		}

		var pageKeys []userKey
		if err := json.Unmarshal(body, &pageKeys); err != nil {
			return nil, retry.Unrecoverable(err)
		}

		return pageKeys, nil
	}, retry.Context(ctx), retry.Attempts(retryAttempts), retry.LastErrorOnly(true))
}
