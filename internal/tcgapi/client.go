// Package tcgapi talks to the Pokémon TCG card service and turns user
// queries into normalized card lists.
package tcgapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/binder/internal/card"
	"github.com/hpungsan/binder/internal/config"
	"github.com/hpungsan/binder/internal/errors"
)

// envelope is the service's response wrapper. Data holds either one card
// object (lookup by id) or an array of them (search).
type envelope struct {
	Data       json.RawMessage `json:"data"`
	TotalCount int             `json:"totalCount,omitempty"`
}

// Client issues read-only requests to the card service.
type Client struct {
	http     *resty.Client
	pageSize int
	logger   *zap.Logger
}

// NewClient creates a Client from cfg. Requests are never retried.
func NewClient(cfg *config.Config, version string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.APIBaseURL, "/"))
	client.SetTimeout(cfg.RequestTimeout())
	client.SetRetryCount(0)
	client.SetHeader("Accept", "application/json")
	client.SetHeader("User-Agent", "binder/"+version)
	if cfg.APIKey != "" {
		client.SetHeader("X-Api-Key", cfg.APIKey)
	}

	pageSize := cfg.NamePageSize
	if pageSize <= 0 {
		pageSize = config.DefaultConfig().NamePageSize
	}

	return &Client{http: client, pageSize: pageSize, logger: logger}
}

// FindByCode looks up a single card by its exact code.
func (c *Client) FindByCode(ctx context.Context, code string) ([]card.Card, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", code).
		Get("/cards/{id}")
	return c.decode(code, res, err)
}

// SearchByName searches cards whose name matches the fragment.
// Single words match anywhere in the name; phrases match the whole name.
func (c *Client) SearchByName(ctx context.Context, name string) ([]card.Card, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("q", NameQuery(name)).
		SetQueryParam("pageSize", strconv.Itoa(c.pageSize)).
		Get("/cards")
	return c.decode(name, res, err)
}

// decode maps a response onto the error taxonomy and normalizes the payload.
func (c *Client) decode(query string, res *resty.Response, err error) ([]card.Card, error) {
	if err != nil {
		c.logger.Warn("card service request failed", zap.String("query", query), zap.Error(err))
		return nil, errors.NewServiceUnavailable(query, err)
	}

	switch {
	case res.StatusCode() == http.StatusNotFound:
		return nil, errors.NewNotFound(query)
	case !res.IsSuccess():
		c.logger.Warn("card service returned non-success status",
			zap.String("query", query), zap.Int("status", res.StatusCode()))
		return nil, errors.NewServiceUnavailable(query, fmt.Errorf("status %d", res.StatusCode()))
	}

	var env envelope
	if err := json.Unmarshal(res.Body(), &env); err != nil {
		return nil, errors.NewServiceUnavailable(query, fmt.Errorf("decode response: %w", err))
	}

	cards, err := Normalize(env.Data)
	if err != nil {
		return nil, errors.NewServiceUnavailable(query, err)
	}

	kept := cards[:0]
	for _, cd := range cards {
		if cd.ID == "" {
			c.logger.Debug("dropping card without id", zap.String("query", query), zap.String("name", cd.Name))
			continue
		}
		kept = append(kept, cd)
	}
	return kept, nil
}

// Normalize turns the envelope's data member into a list whatever its
// shape: object → one card, array → many, null/absent → none.
func Normalize(data json.RawMessage) ([]card.Card, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []card.Card{}, nil
	}

	switch data[0] {
	case '{':
		var one card.Card
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, fmt.Errorf("decode card: %w", err)
		}
		return []card.Card{one}, nil
	case '[':
		var many []card.Card
		if err := json.Unmarshal(data, &many); err != nil {
			return nil, fmt.Errorf("decode cards: %w", err)
		}
		if many == nil {
			many = []card.Card{}
		}
		return many, nil
	default:
		return nil, fmt.Errorf("unexpected data shape %q", string(data[:1]))
	}
}

// queryEscaper strips characters that carry meaning in the service's query
// syntax.
var queryEscaper = strings.NewReplacer(`"`, "", `\`, "", ":", " ", "*", "", "(", "", ")", "")

// NameQuery builds the service's q parameter for a name fragment.
func NameQuery(name string) string {
	name = strings.Join(strings.Fields(queryEscaper.Replace(name)), " ")
	if strings.Contains(name, " ") {
		return fmt.Sprintf(`name:"%s"`, name)
	}
	return fmt.Sprintf("name:*%s*", name)
}
