// Package bdr wraps the digital repository's public API endpoints used by
// the collection size scan: the collections listing and the search endpoint.
package bdr

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/birkin/collection-size-query-project/pkg/client"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// API endpoint paths under the server root.
const (
	CollectionsEndpoint = "/api/collections/"
	SearchEndpoint      = "/api/search/"
)

// membershipField is the Solr field linking items to their collection.
const membershipField = "rel_is_member_of_collection_ssim"

// CollectionSummary is one entry from the collections listing endpoint.
// Name may be empty; the listing does not guarantee it.
type CollectionSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CollectionInfo is the result record for a collection whose item count fell
// within the configured bounds.
type CollectionInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// String renders the record in the report format printed to stdout.
func (ci CollectionInfo) String() string {
	return fmt.Sprintf("%s ('%s') has %d items", ci.ID, ci.Name, ci.Count)
}

type collectionsResponse struct {
	Collections []CollectionSummary `json:"collections"`
}

type searchResponse struct {
	Response struct {
		NumFound *int `json:"numFound"`
	} `json:"response"`
}

// Client provides typed access to the repository endpoints.
type Client struct {
	api    *client.Client
	logger zerolog.Logger
}

// NewClient wraps a transport client.
func NewClient(api *client.Client) *Client {
	return &Client{
		api:    api,
		logger: log.With().Str("component", "bdr").Logger(),
	}
}

// FetchCollectionsBatch retrieves a single page of collection summaries from
// the listing endpoint, starting at the given offset. An empty slice signals
// that the listing is exhausted. HTTP failures propagate unmodified.
func (c *Client) FetchCollectionsBatch(ctx context.Context, start, rows int) ([]CollectionSummary, error) {
	c.logger.Info().Int("start", start).Int("rows", rows).Msg("Fetching collections batch")

	params := url.Values{}
	params.Set("rows", strconv.Itoa(rows))
	params.Set("start", strconv.Itoa(start))

	var decoded collectionsResponse
	if err := c.api.GetJSON(ctx, CollectionsEndpoint, params, &decoded); err != nil {
		return nil, err
	}

	c.logger.Debug().Int("start", start).Int("returned", len(decoded.Collections)).Msg("Collections batch decoded")
	return decoded.Collections, nil
}

// FetchCollectionItemCount submits a zero-row search query scoped to the
// collection and returns the reported total match count. found is false when
// the response carries no numFound field. HTTP failures propagate unmodified.
func (c *Client) FetchCollectionItemCount(ctx context.Context, collectionID string) (count int, found bool, err error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf("%s:%q", membershipField, collectionID))
	params.Set("rows", "0")

	var decoded searchResponse
	if err := c.api.GetJSON(ctx, SearchEndpoint, params, &decoded); err != nil {
		return 0, false, err
	}

	if decoded.Response.NumFound == nil {
		return 0, false, nil
	}

	c.logger.Debug().Str("collection_id", collectionID).Int("count", *decoded.Response.NumFound).Msg("Item count fetched")
	return *decoded.Response.NumFound, true, nil
}
