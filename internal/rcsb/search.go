package rcsb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type searchParameters struct {
	Attribute string      `json:"attribute,omitempty"`
	Operator  string      `json:"operator,omitempty"`
	Value     interface{} `json:"value"`
}

type searchNode struct {
	Type            string            `json:"type"`
	Service         string            `json:"service,omitempty"`
	LogicalOperator string            `json:"logical_operator,omitempty"`
	Parameters      *searchParameters `json:"parameters,omitempty"`
	Nodes           []searchNode      `json:"nodes,omitempty"`
}

type searchRequest struct {
	Query          searchNode `json:"query"`
	ReturnType     string     `json:"return_type"`
	RequestOptions struct {
		Paginate struct {
			Start int `json:"start"`
			Rows  int `json:"rows"`
		} `json:"paginate"`
	} `json:"request_options"`
}

type searchResponse struct {
	ResultSet []struct {
		Identifier string  `json:"identifier"`
		Score      float64 `json:"score"`
	} `json:"result_set"`
}

// buildSearchRequest ORs title, identifier and full-text clauses together
// with a "has polymer entity instances" clause.
func buildSearchRequest(query string, rows int) searchRequest {
	terminal := func(service string, p *searchParameters) searchNode {
		return searchNode{Type: "terminal", Service: service, Parameters: p}
	}
	var req searchRequest
	req.Query = searchNode{
		Type:            "group",
		LogicalOperator: "or",
		Nodes: []searchNode{
			terminal("text", &searchParameters{Attribute: "struct.title", Operator: "contains_words", Value: query}),
			terminal("text", &searchParameters{Attribute: "rcsb_id", Operator: "exact_match", Value: strings.ToUpper(query)}),
			terminal("full_text", &searchParameters{Value: query}),
			terminal("text", &searchParameters{
				Attribute: "rcsb_entry_info.deposited_polymer_entity_instance_count",
				Operator:  "greater",
				Value:     0,
			}),
		},
	}
	req.ReturnType = "entry"
	req.RequestOptions.Paginate.Rows = rows
	return req
}

// Search runs a full-text query and returns matching entry identifiers in
// rank order.
func (c *Client) Search(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	payload, err := json.Marshal(buildSearchRequest(query, c.cfg.Rows))
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}

	url := c.cfg.SearchURL + "/rcsbsearch/v2/query"
	body, err := c.do(ctx, http.MethodPost, url, payload)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	// The search service answers 204 with an empty body when nothing matches.
	if len(body) == 0 {
		return nil, nil
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &DataShapeError{URL: url, Err: err}
	}
	ids := make([]string, 0, len(resp.ResultSet))
	for _, r := range resp.ResultSet {
		if r.Identifier != "" {
			ids = append(ids, r.Identifier)
		}
	}
	return ids, nil
}
