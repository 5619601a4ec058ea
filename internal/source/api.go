package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/nkarpov/newsflow/internal/model"
)

// APIAdapter queries a JSON news endpoint that accepts standard query
// parameters (q, category, country, language, pageSize) and responds with an
// article envelope. Commercial news APIs mostly follow this shape.
type APIAdapter struct {
	profile model.SourceProfile
	client  *Client
	apiKey  string
}

// apiEnvelope is the expected response body.
type apiEnvelope struct {
	Status   string             `json:"status,omitempty"`
	Articles []model.RawArticle `json:"articles"`
}

// NewAPIAdapter creates an adapter for the profile's API endpoint.
func NewAPIAdapter(profile model.SourceProfile, client *Client, apiKey string) *APIAdapter {
	return &APIAdapter{profile: profile, client: client, apiKey: apiKey}
}

func (a *APIAdapter) Name() string { return a.profile.Name }

func (a *APIAdapter) Profile() model.SourceProfile { return a.profile }

// Fetch queries the endpoint with the request filters applied server-side.
func (a *APIAdapter) Fetch(ctx context.Context, q Query) ([]model.RawArticle, error) {
	endpoint, err := url.Parse(a.profile.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("endpoint for %s: %w", a.profile.Name, err)
	}

	params := endpoint.Query()
	if q.Query != "" {
		params.Set("q", q.Query)
	}
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	if q.Country != "" {
		params.Set("country", q.Country)
	}
	if q.Language != "" {
		params.Set("language", q.Language)
	}
	if q.Limit > 0 {
		params.Set("pageSize", fmt.Sprintf("%d", q.Limit))
	}
	if a.apiKey != "" {
		params.Set("apiKey", a.apiKey)
	}
	endpoint.RawQuery = params.Encode()

	body, err := a.client.Get(ctx, endpoint.String())
	if err != nil {
		return nil, fmt.Errorf("fetch api %s: %w", a.profile.Name, err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode api %s: %w", a.profile.Name, err)
	}

	cred := a.profile.BaseCredibility
	raws := envelope.Articles
	for i := range raws {
		if raws[i].Source.Name == "" {
			raws[i].Source.Name = a.profile.Name
		}
		if raws[i].Source.Credibility == nil {
			raws[i].Source.Credibility = &cred
		}
		raws[i].Content = StripHTML(raws[i].Content)
	}
	return raws, nil
}
