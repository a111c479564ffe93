package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shurcooL/graphql"
	"golang.org/x/oauth2"

	"github.com/sakif/graduate-showcase/internal/apperror"
	"github.com/sakif/graduate-showcase/internal/model"
)

// DefaultEndpoint is GitHub's public GraphQL API.
const DefaultEndpoint = "https://api.github.com/graphql"

// Client fetches public profile data from a GitHub GraphQL endpoint.
//
// AUTHENTICATION:
// The token is a static personal access token. oauth2.StaticTokenSource plus
// oauth2.NewClient gives us an *http.Client whose transport adds
// "Authorization: Bearer <token>" to every request. It is the same mechanism the
// OAuth flow uses, minus the code exchange.
//
// Every FetchProfile call is exactly one POST. There is no cache and no batching:
// callers that need several users call FetchProfile several times.
type Client struct {
	gql *graphql.Client
}

type clientOptions struct {
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*clientOptions)

// WithHTTPClient sets the base client whose transport carries the requests.
// The bearer-token transport is layered on top of it.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithTimeout bounds each request. Zero means no client-side limit; the
// request context still applies.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// NewClient creates a Client for the given endpoint and token.
func NewClient(endpoint, token string, opts ...Option) *Client {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	// oauth2 picks the base client up from the context it is built with.
	ctx := context.Background()
	if o.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	httpClient.Timeout = o.timeout

	return &Client{gql: graphql.NewClient(endpoint, httpClient)}
}

// profileQuery is rendered by shurcooL/graphql as:
//
//	query($login:String!){user(login: $login){avatarUrl(size: 256),bio,email,websiteUrl,socialAccounts(first: 1){nodes{url}}}}
type profileQuery struct {
	User *struct {
		AvatarURL      string  `graphql:"avatarUrl(size: 256)"`
		Bio            *string `graphql:"bio"`
		Email          string  `graphql:"email"`
		WebsiteURL     *string `graphql:"websiteUrl"`
		SocialAccounts struct {
			Nodes []struct {
				URL string `graphql:"url"`
			} `graphql:"nodes"`
		} `graphql:"socialAccounts(first: 1)"`
	} `graphql:"user(login: $login)"`
}

// FetchProfile runs the profile query for one login.
//
// Transport errors, non-200 responses, undecodable bodies and GraphQL-level
// errors all come back as apperror.ErrUpstream. A null user (GitHub answers
// that way for unknown logins) is reported the same way.
func (c *Client) FetchProfile(ctx context.Context, login string) (*model.GitHubUser, error) {
	var q profileQuery
	variables := map[string]interface{}{
		"login": graphql.String(login),
	}

	if err := c.gql.Query(ctx, &q, variables); err != nil {
		return nil, apperror.Upstream("github", fmt.Errorf("querying user %q: %w", login, err))
	}
	if q.User == nil {
		return nil, apperror.Upstream("github", fmt.Errorf("user %q not found", login))
	}

	user := &model.GitHubUser{
		AvatarURL:  q.User.AvatarURL,
		Bio:        q.User.Bio,
		Email:      q.User.Email,
		WebsiteURL: q.User.WebsiteURL,
		SocialAccounts: model.SocialAccounts{
			Nodes: make([]model.SocialAccount, 0, len(q.User.SocialAccounts.Nodes)),
		},
	}
	for _, n := range q.User.SocialAccounts.Nodes {
		user.SocialAccounts.Nodes = append(user.SocialAccounts.Nodes, model.SocialAccount{URL: n.URL})
	}

	return user, nil
}
