package model

// GitHubUser is the slice of a GitHub user's public profile that we display
// next to a graduate. Field names follow GitHub's GraphQL schema so the
// frontend can read github_data.data.user.avatarUrl exactly as before.
//
// Bio and WebsiteURL are nullable in GitHub's schema, so they are pointers:
// a nil pointer encodes as JSON null rather than an empty string.
type GitHubUser struct {
	AvatarURL      string         `json:"avatarUrl"`
	Bio            *string        `json:"bio"`
	Email          string         `json:"email"`
	WebsiteURL     *string        `json:"websiteUrl"`
	SocialAccounts SocialAccounts `json:"socialAccounts"`
}

// SocialAccounts holds the first linked social account (if any).
type SocialAccounts struct {
	Nodes []SocialAccount `json:"nodes"`
}

type SocialAccount struct {
	URL string `json:"url"`
}

// GitHubData mirrors a GraphQL response envelope ({"data": {"user": ...}})
// with the graduate's id attached, so the client can join it back to db_data.
type GitHubData struct {
	Data GitHubDataUser `json:"data"`
	ID   int64          `json:"id"`
}

type GitHubDataUser struct {
	User *GitHubUser `json:"user"`
}

// GraduateProfile is one entry of the enriched listing. It only lives for the
// duration of a request; nothing here is persisted.
type GraduateProfile struct {
	DBData     Graduate   `json:"db_data"`
	GitHubData GitHubData `json:"github_data"`
}

// NewGraduateProfile pairs a stored graduate with the profile fetched for it.
func NewGraduateProfile(g Graduate, user *GitHubUser) GraduateProfile {
	return GraduateProfile{
		DBData: g,
		GitHubData: GitHubData{
			Data: GitHubDataUser{User: user},
			ID:   g.ID,
		},
	}
}
