package model

// Token is an API token issued by the access-control service, authorizing
// one specific caller→target call. BlockCode identifies the destination the
// token was actually issued for; when the access-control service resolves an
// ambiguous destination to several blocks it returns one token per block.
type Token struct {
	APIToken  string `json:"apiToken"`
	BlockCode int    `json:"blockCode"`
}
