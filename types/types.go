// Package types contains the shared result types for mailscore.
// This package does not import anything from other mailscore packages
// to avoid circular imports.
package types

// MXRecord is a single mail exchanger for a domain.
type MXRecord struct {
	Exchange string `json:"exchange"`
	Priority int    `json:"priority"`
}

// Checks holds the four scored sub-checks.
type Checks struct {
	Syntax        bool `json:"syntax"`
	MXRecords     bool `json:"mxRecords"`
	NotDisposable bool `json:"notDisposable"`
	NotRoleBased  bool `json:"notRoleBased"`
}

// Meta carries what the pipeline learned about the address.
// Local and Domain stay nil when the address failed before it was split.
type Meta struct {
	Local          *string    `json:"local"`
	Domain         *string    `json:"domain"`
	IsFreeProvider bool       `json:"isFreeProvider"`
	IsDisposable   bool       `json:"isDisposable"`
	IsRoleBased    bool       `json:"isRoleBased"`
	MXRecords      []MXRecord `json:"mxRecords"`
	Suggestion     *string    `json:"suggestion"`
}
