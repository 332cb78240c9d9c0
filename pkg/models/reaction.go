package models

// Default reaction vocabulary. Deployments may override it in config; the
// set is fixed for the lifetime of the process.
const (
	ReactionSmack = "smack"
	ReactionCap   = "cap"
)

// DefaultReactionTypes returns the built-in reaction type set.
func DefaultReactionTypes() []string {
	return []string{ReactionSmack, ReactionCap}
}

// ReactionRecord is one reaction ledger row: the single active reaction a
// user holds on an item. Absence of a row means "no reaction".
type ReactionRecord struct {
	Item string `json:"item"`
	User string `json:"user"`
	Type string `json:"type"`
	TS   int64  `json:"ts"`
}

// ReportRecord is one report ledger row. Rows are unique per (user, item)
// and never deleted.
type ReportRecord struct {
	Item string `json:"item"`
	User string `json:"user"`
	TS   int64  `json:"ts"`
}
