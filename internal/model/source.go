package model

// Protocol is a static catalog entry for a supported chat network.
type Protocol struct {
	Identifier string `json:"identifier" db:"identifier"`
	Name       string `json:"name"       db:"name"`
}

// Source is a concrete origin for an observed event: a protocol plus an
// optional server and channel. Corpus lines and quote/obit context are tagged
// with sources so every feature references origins the same way instead of
// inventing its own server/channel bookkeeping.
type Source struct {
	ID       int64   `json:"id"       db:"source_id"`
	Protocol string  `json:"protocol" db:"protocol"`
	Server   *string `json:"server"   db:"server"`
	Channel  *string `json:"channel"  db:"channel"`
}
