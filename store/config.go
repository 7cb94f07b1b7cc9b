package store

// Config holds the table names for the roster collections.
type Config struct {
	// GuestTable holds main guest records.
	// Key: account_id (partition), id (sort).
	// Default: "roster_guests"
	GuestTable string

	// CompanionTable holds companion records attached to guests.
	// Key: account_id (partition), sk = "<guest_id>#<companion_id>" (sort),
	// so one prefix query returns a guest's companions in insertion order.
	// Default: "roster_companions"
	CompanionTable string

	// ViewTable holds saved view configurations.
	// Key: account_id (partition), name (sort). The sort key doubles as the
	// upsert conflict key: saving a view under an existing name replaces it.
	// Default: "roster_views"
	ViewTable string
}

// DefaultConfig returns the default table names.
func DefaultConfig() Config {
	return Config{
		GuestTable:     "roster_guests",
		CompanionTable: "roster_companions",
		ViewTable:      "roster_views",
	}
}

// validate fills in defaults for any unset table name.
func (c *Config) validate() {
	if c.GuestTable == "" {
		c.GuestTable = "roster_guests"
	}
	if c.CompanionTable == "" {
		c.CompanionTable = "roster_companions"
	}
	if c.ViewTable == "" {
		c.ViewTable = "roster_views"
	}
}
