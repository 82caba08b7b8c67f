package ir

// Version constants for the persisted snapshot schema and engine.
const (
	// SchemaVersion is the snapshot schema version recorded with every digest.
	SchemaVersion = "1"

	// EngineVersion is the delivery engine version passed to stylesheets.
	EngineVersion = "0.1.0"
)
