package ir

// Version constants recorded with every journaled session.
const (
	// IRVersion is the value model schema version.
	IRVersion = "1"

	// EngineVersion is the statebox engine version.
	EngineVersion = "0.1.0"
)
