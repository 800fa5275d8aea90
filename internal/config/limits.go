package config

const (
	// MaxNameLength is the maximum length for file and folder names.
	// Fits PostgreSQL VARCHAR(255).
	MaxNameLength = 255

	// MaxUploadBytes is the default upload ceiling, matching the Bot API
	// sendDocument limit for bots.
	MaxUploadBytes = 50 << 20

	// MaxJSONBodyBytes bounds non-upload request bodies.
	MaxJSONBodyBytes = 1 << 20
)
