package shared

const (
	// DefaultBoardID is used when no board id is supplied or sanitization
	// leaves nothing behind.
	DefaultBoardID = "public"

	// LegacyPublicKey is the storage key of the original public board. The
	// public board keeps writing here so existing data stays readable.
	LegacyPublicKey = "reflex:main"

	BoardKeyPrefix = "reflex:"

	MaxBoardIDLength      = 64
	MaxReferencesPerBoard = 10000
	MaxReferenceBytes     = 1 << 20

	MaxUploadBytes = 10 << 20

	MaxComponentNameLength = 64
)
