package common

const (
	// AuthorizationHeaderName is the HTTP header carrying the bearer credential.
	AuthorizationHeaderName = "Authorization"

	// BearerScheme prefixes the credential in AuthorizationHeaderName.
	BearerScheme = "Bearer"

	// TokenMetadataKey is the metadata key under which the credential is persisted.
	TokenMetadataKey = "token"

	// TokenSavedAtMetadataKey records when the credential was last written.
	TokenSavedAtMetadataKey = "token_saved_at"
)
