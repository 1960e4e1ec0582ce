package store

// Local persistence keys.
const (
	KeyBookmarks       = "bookmarks"
	KeyGroupOrder      = "groupOrder"
	KeyDeletedURLs     = "deletedUrls"
	KeyLastSyncTime    = "lastSyncTime"
	KeyAutoSyncEnabled = "autoSyncEnabled"
	KeyDeviceID        = "deviceId"
	KeyUser            = "user"
	KeyToken           = "token"
	KeyRefreshToken    = "refreshToken"
	KeyTokenExpiry     = "tokenExpiry"
)

// IdentityKeys are cleared on sign-out.
func IdentityKeys() []string {
	return []string{KeyUser, KeyToken, KeyRefreshToken, KeyTokenExpiry, KeyLastSyncTime}
}
