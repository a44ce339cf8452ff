package google

// DefaultOAuthScopes are the scopes requested by the authorization code flow.
//
// Gmail readonly covers listing, reading messages and threads; modify is
// needed to remove the UNREAD label. The profile scope lets /auth/me resolve
// a display name through the People API.
var DefaultOAuthScopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/userinfo.profile",
}
