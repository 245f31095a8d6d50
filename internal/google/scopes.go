package google

// DefaultOAuthScopes are the Google OAuth scopes the assistant needs.
//
// The scopes provide access to:
//   - Google Calendar: full access (list and create events, free/busy queries)
//   - Gmail: send only
var DefaultOAuthScopes = []string{
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/gmail.send",
}
