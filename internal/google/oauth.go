package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"runtime"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrNoToken is returned when no OAuth token is stored for an account.
var ErrNoToken = errors.New("no Google OAuth token found")

// ErrNoClientCredentials is returned when neither environment variables nor a
// credentials file provide an OAuth client.
var ErrNoClientCredentials = errors.New("no Google OAuth client credentials configured")

const (
	cacheDirName = "concierge"

	// redirectURL is the loopback redirect for installed apps. The user copies
	// the "code" query parameter from the browser address bar.
	redirectURL = "http://localhost"

	defaultCredentialsFile = "credentials.json"
)

var accountNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// validateAccountName ensures an account name is safe to embed in a file name.
func validateAccountName(account string) error {
	if account == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	if !accountNamePattern.MatchString(account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, '-' and '_' are allowed", account)
	}
	return nil
}

// getTokenFilePath returns the token file for an account.
func getTokenFilePath(account string) string {
	return filepath.Join(userCacheDir(), cacheDirName, "google-"+account+".token")
}

// HasTokenForAccount checks if an OAuth token file exists for the specified account
func HasTokenForAccount(account string) bool {
	if err := validateAccountName(account); err != nil {
		return false
	}
	_, err := os.Stat(getTokenFilePath(account))
	return err == nil
}

// GetOAuthConfig returns the OAuth2 configuration for the Calendar and Gmail APIs.
// Client credentials come from GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET, falling
// back to the JSON file named by CREDENTIALS_FILE (default credentials.json).
func GetOAuthConfig() (*oauth2.Config, error) {
	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirectURL,
			Scopes:       DefaultOAuthScopes,
		}, nil
	}

	credentialsFile := os.Getenv("CREDENTIALS_FILE")
	if credentialsFile == "" {
		credentialsFile = defaultCredentialsFile
	}
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET or provide %s", ErrNoClientCredentials, credentialsFile)
		}
		return nil, fmt.Errorf("failed to read credentials file %s: %w", credentialsFile, err)
	}

	conf, err := google.ConfigFromJSON(data, DefaultOAuthScopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %s: %w", credentialsFile, err)
	}
	conf.RedirectURL = redirectURL
	return conf, nil
}

// GetAuthURLForAccount returns the OAuth URL for user authorization.
// Returns an empty string when no client credentials are configured.
func GetAuthURLForAccount(account string) string {
	conf, err := GetOAuthConfig()
	if err != nil {
		return ""
	}
	return conf.AuthCodeURL("state-"+account, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// SaveTokenForAccount exchanges an authorization code for tokens and saves them.
func SaveTokenForAccount(ctx context.Context, account, authCode string) error {
	if err := validateAccountName(account); err != nil {
		return err
	}

	conf, err := GetOAuthConfig()
	if err != nil {
		return err
	}

	token, err := conf.Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}

	return writeToken(account, token)
}

func writeToken(account string, token *oauth2.Token) error {
	tokenFile := getTokenFilePath(account)
	if err := os.MkdirAll(filepath.Dir(tokenFile), 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(tokenFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

func readToken(account string) (*oauth2.Token, error) {
	if err := validateAccountName(account); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(getTokenFilePath(account))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w for account %s", ErrNoToken, account)
		}
		return nil, fmt.Errorf("failed to read token for account %s: %w", account, err)
	}

	token := &oauth2.Token{}
	if err := json.Unmarshal(data, token); err != nil {
		return nil, fmt.Errorf("invalid token file for account %s: %w", account, err)
	}
	return token, nil
}

// GetHTTPClientForAccount returns an HTTP client that authenticates requests
// with the account's token, refreshing it as needed.
// The client is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors
func GetHTTPClientForAccount(ctx context.Context, account string, provider TokenProvider) (*http.Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("token provider cannot be nil")
	}

	token, err := provider.GetTokenForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get Google OAuth token for account %s: %w", account, err)
	}

	conf, err := GetOAuthConfig()
	if err != nil {
		return nil, err
	}

	client := oauth2.NewClient(ctx, conf.TokenSource(ctx, token))

	// Force HTTP/1.1 by disabling HTTP/2
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			ForceAttemptHTTP2: false,
		}
	}

	return client, nil
}

// GetAuthenticationErrorMessage returns the user-facing instructions shown
// when an account has no usable OAuth token.
func GetAuthenticationErrorMessage(account string) string {
	authURL := GetAuthURLForAccount(account)
	if authURL == "" {
		return fmt.Sprintf(`Google OAuth client credentials are not configured, so account "%s" cannot be authorized.

Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET, or place a credentials.json file
downloaded from the Google Cloud console next to the binary, then run:

   concierge auth --account %s`, account, account)
	}

	return fmt.Sprintf(`Google OAuth token not found for account "%s". To authorize access:

1. Visit this URL in your browser:
   %s

2. Sign in with your Google account
3. Grant access to Google Calendar and Gmail (send only)
4. Copy the "code" parameter from the address bar after the redirect

5. Run: concierge auth --account %s --code <code>

Note: You only need to authorize once. The tokens will be automatically refreshed.`, account, authURL, account)
}

func userCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir
	}
	if runtime.GOOS == "windows" {
		for _, ev := range []string{"TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
	}
	slog.Warn("falling back to home directory for token cache")
	return filepath.Join(os.Getenv("HOME"), ".cache")
}
