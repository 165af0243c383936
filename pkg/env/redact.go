package env

import (
	"net/url"
	"strings"
)

// RedactToken masks a token, keeping its first and last four
// characters.
func RedactToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) +
		token[len(token)-4:]
}

// RedactURL masks the password of a URL's userinfo.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		return rawURL
	}
	if password, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), RedactToken(password))
	}
	return u.String()
}

// LooksLikeGitHubToken reports whether token carries a known
// GitHub token prefix.
func LooksLikeGitHubToken(token string) bool {
	for _, prefix := range []string{
		"ghp_", "gho_", "ghu_", "ghs_", "ghr_", "github_pat_",
	} {
		if strings.HasPrefix(token, prefix) {
			return true
		}
	}
	return false
}
