package gitrepo

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	httpProtocolPrefixConstant           = "http://"
	httpsProtocolPrefixConstant          = "https://"
	gitUserPrefixConstant                = "git@"
	pathSeparatorConstant                = "/"
	gitSuffixConstant                    = ".git"
	githubHostConstant                   = "github.com"
	tokenURLTemplateConstant             = "https://%s:%s@%s/%s.git"
	githubSSHURLTemplateConstant         = "git@github.com:%s/%s.git"
	baseURLTemplateConstant              = "%s/%s.git"
	unsupportedAuthMethodTemplate        = "%q: %w"
	locatorErrorTemplateConstant         = "%s: %w"
	baseURLRequiredMessageConstant       = "base url required to resolve short repository names"
	repositoryIdentifierMessageConstant  = "repository identifier must not be empty"
	unsupportedAuthMethodMessageConstant = "unsupported git auth method"
	tokenRequiredMessageConstant         = "token auth requires a token"
	repositoryNameMessageConstant        = "repository directory name must stay inside the work directory"
	currentDirectoryNameConstant         = "."
)

// ErrBaseURLRequired indicates a short repository name with no base URL configured.
var ErrBaseURLRequired = errors.New(baseURLRequiredMessageConstant)

// ErrRepositoryIdentifierRequired indicates an empty repository list entry.
var ErrRepositoryIdentifierRequired = errors.New(repositoryIdentifierMessageConstant)

// ErrUnsupportedAuthMethod indicates an auth method outside none, token, and ssh.
var ErrUnsupportedAuthMethod = errors.New(unsupportedAuthMethodMessageConstant)

// ErrTokenRequired indicates token auth without a token.
var ErrTokenRequired = errors.New(tokenRequiredMessageConstant)

// ErrRepositoryNameInvalid indicates an identifier whose directory name would escape the work directory.
var ErrRepositoryNameInvalid = errors.New(repositoryNameMessageConstant)

// AuthMethod selects how short repository names are turned into clone URLs.
type AuthMethod string

// Supported auth methods.
const (
	AuthMethodNone  AuthMethod = "none"
	AuthMethodToken AuthMethod = "token"
	AuthMethodSSH   AuthMethod = "ssh"
)

// ParseAuthMethod normalizes an auth method name. An empty value means none.
func ParseAuthMethod(raw string) (AuthMethod, error) {
	normalized := AuthMethod(strings.ToLower(strings.TrimSpace(raw)))
	switch normalized {
	case "":
		return AuthMethodNone, nil
	case AuthMethodNone, AuthMethodToken, AuthMethodSSH:
		return normalized, nil
	default:
		return "", fmt.Errorf(unsupportedAuthMethodTemplate, raw, ErrUnsupportedAuthMethod)
	}
}

// RepositoryLocator resolves repository list entries into clone URLs and directory names.
type RepositoryLocator struct {
	BaseURL    string
	AuthMethod AuthMethod
	Username   string
	Token      string
}

// Validate checks that the auth settings are usable.
func (locator RepositoryLocator) Validate() error {
	if _, parseError := ParseAuthMethod(string(locator.AuthMethod)); parseError != nil {
		return parseError
	}
	if locator.AuthMethod == AuthMethodToken && len(strings.TrimSpace(locator.Token)) == 0 {
		return ErrTokenRequired
	}
	return nil
}

// ResolveURL returns the clone URL for a repository identifier. Full URLs pass through unchanged.
func (locator RepositoryLocator) ResolveURL(identifier string) (string, error) {
	trimmedIdentifier := strings.TrimSpace(identifier)
	if len(trimmedIdentifier) == 0 {
		return "", ErrRepositoryIdentifierRequired
	}
	if IsFullURL(trimmedIdentifier) {
		return trimmedIdentifier, nil
	}

	baseURL := strings.TrimSuffix(strings.TrimSpace(locator.BaseURL), pathSeparatorConstant)
	if len(baseURL) == 0 {
		return "", fmt.Errorf(locatorErrorTemplateConstant, trimmedIdentifier, ErrBaseURLRequired)
	}
	repositoryName := strings.TrimSuffix(trimmedIdentifier, gitSuffixConstant)

	switch locator.AuthMethod {
	case AuthMethodToken:
		hostAndPath := strings.TrimPrefix(baseURL, httpsProtocolPrefixConstant)
		return fmt.Sprintf(tokenURLTemplateConstant, locator.Username, locator.Token, hostAndPath, repositoryName), nil
	case AuthMethodSSH:
		if strings.Contains(baseURL, githubHostConstant) {
			organization := baseURL[strings.LastIndex(baseURL, pathSeparatorConstant)+1:]
			return fmt.Sprintf(githubSSHURLTemplateConstant, organization, repositoryName), nil
		}
		return fmt.Sprintf(baseURLTemplateConstant, baseURL, repositoryName), nil
	default:
		return fmt.Sprintf(baseURLTemplateConstant, baseURL, repositoryName), nil
	}
}

// RepositoryName derives the local directory name for a repository identifier.
// Names that are empty, absolute, or climb out of the work directory are rejected.
func RepositoryName(identifier string) (string, error) {
	trimmedIdentifier := strings.TrimSpace(identifier)
	if IsFullURL(trimmedIdentifier) {
		trimmedIdentifier = strings.TrimRight(trimmedIdentifier, pathSeparatorConstant)
		trimmedIdentifier = trimmedIdentifier[strings.LastIndexAny(trimmedIdentifier, "/:")+1:]
	}
	repositoryName := strings.TrimSuffix(trimmedIdentifier, gitSuffixConstant)
	if !filepath.IsLocal(repositoryName) || filepath.Clean(repositoryName) == currentDirectoryNameConstant {
		return repositoryName, fmt.Errorf(locatorErrorTemplateConstant, identifier, ErrRepositoryNameInvalid)
	}
	return repositoryName, nil
}

// IsFullURL reports whether the identifier is already a clone URL.
func IsFullURL(identifier string) bool {
	return strings.HasPrefix(identifier, httpProtocolPrefixConstant) ||
		strings.HasPrefix(identifier, httpsProtocolPrefixConstant) ||
		strings.HasPrefix(identifier, gitUserPrefixConstant)
}
