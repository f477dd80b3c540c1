package usecase

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"universe_backend/internal/feature/widgets/domain"
	"universe_backend/internal/feature/widgets/domain/entity"
)

// subredditPattern follows Reddit's naming rules.
var subredditPattern = regexp.MustCompile(`^[A-Za-z0-9_]{2,21}$`)

// IndexKey builds the payload key for an index series timespan.
func IndexKey(timespan string) string {
	return entity.KindIndex + ":" + strings.ToUpper(timespan)
}

// SocialKey builds the payload key for a subreddit's top post.
func SocialKey(subreddit string) string {
	return entity.KindSocial + ":" + strings.ToLower(subreddit)
}

// ParseKey splits key into kind and parameter and validates the parameter.
func ParseKey(key string) (kind, param string, err error) {
	kind, param, ok := strings.Cut(key, ":")
	if !ok || param == "" {
		return "", "", fmt.Errorf("%w: %q", domain.ErrInvalidKey, key)
	}
	switch kind {
	case entity.KindIndex:
		if !slices.Contains(entity.Timespans, param) {
			return "", "", fmt.Errorf("%w: unknown timespan %q", domain.ErrInvalidKey, param)
		}
	case entity.KindSocial:
		if !subredditPattern.MatchString(param) {
			return "", "", fmt.Errorf("%w: invalid subreddit %q", domain.ErrInvalidKey, param)
		}
	default:
		return "", "", fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidKey, kind)
	}
	return kind, param, nil
}
