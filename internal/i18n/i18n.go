// ABOUTME: Console language selection backed by the credential store
// ABOUTME: Saved preference wins, then the environment's locale, then English

package i18n

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/2389/tso-console/internal/kv"
)

// KeyLanguage is the credential store key holding the saved preference
const KeyLanguage = "language"

// ErrUnsupportedLanguage is returned by SetLanguage for tags outside Supported()
var ErrUnsupportedLanguage = errors.New("unsupported language")

var supportedTags = []language.Tag{
	language.English,
	language.MustParse("zh-CN"),
	language.Spanish,
	language.French,
	language.German,
	language.Japanese,
}

var chinese = supportedTags[1]

var tagMatcher = language.NewMatcher(supportedTags)
var supportedTagSet = make(map[string]language.Tag, len(supportedTags))

func init() {
	for _, tag := range supportedTags {
		supportedTagSet[tag.String()] = tag
	}
}

// Supported returns the list of supported language tags.
func Supported() []language.Tag {
	tags := make([]language.Tag, len(supportedTags))
	copy(tags, supportedTags)
	return tags
}

// Default returns the fallback language tag.
func Default() language.Tag {
	return language.English
}

// Resolve picks the console language. A saved supported preference wins.
// Otherwise preferred is negotiated against Supported(); any Chinese variant maps to zh-CN.
// Store errors are treated as no saved preference.
func Resolve(ctx context.Context, store kv.Store, preferred string) language.Tag {
	if store != nil {
		if saved, ok, err := store.Get(ctx, KeyLanguage); err == nil && ok {
			if tag, ok := parseTag(saved); ok {
				return tag
			}
		}
	}
	return Negotiate(preferred)
}

// Negotiate maps an Accept-Language list or a POSIX locale such as "zh_TW.UTF-8"
// onto a supported tag.
func Negotiate(preferred string) language.Tag {
	preferred = normalizeLocale(preferred)
	if preferred == "" {
		return Default()
	}

	tags, _, err := language.ParseAcceptLanguage(preferred)
	if err != nil || len(tags) == 0 {
		return Default()
	}

	if base, _ := tags[0].Base(); base.String() == "zh" {
		return chinese
	}

	_, idx, conf := tagMatcher.Match(tags...)
	if conf == language.No {
		return Default()
	}
	return supportedTags[idx]
}

// SetLanguage saves value as the preference after checking it is supported.
func SetLanguage(ctx context.Context, store kv.Store, value string) (language.Tag, error) {
	tag, ok := parseTag(value)
	if !ok {
		return language.Tag{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, value)
	}
	if err := store.Set(ctx, KeyLanguage, tag.String()); err != nil {
		return language.Tag{}, fmt.Errorf("saving language: %w", err)
	}
	return tag, nil
}

func parseTag(value string) (language.Tag, bool) {
	parsed, err := language.Parse(strings.TrimSpace(value))
	if err != nil {
		return language.Tag{}, false
	}
	if tag, ok := supportedTagSet[parsed.String()]; ok {
		return tag, true
	}
	return language.Tag{}, false
}

// normalizeLocale turns "zh_CN.UTF-8@euro" into "zh-CN". C and POSIX mean no preference.
func normalizeLocale(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".@"); i >= 0 && !strings.Contains(s, ",") {
		s = s[:i]
	}
	if s == "C" || s == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(s, "_", "-")
}
