// Package i18n holds the message catalogs and language negotiation.
//
// Catalogs are YAML files embedded at build time, one per language, with
// nested keys flattened to dotted ids ("result.yes", "field.MinTemp"). English
// is the reference catalog: every other catalog must define the same ids.
package i18n

import (
	"context"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v2"

	"raincast/internal/types"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Supported languages. English comes first and is the reference catalog.
var (
	English   = language.English
	Ukrainian = language.Ukrainian
)

// Bundle is the immutable set of loaded catalogs.
type Bundle struct {
	tags     []language.Tag
	catalogs map[language.Tag]map[string]string
	matcher  language.Matcher
	fallback language.Tag
}

// NewBundle loads the embedded catalogs. defaultLang is used when nothing
// the client asks for is supported; it must be one of the loaded languages.
func NewBundle(defaultLang string) (*Bundle, error) {
	catalogs, err := loadCatalogs()
	if err != nil {
		return nil, err
	}

	fallback := English
	if defaultLang != "" {
		tag, err := language.Parse(defaultLang)
		if err != nil {
			return nil, fmt.Errorf("i18n: parse default language %q: %w", defaultLang, err)
		}
		if _, ok := catalogs[tag]; !ok {
			return nil, fmt.Errorf("i18n: default language %q has no catalog", defaultLang)
		}
		fallback = tag
	}

	// The fallback goes first so the matcher returns it when no preference
	// matches.
	tags := []language.Tag{fallback}
	for _, t := range sortedTags(catalogs) {
		if t != fallback {
			tags = append(tags, t)
		}
	}

	return &Bundle{
		tags:     tags,
		catalogs: catalogs,
		matcher:  language.NewMatcher(tags),
		fallback: fallback,
	}, nil
}

// Languages returns the supported languages, default first.
func (b *Bundle) Languages() []language.Tag {
	return append([]language.Tag(nil), b.tags...)
}

// Default returns the fallback language.
func (b *Bundle) Default() language.Tag {
	return b.fallback
}

// Negotiate picks the display language. An explicit choice (the lang query
// parameter or CLI flag) wins over the Accept-Language header; anything
// unsupported falls back to the default.
func (b *Bundle) Negotiate(explicit, acceptLanguage string) language.Tag {
	var prefs []language.Tag
	if explicit != "" {
		if tag, err := language.Parse(explicit); err == nil {
			if _, idx, conf := b.matcher.Match(tag); conf != language.No {
				return b.tags[idx]
			}
		}
	}
	if acceptLanguage != "" {
		if tags, _, err := language.ParseAcceptLanguage(acceptLanguage); err == nil {
			prefs = tags
		}
	}
	if len(prefs) == 0 {
		return b.fallback
	}
	_, idx, conf := b.matcher.Match(prefs...)
	if conf == language.No {
		return b.fallback
	}
	return b.tags[idx]
}

// Localizer returns the message lookup for one language.
func (b *Bundle) Localizer(tag language.Tag) *Localizer {
	msgs, ok := b.catalogs[tag]
	if !ok {
		tag = b.fallback
		msgs = b.catalogs[tag]
	}
	return &Localizer{
		tag:      tag,
		messages: msgs,
		fallback: b.catalogs[English],
		printer:  message.NewPrinter(tag),
	}
}

// FromContext returns the localizer for the language negotiated earlier in
// the request, or the default language when none was.
func (b *Bundle) FromContext(ctx context.Context) *Localizer {
	tag, err := language.Parse(types.GetLanguage(ctx))
	if err != nil {
		return b.Localizer(b.fallback)
	}
	return b.Localizer(tag)
}

// MissingKeys reports, per language, the reference ids absent from that
// catalog.
func (b *Bundle) MissingKeys() map[string][]string {
	ref := b.catalogs[English]
	out := map[string][]string{}
	for tag, msgs := range b.catalogs {
		if tag == English {
			continue
		}
		for key := range ref {
			if _, ok := msgs[key]; !ok {
				out[tag.String()] = append(out[tag.String()], key)
			}
		}
		sort.Strings(out[tag.String()])
	}
	return out
}

// Localizer translates message ids for one language.
type Localizer struct {
	tag      language.Tag
	messages map[string]string
	fallback map[string]string
	printer  *message.Printer
}

// Lang returns the BCP 47 tag of this localizer.
func (l *Localizer) Lang() string {
	return l.tag.String()
}

// T returns the message for key, the English message if this catalog lacks
// it, or the key itself.
func (l *Localizer) T(key string) string {
	if m, ok := l.messages[key]; ok {
		return m
	}
	if m, ok := l.fallback[key]; ok {
		return m
	}
	return key
}

// FieldLabel returns the display label of an input column.
func (l *Localizer) FieldLabel(name string) string {
	return l.T("field." + name)
}

// YesNo returns the localized answer for a binary field.
func (l *Localizer) YesNo(yes bool) string {
	if yes {
		return l.T("answer.yes")
	}
	return l.T("answer.no")
}

// Percent formats a probability in [0,1] as a percentage with one decimal,
// using the language's number formatting.
func (l *Localizer) Percent(p float64) string {
	return l.printer.Sprintf("%.1f%%", p*100)
}

func loadCatalogs() (map[language.Tag]map[string]string, error) {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("i18n: read locales: %w", err)
	}

	catalogs := make(map[language.Tag]map[string]string, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || path.Ext(name) != ".yaml" {
			continue
		}
		tag, err := language.Parse(strings.TrimSuffix(name, ".yaml"))
		if err != nil {
			return nil, fmt.Errorf("i18n: catalog %s: %w", name, err)
		}

		raw, err := localeFS.ReadFile(path.Join("locales", name))
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", name, err)
		}
		var tree map[string]any
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return nil, fmt.Errorf("i18n: parse %s: %w", name, err)
		}

		msgs := map[string]string{}
		if err := flatten("", tree, msgs); err != nil {
			return nil, fmt.Errorf("i18n: %s: %w", name, err)
		}
		catalogs[tag] = msgs
	}

	if _, ok := catalogs[English]; !ok {
		return nil, fmt.Errorf("i18n: reference catalog en.yaml missing")
	}
	return catalogs, nil
}

// flatten walks the YAML tree into dotted keys. yaml.v2 decodes nested maps
// as map[interface{}]interface{}.
func flatten(prefix string, node any, out map[string]string) error {
	join := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "." + k
	}

	switch n := node.(type) {
	case map[string]any:
		for k, v := range n {
			if err := flatten(join(k), v, out); err != nil {
				return err
			}
		}
	case map[any]any:
		for k, v := range n {
			ks, ok := k.(string)
			if !ok {
				return fmt.Errorf("key %v under %q is not a string", k, prefix)
			}
			if err := flatten(join(ks), v, out); err != nil {
				return err
			}
		}
	case string:
		out[prefix] = n
	default:
		return fmt.Errorf("value of %q must be a string, got %T", prefix, node)
	}
	return nil
}

func sortedTags(catalogs map[language.Tag]map[string]string) []language.Tag {
	tags := make([]language.Tag, 0, len(catalogs))
	for t := range catalogs {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].String() < tags[j].String() })
	return tags
}
