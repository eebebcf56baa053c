package catalog

import (
	"fmt"
	"strings"
)

// Source names the external card API a candidate came from.
type Source string

const (
	SourceScryfall Source = "scryfall"
	SourcePokemon  Source = "pokemon"
	SourceYugioh   Source = "yugioh"
)

// DefaultSource is assumed for candidates with a missing or unknown tag.
const DefaultSource = SourceScryfall

// CategoryInfo is the catalog category a source's cards are filed under.
type CategoryInfo struct {
	Slug string
	Name string
}

var sourceCategories = map[Source]CategoryInfo{
	SourceScryfall: {Slug: "mtg", Name: "Magic: The Gathering"},
	SourcePokemon:  {Slug: "pokemon", Name: "Pokémon"},
	SourceYugioh:   {Slug: "yugioh", Name: "Yu-Gi-Oh!"},
}

// Sources lists the known sources in a stable order.
func Sources() []Source {
	return []Source{SourceScryfall, SourcePokemon, SourceYugioh}
}

// ParseSource maps a raw tag to a known source. ok is false when the tag
// was not recognised and DefaultSource was used.
func ParseSource(tag string) (source Source, ok bool) {
	s := Source(strings.ToLower(strings.TrimSpace(tag)))
	if _, known := sourceCategories[s]; known {
		return s, true
	}
	return DefaultSource, false
}

// CategoryFor returns the category a source files into.
func CategoryFor(source Source) CategoryInfo {
	if info, ok := sourceCategories[source]; ok {
		return info
	}
	return sourceCategories[DefaultSource]
}

// ValidateSources checks the source table once at startup: every source
// needs a slug and a display name, slugs are distinct and the default is
// present.
func ValidateSources() error {
	if len(sourceCategories) != len(Sources()) {
		return fmt.Errorf("source table has %d entries, expected %d", len(sourceCategories), len(Sources()))
	}

	if _, ok := sourceCategories[DefaultSource]; !ok {
		return fmt.Errorf("default source %q has no category", DefaultSource)
	}

	seen := make(map[string]Source)
	for _, source := range Sources() {
		info, ok := sourceCategories[source]
		if !ok {
			return fmt.Errorf("source %q has no category", source)
		}
		if info.Slug == "" || info.Name == "" {
			return fmt.Errorf("source %q has an incomplete category", source)
		}
		if other, dup := seen[info.Slug]; dup {
			return fmt.Errorf("sources %q and %q share category slug %q", other, source, info.Slug)
		}
		seen[info.Slug] = source
	}

	return nil
}
