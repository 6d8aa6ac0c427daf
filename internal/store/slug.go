package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/text/unicode/norm"
)

// Tables that carry a unique slug column
const (
	tableCategories  = "categories"
	tableProducts    = "products"
	tableCollections = "collections"
)

const maxSlugAttempts = 1000

var slugSeparator = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a display name into a URL-safe slug: accents are
// folded to ASCII, everything is lowercased and every run of characters
// other than letters and digits collapses to a single hyphen.
func Slugify(value string) string {
	decomposed := norm.NFKD.String(value)

	var b strings.Builder
	for _, r := range decomposed {
		if r < 128 {
			b.WriteRune(r)
		}
	}

	s := slugSeparator.ReplaceAllString(strings.ToLower(b.String()), "-")
	return strings.Trim(s, "-")
}

// uniqueSlug returns base, or base-2, base-3, ... whichever is the first
// not taken by another row of table. excludeID is the id of the row being
// updated, 0 for inserts.
func uniqueSlug(ctx context.Context, q sqlx.QueryerContext, table, base string, excludeID int64) (string, error) {
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE slug = $1 AND id <> $2)", table)

	for counter := 1; counter <= maxSlugAttempts; counter++ {
		candidate := base
		if counter > 1 {
			candidate = fmt.Sprintf("%s-%d", base, counter)
		}

		var taken bool
		if err := sqlx.GetContext(ctx, q, &taken, query, candidate, excludeID); err != nil {
			return "", fmt.Errorf("failed to check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no free slug for %q after %d attempts", base, maxSlugAttempts)
}

// slugBase derives the slug base from a name, falling back when the name
// has no usable characters
func slugBase(name, fallback string) string {
	if s := Slugify(name); s != "" {
		return s
	}
	return fallback
}
