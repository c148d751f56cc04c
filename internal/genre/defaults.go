package genre

// Genre is one entry in the canonical taxonomy.
type Genre struct {
	Name string
	Slug string
}

// Canonical is the flat genre taxonomy the catalog accepts. Each book
// carries exactly one genre slug; anything else is normalized toward
// this list via the alias table.
var Canonical = []Genre{
	{Name: "Fiction", Slug: "fiction"},
	{Name: "Literary Fiction", Slug: "literary-fiction"},
	{Name: "Classics", Slug: "classics"},
	{Name: "Science Fiction", Slug: "science-fiction"},
	{Name: "Fantasy", Slug: "fantasy"},
	{Name: "Mystery", Slug: "mystery"},
	{Name: "Thriller", Slug: "thriller"},
	{Name: "Horror", Slug: "horror"},
	{Name: "Romance", Slug: "romance"},
	{Name: "Historical Fiction", Slug: "historical-fiction"},
	{Name: "Adventure", Slug: "adventure"},
	{Name: "Humor", Slug: "humor"},
	{Name: "Western", Slug: "western"},
	{Name: "Short Stories", Slug: "short-stories"},
	{Name: "Poetry", Slug: "poetry"},
	{Name: "Drama", Slug: "drama"},
	{Name: "Graphic Novel", Slug: "graphic-novel"},
	{Name: "Young Adult", Slug: "young-adult"},
	{Name: "Children's", Slug: "childrens"},
	{Name: "Non-Fiction", Slug: "non-fiction"},
	{Name: "Biography", Slug: "biography"},
	{Name: "Memoir", Slug: "memoir"},
	{Name: "History", Slug: "history"},
	{Name: "True Crime", Slug: "true-crime"},
	{Name: "Science", Slug: "science"},
	{Name: "Nature", Slug: "nature"},
	{Name: "Technology", Slug: "technology"},
	{Name: "Philosophy", Slug: "philosophy"},
	{Name: "Psychology", Slug: "psychology"},
	{Name: "Self-Help", Slug: "self-help"},
	{Name: "Business", Slug: "business"},
	{Name: "Economics", Slug: "economics"},
	{Name: "Politics", Slug: "politics"},
	{Name: "Religion", Slug: "religion"},
	{Name: "Art", Slug: "art"},
	{Name: "Music", Slug: "music"},
	{Name: "Travel", Slug: "travel"},
	{Name: "Cooking", Slug: "cooking"},
	{Name: "Health", Slug: "health"},
	{Name: "Education", Slug: "education"},
	{Name: "Reference", Slug: "reference"},
}

var bySlug = func() map[string]Genre {
	m := make(map[string]Genre, len(Canonical))
	for _, g := range Canonical {
		m[g.Slug] = g
	}
	return m
}()

// IsCanonical reports whether slug is part of the taxonomy.
func IsCanonical(slug string) bool {
	_, ok := bySlug[slug]
	return ok
}

// DisplayName returns the human-readable name for a canonical slug,
// or the slug itself when it is not in the taxonomy.
func DisplayName(slug string) string {
	if g, ok := bySlug[slug]; ok {
		return g.Name
	}
	return slug
}

// Names lists the display names of the whole taxonomy, in catalog order.
func Names() []string {
	names := make([]string, len(Canonical))
	for i, g := range Canonical {
		names[i] = g.Name
	}
	return names
}

// Slugs lists the canonical slugs, in catalog order.
func Slugs() []string {
	slugs := make([]string, len(Canonical))
	for i, g := range Canonical {
		slugs[i] = g.Slug
	}
	return slugs
}
