package genre

// aliases maps common labels and abbreviations to canonical slugs.
// Keys are slugified forms, so lookups happen after Slugify.
var aliases = map[string]string{
	// Science fiction shorthand
	"sci-fi":      "science-fiction",
	"scifi":       "science-fiction",
	"sf":          "science-fiction",
	"speculative": "science-fiction",

	// Fantasy subgenres collapse into fantasy
	"epic-fantasy":      "fantasy",
	"high-fantasy":      "fantasy",
	"urban-fantasy":     "fantasy",
	"dark-fantasy":      "fantasy",
	"sword-and-sorcery": "fantasy",

	// Crime and detection
	"crime":            "mystery",
	"crime-fiction":    "mystery",
	"detective":        "mystery",
	"whodunit":         "mystery",
	"cozy-mystery":     "mystery",
	"mystery-thriller": "mystery",
	"suspense":         "thriller",

	// Horror
	"scary":  "horror",
	"gothic": "horror",

	// Literary labels
	"literature":           "literary-fiction",
	"litfic":               "literary-fiction",
	"classic":              "classics",
	"general-fiction":      "fiction",
	"contemporary-fiction": "fiction",

	// Historical
	"historical": "historical-fiction",

	// Humor
	"comedy": "humor",
	"humour": "humor",

	// Age categories
	"ya":           "young-adult",
	"teen":         "young-adult",
	"young-adults": "young-adult",
	"children":     "childrens",
	"children-s":   "childrens",
	"kids":         "childrens",
	"juvenile":     "childrens",
	"picture-book": "childrens",

	// Comics
	"comics": "graphic-novel",
	"manga":  "graphic-novel",

	// Performance and verse
	"plays":   "drama",
	"theatre": "drama",
	"theater": "drama",
	"poems":   "poetry",

	// Non-fiction shapes
	"nonfiction":           "non-fiction",
	"autobiography":        "biography",
	"biographies":          "biography",
	"memoirs":              "memoir",
	"self-improvement":     "self-help",
	"personal-development": "self-help",
	"psychology-self-help": "psychology",
	"tech":                 "technology",
	"computers":            "technology",
	"programming":          "technology",
	"finance":              "economics",
	"investing":            "economics",
	"money":                "economics",
	"entrepreneurship":     "business",
	"management":           "business",
	"leadership":           "business",
	"spirituality":         "religion",
	"theology":             "religion",
	"wellness":             "health",
	"fitness":              "health",
	"medicine":             "health",
	"environment":          "nature",
	"outdoors":             "nature",
	"military-history":     "history",
	"world-history":        "history",
	"cookbook":             "cooking",
	"cookbooks":            "cooking",
	"food":                 "cooking",
	"current-events":       "politics",
	"political-science":    "politics",
}

// Normalize converts a raw genre label to its canonical slug.
// Unrecognized labels come back slugified, so callers can decide
// whether to accept them or reject with the taxonomy in hand.
func Normalize(raw string) string {
	slug := Slugify(raw)
	if canonical, ok := aliases[slug]; ok {
		return canonical
	}
	return slug
}
