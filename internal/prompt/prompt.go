package prompt

import (
	"fmt"
	"sort"
	"strings"
)

// Format selects the shape of the analysis the model is asked for.
// Exactly one format is active per request.
type Format string

const (
	FormatConcise   Format = "concise"
	FormatDetailed  Format = "detailed"
	FormatJSON      Format = "json"
	FormatList      Format = "list"
	FormatCategory  Format = "category"
	FormatCustom    Format = "custom"
	FormatDiscovery Format = "discovery"
	FormatPlatform  Format = "platform"
)

// ParseFormat maps a user-supplied format name to a Format.
// Unknown names are rejected so callers cannot silently fall back
// to a format they did not ask for.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case FormatConcise:
		return FormatConcise, nil
	case FormatDetailed:
		return FormatDetailed, nil
	case FormatJSON, "":
		// JSON is the default: structured output is what programmatic
		// callers almost always want.
		return FormatJSON, nil
	case FormatList:
		return FormatList, nil
	case FormatCategory:
		return FormatCategory, nil
	case FormatCustom:
		return FormatCustom, nil
	case FormatDiscovery:
		return FormatDiscovery, nil
	case FormatPlatform:
		return FormatPlatform, nil
	default:
		return "", fmt.Errorf("unknown prompt format %q", name)
	}
}

// Config holds the analysis feature toggles. Every enabled toggle appends
// instruction text to the prompt; toggles never remove or replace text.
type Config struct {
	ExtractText           bool
	DetectFaces           bool
	IdentifyBrands        bool
	AnalyzeLayout         bool
	ExtractData           bool
	ColorAnalysis         bool
	SpatialAnalysis       bool
	SemanticAnalysis      bool
	DetectEmotions        bool
	IdentifyPatterns      bool
	HistoricalContext     bool
	CulturalAnalysis      bool
	TechnicalDetails      bool
	AccessibilityAnalysis bool

	// ContentCategory, when set, appends category-specific guidance.
	ContentCategory string

	// CustomTraits are appended as an enumerated list of aspects to cover.
	CustomTraits []string
}

// DefaultConfig enables every analysis toggle. Matches the service default:
// callers opt out of detail rather than opting in.
func DefaultConfig() Config {
	return Config{
		ExtractText:           true,
		DetectFaces:           true,
		IdentifyBrands:        true,
		AnalyzeLayout:         true,
		ExtractData:           true,
		ColorAnalysis:         true,
		SpatialAnalysis:       true,
		SemanticAnalysis:      true,
		DetectEmotions:        true,
		IdentifyPatterns:      true,
		HistoricalContext:     true,
		CulturalAnalysis:      true,
		TechnicalDetails:      true,
		AccessibilityAnalysis: true,
	}
}

// Spec is the full prompt specification for one request.
type Spec struct {
	Format Format

	// Category parameterizes FormatCategory (e.g. "receipt", "product").
	Category string

	// Platform parameterizes FormatPlatform (e.g. "instagram").
	Platform string

	// Traits parameterize FormatCustom.
	Traits []string

	Config Config
}

// Builder converts a Spec into backend-agnostic instruction text.
// Build is pure: the same Spec always yields the same text.
type Builder struct{}

// NewBuilder constructs a prompt builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build renders the instruction text for the given spec.
func (b *Builder) Build(spec Spec) (string, error) {
	base, err := b.baseText(spec)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(base)

	if category := strings.TrimSpace(spec.Config.ContentCategory); category != "" {
		sb.WriteString("\n\nThis image is expected to be ")
		sb.WriteString(indefiniteArticle(category))
		sb.WriteString(" ")
		sb.WriteString(category)
		sb.WriteString(". Apply domain knowledge appropriate to that category.")
	}

	if traits := spec.Config.CustomTraits; len(traits) > 0 {
		sb.WriteString("\n\nAdditionally cover the following aspects:")
		for _, trait := range traits {
			sb.WriteString("\n- ")
			sb.WriteString(trait)
		}
	}

	for _, instruction := range toggleInstructions(spec.Config) {
		sb.WriteString("\n")
		sb.WriteString(instruction)
	}

	return sb.String(), nil
}

// baseText returns the fixed template for the active format variant.
func (b *Builder) baseText(spec Spec) (string, error) {
	switch spec.Format {
	case FormatConcise:
		return "Briefly describe what you see in this image.", nil
	case FormatDetailed:
		return "Describe this image in detail, including all visual elements, colors, composition, and any notable features.", nil
	case FormatList:
		return "List the main elements and features present in this image.", nil
	case FormatJSON, "":
		return jsonSchemaPrompt, nil
	case FormatCategory:
		category := strings.TrimSpace(spec.Category)
		if category == "" {
			return "", fmt.Errorf("category format requires a category")
		}
		return fmt.Sprintf("Analyze this %s image with relevant domain-specific details.", category), nil
	case FormatCustom:
		if len(spec.Traits) == 0 {
			return "", fmt.Errorf("custom format requires at least one trait")
		}
		return fmt.Sprintf("Analyze this image for the following aspects:\n- %s", strings.Join(spec.Traits, "\n- ")), nil
	case FormatDiscovery:
		return "Discover and describe all interesting aspects of this image.", nil
	case FormatPlatform:
		platform := strings.TrimSpace(spec.Platform)
		if platform == "" {
			return "", fmt.Errorf("platform format requires a platform")
		}
		return fmt.Sprintf("Analyze this %s content with platform-specific considerations.", platform), nil
	default:
		return "", fmt.Errorf("unknown prompt format %q", spec.Format)
	}
}

// toggleInstructions returns one instruction line per enabled toggle,
// in a fixed order so output stays deterministic.
func toggleInstructions(cfg Config) []string {
	lines := make([]string, 0, 14)
	add := func(enabled bool, text string) {
		if enabled {
			lines = append(lines, text)
		}
	}

	add(cfg.ExtractText, "Transcribe any visible text exactly as written.")
	add(cfg.DetectFaces, "Note any human faces and their expressions.")
	add(cfg.IdentifyBrands, "Identify any visible brands, logos, or trademarks.")
	add(cfg.AnalyzeLayout, "Describe the layout and arrangement of elements.")
	add(cfg.ExtractData, "Extract any structured data such as tables, figures, or measurements.")
	add(cfg.ColorAnalysis, "Describe the dominant colors and overall palette.")
	add(cfg.SpatialAnalysis, "Describe spatial relationships between the main elements.")
	add(cfg.SemanticAnalysis, "Describe the themes and meaning conveyed by the image.")
	add(cfg.DetectEmotions, "Describe the emotional tone of the image.")
	add(cfg.IdentifyPatterns, "Note any recurring patterns or motifs.")
	add(cfg.HistoricalContext, "Note any historical context suggested by the image.")
	add(cfg.CulturalAnalysis, "Note any cultural references or significance.")
	add(cfg.TechnicalDetails, "Note technical characteristics such as medium, quality, and creation method.")
	add(cfg.AccessibilityAnalysis, "Provide an accessibility-oriented description suitable for alt text.")

	return lines
}

// indefiniteArticle picks "a" or "an" for the category sentence.
func indefiniteArticle(word string) string {
	if word == "" {
		return "a"
	}
	if strings.ContainsRune("aeiouAEIOU", rune(word[0])) {
		return "an"
	}
	return "a"
}

// KnownCategories lists the content categories the service recognizes.
// The set is advisory: unknown categories still work, they just get
// generic guidance.
func KnownCategories() []string {
	categories := []string{
		"screenshot", "user interface", "social media post", "digital art",
		"website", "software", "video game",
		"document", "receipt", "business card", "invoice", "form",
		"identification", "certificate",
		"photo", "artwork", "illustration", "meme", "comic",
		"advertisement", "poster",
		"recipe", "tutorial", "diagram", "blueprint", "schematic",
		"manual", "guide",
		"chart", "graph", "dashboard", "infographic", "timeline",
		"flowchart", "mind map",
		"map", "floor plan", "architecture", "landscape", "satellite",
		"medical", "scientific", "technical", "educational", "legal",
		"financial",
	}
	sort.Strings(categories)
	return categories
}
