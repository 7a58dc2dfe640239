package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fixturefox/fixturefox/internal/models"
)

// Parser extracts quality, resolution, codec, and sports metadata from raw
// release titles. It is stateless and safe for concurrent use.
type Parser struct{}

// NewParser creates a release title parser
func NewParser() *Parser {
	return &Parser{}
}

var (
	resolutionRe   = regexp.MustCompile(`(?i)\b(2160p|1080p|720p|480p)\b`)
	mediaSourceRe  = regexp.MustCompile(`(?i)\b(WEB[-. ]?DL|WEBRip|HDTV|Blu[-. ]?Ray|BDRip|DVD)\b`)
	codecRe        = regexp.MustCompile(`(?i)\b(x264|x265|h[. ]?264|h[. ]?265|HEVC|AV1|XviD)\b`)
	yearRe         = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	roundRe        = regexp.MustCompile(`(?i)\b(?:round|week|matchday|r)[-. ]?(\d{1,2})\b`)
	groupRe        = regexp.MustCompile(`-([A-Za-z0-9]+)$`)
	packRe         = regexp.MustCompile(`(?i)\b(complete|pack|full[-. ]season)\b`)
	separatorRe    = regexp.MustCompile(`[._]`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

var sportKeywords = map[string]string{
	"nfl":        "football",
	"nba":        "basketball",
	"nhl":        "hockey",
	"mlb":        "baseball",
	"epl":        "soccer",
	"uefa":       "soccer",
	"formula1":   "motorsport",
	"formula 1":  "motorsport",
	"f1":         "motorsport",
	"motogp":     "motorsport",
	"ufc":        "mma",
	"wrc":        "motorsport",
	"rugby":      "rugby",
	"cricket":    "cricket",
	"tennis":     "tennis",
	"golf":       "golf",
}

// Parse extracts structured metadata from a raw release title. A title
// that yields no usable quality signal is an error; batch callers degrade
// it to a rejected evaluation rather than aborting the cycle.
func (p *Parser) Parse(title string) (*models.ParsedTitle, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: empty release title", models.ErrInvalidInput)
	}

	normalized := separatorRe.ReplaceAllString(title, " ")
	normalized = whitespaceRe.ReplaceAllString(normalized, " ")

	parsed := &models.ParsedTitle{}

	if m := resolutionRe.FindString(normalized); m != "" {
		parsed.Resolution = strings.ToLower(m)
	}
	if m := mediaSourceRe.FindString(normalized); m != "" {
		parsed.MediaSource = canonicalMediaSource(m)
	}
	if m := codecRe.FindString(normalized); m != "" {
		parsed.Codec = strings.ToLower(strings.NewReplacer(".", "", " ", "").Replace(m))
	}
	if m := yearRe.FindString(normalized); m != "" {
		parsed.Year, _ = strconv.Atoi(m)
	}
	if m := roundRe.FindStringSubmatch(normalized); m != nil {
		parsed.Round = m[1]
	}
	if m := groupRe.FindStringSubmatch(strings.TrimSpace(normalized)); m != nil {
		parsed.ReleaseGroup = m[1]
	}
	parsed.IsPack = packRe.MatchString(normalized)

	lower := strings.ToLower(normalized)
	for keyword, sport := range sportKeywords {
		if strings.Contains(lower, keyword) {
			parsed.Sport = sport
			break
		}
	}

	parsed.Quality = detectQuality(parsed.Resolution, parsed.MediaSource)
	if parsed.Quality == models.QualityUnknown {
		return nil, fmt.Errorf("%w: no quality signal in title %q", models.ErrInvalidInput, title)
	}

	parsed.CleanTitle = cleanTitle(normalized)
	return parsed, nil
}

// detectQuality maps resolution and media source to a quality id
func detectQuality(resolution, mediaSource string) models.QualityID {
	switch mediaSource {
	case "WEBDL":
		switch resolution {
		case "2160p":
			return models.QualityWEBDL2160p
		case "1080p":
			return models.QualityWEBDL1080p
		case "720p":
			return models.QualityWEBDL720p
		case "480p":
			return models.QualityWEBDL480p
		}
	case "WEBRip":
		switch resolution {
		case "1080p":
			return models.QualityWEBRip1080p
		case "720p":
			return models.QualityWEBRip720p
		}
	case "HDTV":
		switch resolution {
		case "2160p":
			return models.QualityHDTV2160p
		case "1080p":
			return models.QualityHDTV1080p
		case "720p":
			return models.QualityHDTV720p
		default:
			return models.QualitySDTV
		}
	case "Bluray":
		switch resolution {
		case "2160p":
			return models.QualityBluray2160p
		case "1080p":
			return models.QualityBluray1080p
		case "720p":
			return models.QualityBluray720p
		}
	case "DVD":
		return models.QualityDVD
	}

	// Resolution without a recognized source still implies a usable level
	switch resolution {
	case "2160p":
		return models.QualityHDTV2160p
	case "1080p":
		return models.QualityHDTV1080p
	case "720p":
		return models.QualityHDTV720p
	case "480p":
		return models.QualitySDTV
	}
	return models.QualityUnknown
}

func canonicalMediaSource(raw string) string {
	cleaned := strings.ToLower(strings.NewReplacer("-", "", ".", "", " ", "").Replace(raw))
	switch cleaned {
	case "webdl":
		return "WEBDL"
	case "webrip":
		return "WEBRip"
	case "hdtv":
		return "HDTV"
	case "bluray", "bdrip":
		return "Bluray"
	case "dvd":
		return "DVD"
	}
	return raw
}

// cleanTitle strips technical tokens, leaving the human-readable event name
func cleanTitle(normalized string) string {
	cleaned := resolutionRe.ReplaceAllString(normalized, "")
	cleaned = mediaSourceRe.ReplaceAllString(cleaned, "")
	cleaned = codecRe.ReplaceAllString(cleaned, "")
	cleaned = groupRe.ReplaceAllString(strings.TrimSpace(cleaned), "")
	cleaned = whitespaceRe.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
