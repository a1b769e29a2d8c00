package media

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	ptn "github.com/razsteinmetz/go-ptn"
)

// Release name parsing.
//
// Titles come from the generic release-name extractor; season and episode
// numbers use our own rule chains so the result does not depend on how the
// extractor treats folder names or anime style "S02 - 05" numbering.
var (
	// videoRe matches video file extensions used to include media files.
	videoRe = regexp.MustCompile(`(?i)\.(swf|avi|flv|mpg|rm|mov|wav|asf|3gp|mkv|rmvb|mp4)$`)

	// seasonTokenRe matches an s-prefixed token and captures the digits after its leading letters: S02, s2, Season2, S01E02.
	seasonTokenRe = regexp.MustCompile(`(?i)^s[a-z]*(\d+)`)

	// episodeRe matches E01, e1, Episode05, Episode 5.
	episodeRe = regexp.MustCompile(`(?i)(?:episode[\s._-]?|e)(\d{1,3})(?:\D|$)`)

	// crossRe matches 1x02 style numbering; the second group is the episode.
	crossRe = regexp.MustCompile(`(?i)(\d+)x(\d+)`)

	// dashRe matches anime style "S02 - 05"; the second group is the episode.
	dashRe = regexp.MustCompile(`(?i)s(\d+)\s*-\s*(\d{1,3})(?:\D|$)`)

	// titleStopRe finds where season or episode markers begin in an extracted title.
	titleStopRe = regexp.MustCompile(`(?i)(?:^|[\s._-])(?:s\d{1,2}(?:e\d{1,3})?|season[\s._-]*\d+|specials?|\d{1,2}x\d{1,3})(?:[\s._-]|$)`)

	// encodingTagsRe finds codec/resolution/source tags that end an episode title.
	encodingTagsRe = regexp.MustCompile(`(?i)(?:^|[\s._\-\[(])(?:HDR|DV|x265|x264|H\.?264|H\.?265|HEVC|AVC|AAC|AC3|DDP?5\.1|DTS|FLAC|MP3|WEB-?DL|WEBRip|BluRay|BDRip|DVDRip|HDTV|480p|576p|720p|1080p|2160p|4K|UHD|10\.?bits?|8bit|PROPER|REPACK|iNTERNAL|MULTI|DUAL|DUBBED|SUBBED)(?:$|[\s._\-\])])`)

	// spaceRe collapses whitespace runs.
	spaceRe = regexp.MustCompile(`\s+`)
)

// ErrUnparseable reports that no usable title could be extracted from a name.
var ErrUnparseable = errors.New("name could not be parsed")

// Name is the best-effort structure recovered from one free-text name.
type Name struct {
	Title        string
	Season       *int
	Episode      *int
	EpisodeTitle string
}

// Parse extracts the title, season, episode and episode title from name.
// Season and episode are nil when no rule matched; callers apply their own
// defaults. An error is returned only when the title cannot be recovered.
func Parse(name string) (Name, error) {
	title, err := Title(name)
	if err != nil {
		return Name{}, err
	}

	parsed := Name{Title: title, EpisodeTitle: EpisodeTitle(name)}
	if season, ok := ParseSeason(name); ok {
		parsed.Season = &season
	}
	if episode, ok := ParseEpisode(name); ok {
		parsed.Episode = &episode
	}
	return parsed, nil
}

// Title returns the show title extracted from name.
func Title(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrUnparseable
	}

	info, err := ptn.Parse(name)
	if err != nil || info == nil {
		return "", ErrUnparseable
	}

	title := strings.TrimSpace(info.Title)
	if loc := titleStopRe.FindStringIndex(title); loc != nil {
		title = title[:loc[0]]
	}
	title = strings.Trim(title, ".-_ ")
	if title == "" {
		return "", ErrUnparseable
	}
	return title, nil
}

// ParseSeason extracts a season number. Rules are checked in order:
// "specials" anywhere yields 0, then a "Season N" token pair, then the first
// s-prefixed token carrying digits.
func ParseSeason(name string) (int, bool) {
	if strings.Contains(strings.ToLower(name), "specials") {
		return 0, true
	}

	tokens := strings.Fields(name)
	for i, token := range tokens {
		if !strings.EqualFold(token, "season") || i+1 >= len(tokens) {
			continue
		}
		if n, err := strconv.Atoi(tokens[i+1]); err == nil && n >= 0 {
			return n, true
		}
	}

	for _, token := range tokens {
		m := seasonTokenRe.FindStringSubmatch(token)
		if len(m) < 2 {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}

	return 0, false
}

// ParseEpisode extracts an episode number using E/Episode markers, then
// NxM numbering, then "S<n> - <m>".
func ParseEpisode(name string) (int, bool) {
	if m := episodeRe.FindStringSubmatch(name); len(m) >= 2 {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}
	return lastIntFromRegexps(name, crossRe, dashRe)
}

// EpisodeTitle returns the text following the episode marker with the
// extension and release tags stripped. Empty when nothing is left.
func EpisodeTitle(name string) string {
	working := strings.TrimSuffix(name, videoRe.FindString(name))

	end := -1
	for _, re := range []*regexp.Regexp{episodeRe, crossRe, dashRe} {
		if m := re.FindStringSubmatchIndex(working); m != nil {
			// The last capture group ends the marker; trailing guards are not part of it.
			end = m[len(m)-1]
			break
		}
	}
	if end < 0 {
		return ""
	}

	rest := working[end:]
	if loc := encodingTagsRe.FindStringIndex(rest); loc != nil {
		rest = rest[:loc[0]]
	}
	rest = strings.NewReplacer(".", " ", "_", " ").Replace(rest)
	rest = spaceRe.ReplaceAllString(rest, " ")
	return strings.Trim(rest, " -[]()")
}

// IsVideo reports whether filename has a recognized video extension.
func IsVideo(filename string) bool {
	return videoRe.MatchString(filename)
}

// lastIntFromRegexps returns the last capture group of the first matching
// regexp as an integer.
func lastIntFromRegexps(input string, regexps ...*regexp.Regexp) (int, bool) {
	for _, re := range regexps {
		m := re.FindStringSubmatch(input)
		if len(m) < 2 {
			continue
		}
		if n, err := strconv.Atoi(m[len(m)-1]); err == nil {
			return n, true
		}
	}
	return 0, false
}
