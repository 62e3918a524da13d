package scrape

import (
	"regexp"
	"strings"
)

// LinkKind classifies a captured URL.
type LinkKind int

const (
	// KindVideo is a direct link to a single hosted video.
	KindVideo LinkKind = iota
	// KindPlaylistRef is a link to a source playlist (list= present, no video id).
	KindPlaylistRef
	// KindSocialMedia is a twitter/x status link whose media gets re-uploaded.
	KindSocialMedia
)

func (k LinkKind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindPlaylistRef:
		return "playlist"
	case KindSocialMedia:
		return "social"
	default:
		return "unknown"
	}
}

// LinkRecord is one captured link. Immutable once created.
type LinkRecord struct {
	URL    string
	Kind   LinkKind
	Author string
}

var (
	youtubeHostRe = regexp.MustCompile(`^https?://(?:www\.|m\.|music\.)?(?:youtube\.com|youtu\.be)/`)

	// Known URL shapes carrying an 11-character video id.
	videoIDRes = []*regexp.Regexp{
		regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})(?:[?&#/]|$)`),
		regexp.MustCompile(`youtube\.com/watch\?(?:[^#\s]*&)?v=([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/(?:embed|shorts|live)/([A-Za-z0-9_-]{11})(?:[?&#/]|$)`),
	}

	playlistIDRe = regexp.MustCompile(`[?&]list=([A-Za-z0-9_-]+)`)

	statusPathRe = regexp.MustCompile(`^https?://(?:www\.)?([a-z0-9.-]+)(/[^/\s]+/status/[0-9]+)`)

	// Mirror domains are rewritten to the canonical host before any further
	// processing, so dedup also collapses mirrors of the same status.
	socialHosts = map[string]bool{
		"twitter.com":   true,
		"x.com":         true,
		"vxtwitter.com": true,
		"fxtwitter.com": true,
		"fixvx.com":     true,
		"fixupx.com":    true,
	}
	canonicalSocialHost = "x.com"
)

// VideoID extracts the 11-character video id from known URL shapes.
func VideoID(url string) (string, bool) {
	for _, re := range videoIDRes {
		if m := re.FindStringSubmatch(url); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// PlaylistID extracts a source playlist id from a list= query parameter.
func PlaylistID(url string) (string, bool) {
	if m := playlistIDRe.FindStringSubmatch(url); m != nil {
		return m[1], true
	}
	return "", false
}

// Classify matches a whitespace-delimited token against the link grammars.
// Tokens matching neither grammar are dropped, not errors. SocialMedia URLs
// are returned with the canonical host substituted for mirrors.
func Classify(token, author string) (LinkRecord, bool) {
	if !strings.HasPrefix(token, "http://") && !strings.HasPrefix(token, "https://") {
		return LinkRecord{}, false
	}
	if youtubeHostRe.MatchString(token) {
		if _, ok := VideoID(token); ok {
			return LinkRecord{URL: token, Kind: KindVideo, Author: author}, true
		}
		if _, ok := PlaylistID(token); ok {
			return LinkRecord{URL: token, Kind: KindPlaylistRef, Author: author}, true
		}
		return LinkRecord{}, false
	}
	if m := statusPathRe.FindStringSubmatch(token); m != nil && socialHosts[m[1]] {
		return LinkRecord{
			URL:    "https://" + canonicalSocialHost + m[2],
			Kind:   KindSocialMedia,
			Author: author,
		}, true
	}
	return LinkRecord{}, false
}
