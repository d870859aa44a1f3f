package clip

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidLink is returned when no video id can be found in a link.
var ErrInvalidLink = errors.New("no video id in link")

var (
	watchParam = regexp.MustCompile(`[?&]v=([^&#]+)`)
	shortLink  = regexp.MustCompile(`youtu\.be/([^?&#/]+)`)
)

// ExtractVideoID pulls the video id out of a watch URL (v=<id>) or a short
// youtu.be/<id> link. The first pattern that matches wins.
func ExtractVideoID(link string) (string, error) {
	link = strings.TrimSpace(link)
	if m := watchParam.FindStringSubmatch(link); m != nil {
		return m[1], nil
	}
	if m := shortLink.FindStringSubmatch(link); m != nil {
		return m[1], nil
	}
	return "", ErrInvalidLink
}
