package orchestrator

import (
	"net/url"
	"path"
	"strings"
)

// DefaultThumbnailFile replaces well-known manifest names.
const DefaultThumbnailFile = "thumbnail.jpg"

var (
	manifestExts  = map[string]bool{".m3u8": true, ".mpd": true}
	imageExts     = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}
	manifestNames = map[string]bool{"master": true, "playlist": true, "index": true, "manifest": true}
)

// ResolveThumbnail derives a thumbnail locator from a video locator.
//
// Rules, in order:
//   - an image locator is its own thumbnail;
//   - a streaming manifest named master, playlist, index or manifest is
//     replaced by thumbnailFile in the same directory;
//   - any other manifest keeps its base name with a .jpg extension.
//
// Query and fragment are dropped. Anything else is unresolved.
func ResolveThumbnail(videoLocator, thumbnailFile string) (string, bool) {
	videoLocator = strings.TrimSpace(videoLocator)
	if videoLocator == "" {
		return "", false
	}
	u, err := url.Parse(videoLocator)
	if err != nil || u.Path == "" {
		return "", false
	}
	if thumbnailFile == "" {
		thumbnailFile = DefaultThumbnailFile
	}

	name := path.Base(u.Path)
	ext := strings.ToLower(path.Ext(name))
	base := strings.TrimSuffix(name, path.Ext(name))

	switch {
	case imageExts[ext]:
	case manifestExts[ext] && manifestNames[strings.ToLower(base)]:
		u.Path = path.Join(path.Dir(u.Path), thumbnailFile)
	case manifestExts[ext]:
		u.Path = path.Join(path.Dir(u.Path), base+".jpg")
	default:
		return "", false
	}
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), true
}
