package media

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/okian/talentscore/internal/domain/signal"
)

// ReadLandmarks decodes landmark frames from either a bare JSON array of
// frames or an object with a "frames" field.
func ReadLandmarks(r io.Reader) ([]signal.LandmarkFrame, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read landmarks: %w", ErrDecode, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty landmark document", ErrDecode)
	}

	var frames []signal.LandmarkFrame
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &frames); err != nil {
			return nil, fmt.Errorf("%w: landmarks: %w", ErrDecode, err)
		}
		return frames, nil
	}

	var doc struct {
		Frames []signal.LandmarkFrame `json:"frames"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: landmarks: %w", ErrDecode, err)
	}
	return doc.Frames, nil
}

// ReadLandmarksFile reads landmark frames from path.
func ReadLandmarksFile(path string) ([]signal.LandmarkFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	defer f.Close()
	return ReadLandmarks(f)
}
