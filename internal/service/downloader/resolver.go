package downloader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/eve-utils/eveclient-downloader/internal/domain/server"
)

// ErrParse is returned when build info is not a JSON object with an integer "build" field.
var ErrParse = errors.New("parse error")

// Getter fetches the full body of a URL.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Endpoints builds the URLs of the binaries host.
type Endpoints struct {
	base string
}

// NewEndpoints returns Endpoints rooted at binariesURL.
func NewEndpoints(binariesURL string) Endpoints {
	return Endpoints{base: strings.TrimRight(binariesURL, "/")}
}

// BuildInfoURL points at the build-info document of s.
func (e Endpoints) BuildInfoURL(s server.Server) string {
	return fmt.Sprintf("%s/eveclient_%s.json", e.base, s.Code())
}

// ManifestURL points at the binary index of build.
func (e Endpoints) ManifestURL(build int) string {
	return fmt.Sprintf("%s/eveonline_%d.txt", e.base, build)
}

// FilesURL is prefixed to the url-suffix of every manifest entry.
func (e Endpoints) FilesURL() string {
	return e.base + "/"
}

// ResolveBuild downloads the build-info document at url and returns its build id.
func ResolveBuild(ctx context.Context, getter Getter, url string) (int, error) {
	body, err := getter.Get(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("fetch build info: %w", err)
	}

	return parseBuild(body)
}

// parseBuild reads {"build":"123456"}. A bare JSON number is accepted as well.
func parseBuild(body []byte) (int, error) {
	var info map[string]json.RawMessage
	if err := json.Unmarshal(body, &info); err != nil {
		return 0, fmt.Errorf("%w: build info: %w", ErrParse, err)
	}

	raw, ok := info["build"]
	if !ok {
		return 0, fmt.Errorf("%w: build info has no build field", ErrParse)
	}

	text := string(raw)
	if strings.HasPrefix(text, `"`) {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("%w: build field: %w", ErrParse, err)
		}
	}

	build, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%w: build field %s: %w", ErrParse, raw, err)
	}

	return build, nil
}
