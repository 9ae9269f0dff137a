// Package slate loads reference slate images and exposes best-match
// lookup against a sampled frame fingerprint.
package slate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"hawkeye/internal/fingerprint"
	"hawkeye/pkg/models"
)

// supportedSchemes is the closed set of URL schemes the loader accepts.
var supportedSchemes = map[string]bool{
	"file": true,
}

// LoadError names the offending URL so a startup failure can be reported
// precisely instead of generically.
type LoadError struct {
	URL string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load slate %q: %v", e.URL, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Library holds every distinct slate referenced by the configuration,
// immutable after Load returns.
type Library struct {
	log *logrus.Entry

	mu       sync.RWMutex // guards nothing after Load; kept for find_best_match's read-only contract
	slates   []models.Slate
	byID     map[string]models.Slate
	idForURL map[string]string
}

// Load fetches and decodes every URL in urls, computing each Slate's id and
// fingerprint. Fails on the first unreachable URL, unsupported scheme, or
// undecodable image.
func Load(urls []string, log *logrus.Entry) (*Library, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	lib := &Library{
		log:      log,
		byID:     make(map[string]models.Slate),
		idForURL: make(map[string]string),
	}

	for _, u := range urls {
		s, err := loadOne(u)
		if err != nil {
			return nil, &LoadError{URL: u, Err: err}
		}
		if _, dup := lib.byID[s.ID]; !dup {
			lib.slates = append(lib.slates, s)
		}
		lib.byID[s.ID] = s
		lib.idForURL[u] = s.ID
		log.WithFields(logrus.Fields{"url": u, "slate_id": s.ID}).Info("loaded slate")

		if log.Logger.IsLevelEnabled(logrus.TraceLevel) {
			dumpDebugFingerprint(s, log)
		}
	}

	return lib, nil
}

func loadOne(rawURL string) (models.Slate, error) {
	scheme, err := schemeOf(rawURL)
	if err != nil {
		return models.Slate{}, err
	}
	if !supportedSchemes[scheme] {
		return models.Slate{}, fmt.Errorf("unsupported URL scheme %q", scheme)
	}

	data, err := fetch(rawURL)
	if err != nil {
		return models.Slate{}, err
	}

	fp, err := fingerprint.FromBytes(data)
	if err != nil {
		return models.Slate{}, err
	}

	sum := sha256.Sum256(data)
	return models.Slate{
		ID:          hex.EncodeToString(sum[:]),
		SourceURL:   rawURL,
		Fingerprint: fp,
	}, nil
}

func schemeOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" {
		return "", fmt.Errorf("URL missing scheme")
	}
	return u.Scheme, nil
}

func fetch(rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "file":
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		return os.ReadFile(path)
	default:
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
}

// Match is the result of a successful FindBestMatch: the winning slate id
// and its similarity score.
type Match struct {
	SlateID string
	Score   float64
}

// FindBestMatch compares frameFP against every stored slate and returns the
// best-scoring one if it meets threshold, breaking ties by lowest
// lexicographic id. Stateless and safe for concurrent use from any stage.
func (l *Library) FindBestMatch(frameFP models.Fingerprint, threshold float64) (Match, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var best Match
	found := false
	for _, s := range l.slates {
		score := fingerprint.CosineSimilarity(frameFP, s.Fingerprint)
		if score < threshold {
			continue
		}
		if !found || score > best.Score || (score == best.Score && s.ID < best.SlateID) {
			best = Match{SlateID: s.ID, Score: score}
			found = true
		}
	}
	return best, found
}

// IDForURL resolves a configured slate URL to its loaded Slate id. Used by
// the Transition Engine to match a TransitionRule's FrameDescriptor (which
// names slates by URL) against a runtime Classification (which names
// slates by id).
func (l *Library) IDForURL(rawURL string) (string, bool) {
	id, ok := l.idForURL[rawURL]
	return id, ok
}

// Len returns the number of distinct slates loaded.
func (l *Library) Len() int {
	return len(l.slates)
}

// IDs returns every loaded slate id, sorted, for diagnostics.
func (l *Library) IDs() []string {
	ids := make([]string, 0, len(l.byID))
	for id := range l.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func dumpDebugFingerprint(s models.Slate, log *logrus.Entry) {
	// Best-effort operator aid (SPEC_FULL.md "Debug frame dump on trace
	// logging"); a failure here must never affect loading.
	path, err := writeDebugPNG(s)
	if err != nil {
		log.WithError(err).Debug("failed to write debug fingerprint dump")
		return
	}
	log.WithField("path", path).Trace("wrote debug fingerprint dump")
}
