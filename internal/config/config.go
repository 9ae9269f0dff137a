// Package config loads and validates the single JSON configuration
// document a Hawkeye watcher is launched with.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/go-playground/validator/v10"

	"hawkeye/pkg/models"
)

var validate = validator.New()

// LoadError names the offending field or file so the process can exit with
// a precise diagnostic instead of a generic failure.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("config %q: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load reads the JSON document at path, applies defaults for every
// optional tuning field, and validates the result. A non-nil error always
// wraps a *LoadError identifying path.
func Load(path string) (*models.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	var cfg models.Config
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("parse: %w", err)}
	}

	cfg.ApplyDefaults()

	if err := validate.Struct(&cfg); err != nil {
		return nil, &LoadError{Path: path, Err: describeValidationError(err)}
	}

	if err := validateSlateURLSchemes(&cfg); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	if err := validateRanges(&cfg); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	return &cfg, nil
}

// validateSlateURLSchemes enforces the closed URL scheme set that struct
// tags alone can't express.
func validateSlateURLSchemes(cfg *models.Config) error {
	for _, raw := range cfg.SlateURLs() {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("slate URL %q: %w", raw, err)
		}
		if u.Scheme != "file" {
			return fmt.Errorf("slate URL %q: unsupported scheme %q (only file:// is supported)", raw, u.Scheme)
		}
	}
	return nil
}

// validateRanges enforces bounds validator struct tags can't express
// cleanly (percentages, cross-field constraints).
func validateRanges(cfg *models.Config) error {
	if cfg.MatchThreshold < 0 || cfg.MatchThreshold > 1 {
		return fmt.Errorf("match_threshold %v out of range [0,1]", cfg.MatchThreshold)
	}
	if cfg.StableFrames < 1 {
		return fmt.Errorf("stable_frames must be >= 1")
	}
	if cfg.SamplingIntervalMs < 1 {
		return fmt.Errorf("sampling_interval_ms must be >= 1")
	}
	if cfg.ActionParallelism < 1 {
		return fmt.Errorf("action_parallelism must be >= 1")
	}
	if len(cfg.Transitions) == 0 {
		return fmt.Errorf("transitions must not be empty")
	}
	return nil
}

func describeValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err
	}
	first := verrs[0]
	return fmt.Errorf("field %q failed %q constraint", first.Namespace(), first.Tag())
}
