// Package models holds the data types shared across the watcher: the
// configuration document schema, frame classification, and transition
// events.
package models

import "fmt"

// Config is the frozen configuration document loaded at startup.
// Nothing in the process mutates it after Load returns.
type Config struct {
	Description string  `json:"description"`
	Source      Source  `json:"source"`
	Transitions []TransitionRule `json:"transitions" validate:"required,dive"`

	SamplingIntervalMs int     `json:"sampling_interval_ms"`
	MatchThreshold     float64 `json:"match_threshold"`
	StableFrames       int     `json:"stable_frames"`
	ActionParallelism  int     `json:"action_parallelism"`
}

// Source describes the ingest transport.
type Source struct {
	IngestPort int       `json:"ingest_port" validate:"required,min=1,max=65535"`
	Container  string    `json:"container" validate:"required,eq=mpeg-ts"`
	Codec      string    `json:"codec" validate:"required,eq=h264"`
	Transport  Transport `json:"transport"`
}

// Transport is fixed to RTP in this version of the schema.
type Transport struct {
	Protocol string `json:"protocol" validate:"required,eq=rtp"`
}

// FrameType tags the two kinds of FrameDescriptor the schema allows.
type FrameType string

const (
	FrameTypeContent FrameType = "content"
	FrameTypeSlate   FrameType = "slate"
)

// FrameDescriptor is a tagged variant: either "content" or a reference to a
// named slate image. SlateContext is only populated when
// FrameType == FrameTypeSlate.
type FrameDescriptor struct {
	FrameType    FrameType     `json:"frame_type" validate:"required,oneof=content slate"`
	SlateContext *SlateContext `json:"slate_context,omitempty"`
}

// SlateContext names the reference image backing a "slate" FrameDescriptor.
type SlateContext struct {
	URL string `json:"url" validate:"required"`
}

// TransitionRule matches a from->to classification edge and the actions to
// fire when it occurs.
type TransitionRule struct {
	From    FrameDescriptor `json:"from"`
	To      FrameDescriptor `json:"to"`
	Actions []Action        `json:"actions" validate:"dive"`
}

// HTTPMethod is the closed set of methods an Action may issue.
type HTTPMethod string

const (
	MethodGET    HTTPMethod = "GET"
	MethodPOST   HTTPMethod = "POST"
	MethodPUT    HTTPMethod = "PUT"
	MethodDELETE HTTPMethod = "DELETE"
)

// BasicAuth carries HTTP basic-auth credentials for an Action.
type BasicAuth struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Authorization is the tagged variant of supported Action auth schemes.
// Currently only "basic" is defined by the schema.
type Authorization struct {
	Basic *BasicAuth `json:"basic,omitempty"`
}

// Action is an HTTP side effect fired on a matched transition.
type Action struct {
	Description   string            `json:"description"`
	Type          string            `json:"type" validate:"required,eq=http_call"`
	Method        HTTPMethod        `json:"method" validate:"required,oneof=GET POST PUT DELETE"`
	URL           string            `json:"url" validate:"required,url"`
	Headers       map[string]string `json:"headers,omitempty"`
	Body          string            `json:"body,omitempty"`
	Authorization *Authorization    `json:"authorization,omitempty"`
	Timeout       int               `json:"timeout"`
	Retries       int               `json:"retries" validate:"gte=0"`

	// CooldownSeconds guards against an action firing again immediately
	// after a flapping transition. Zero means "use the default".
	CooldownSeconds int `json:"cooldown_seconds,omitempty"`
}

const (
	DefaultSamplingIntervalMs = 200
	DefaultMatchThreshold     = 0.95
	DefaultStableFrames       = 2
	DefaultActionParallelism  = 4
	DefaultActionTimeoutSec   = 10
	DefaultActionCooldownSec  = 5
	DefaultActionQueueMax     = 256
	DefaultStreamStallTimeoutSec = 10
	DefaultMaxDecodeRestarts     = 3
)

// ApplyDefaults fills in every optional tuning field that has a documented
// default. Called once, right after JSON unmarshal, before validation.
func (c *Config) ApplyDefaults() {
	if c.SamplingIntervalMs == 0 {
		c.SamplingIntervalMs = DefaultSamplingIntervalMs
	}
	if c.MatchThreshold == 0 {
		c.MatchThreshold = DefaultMatchThreshold
	}
	if c.StableFrames == 0 {
		c.StableFrames = DefaultStableFrames
	}
	if c.ActionParallelism == 0 {
		c.ActionParallelism = DefaultActionParallelism
	}
	for i := range c.Transitions {
		for j := range c.Transitions[i].Actions {
			a := &c.Transitions[i].Actions[j]
			if a.Timeout == 0 {
				a.Timeout = DefaultActionTimeoutSec
			}
			if a.CooldownSeconds == 0 {
				a.CooldownSeconds = DefaultActionCooldownSec
			}
		}
	}
}

// SlateURLs returns the set of distinct slate URLs referenced anywhere in
// the transition list, in first-seen order.
func (c *Config) SlateURLs() []string {
	seen := make(map[string]bool)
	var urls []string
	visit := func(fd FrameDescriptor) {
		if fd.FrameType == FrameTypeSlate && fd.SlateContext != nil {
			if !seen[fd.SlateContext.URL] {
				seen[fd.SlateContext.URL] = true
				urls = append(urls, fd.SlateContext.URL)
			}
		}
	}
	for _, t := range c.Transitions {
		visit(t.From)
		visit(t.To)
	}
	return urls
}

// String implements a compact summary used in startup logs.
func (c Config) String() string {
	return fmt.Sprintf("Config{port=%d transitions=%d threshold=%.2f}",
		c.Source.IngestPort, len(c.Transitions), c.MatchThreshold)
}
