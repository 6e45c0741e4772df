package interval

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/goccy/go-json"
	"github.com/hashicorp/go-hclog"
)

const (
	DefaultBackOffInitialInterval = 500 * time.Millisecond
	DefaultBackOffMaxInterval     = time.Minute
)

// ErrDuplicateName means a spec file defines the same interval name twice.
var ErrDuplicateName = errors.New("duplicate interval name")

// Config configures a Scheduler.
type Config struct {
	// Spec describes the interval the Scheduler tracks. It must be
	// valid; NewScheduler rejects a Config whose Spec fails validation.
	Spec Spec

	// Logger receives scheduler diagnostics. The Spec name is attached
	// as the logger name. Defaults to a logger that discards everything.
	Logger hclog.Logger

	// Clock provides time functions. Defaults to the system clock.
	// Substituting a fake clock enables deterministic tests.
	Clock Clock
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = hclog.NewNullLogger()
	}
	if c.Clock == nil {
		c.Clock = &SystemClock{}
	}
	return c
}

// BackOffConfig shapes the exponential backoff a Runner applies while the
// system clock is unavailable, such as before the first time
// synchronization completes.
type BackOffConfig struct {
	// InitialInterval is the first retry delay. Defaults to 500ms.
	InitialInterval time.Duration

	// MaxInterval caps the retry delay. Defaults to 1m.
	MaxInterval time.Duration
}

func (b BackOffConfig) withDefaults() BackOffConfig {
	if b.InitialInterval == 0 {
		b.InitialInterval = DefaultBackOffInitialInterval
	}
	if b.MaxInterval == 0 {
		b.MaxInterval = DefaultBackOffMaxInterval
	}
	return b
}

func (b BackOffConfig) getPolicy() backoff.BackOff {
	b = b.withDefaults()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = b.InitialInterval
	bo.MaxInterval = b.MaxInterval
	// Retry forever while the clock is out.
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

// specsFile is the top-level JSON structure of an interval spec file.
type specsFile struct {
	Intervals []Spec `json:"intervals"`
}

// LoadSpecs reads named interval specs from a JSON file and returns them
// keyed by name. Every entry is validated eagerly so errors surface at
// load time. The file looks like:
//
//	{
//	  "intervals": [
//	    {"name": "sampling", "granularity": "minute", "period": 5, "offset": 1}
//	  ]
//	}
func LoadSpecs(path string) (map[string]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read interval specs: %w", err)
	}

	var file specsFile
	if err = json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse interval specs: %w", err)
	}

	specs := make(map[string]Spec, len(file.Intervals))
	for _, spec := range file.Intervals {
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("interval %q: %w", spec.Name, err)
		}
		if _, ok := specs[spec.Name]; ok {
			return nil, fmt.Errorf("interval %q: %w", spec.Name, ErrDuplicateName)
		}
		specs[spec.Name] = spec
	}
	return specs, nil
}
