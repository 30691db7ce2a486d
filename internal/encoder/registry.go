package encoder

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/discid/internal/config"
)

// Registry lazily constructs and caches encoders by name, so the ONNX
// Runtime session for an encoder type that's never requested is never
// created. Construction is serialized by constructMu so two concurrent
// first-requests for the same encoder don't race to build two sessions;
// lookups of an already-built encoder only take the read lock.
type Registry struct {
	cfg config.EncoderConfig
	opt *ort.SessionOptions

	mu        sync.RWMutex
	encoders  map[string]Encoder
	constructMu sync.Mutex
}

// NewRegistry prepares a registry against cfg. It does not build any
// encoder session until Get is first called for that name.
func NewRegistry(cfg config.EncoderConfig) (*Registry, error) {
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("encoder registry: init onnx runtime: %w", err)
		}
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("encoder registry: session options: %w", err)
	}
	if cfg.IntraOpThreads > 0 {
		_ = opts.SetIntraOpNumThreads(cfg.IntraOpThreads)
	}
	if cfg.InterOpThreads > 0 {
		_ = opts.SetInterOpNumThreads(cfg.InterOpThreads)
	}

	return &Registry{
		cfg:      cfg,
		opt:      opts,
		encoders: make(map[string]Encoder),
	}, nil
}

// Get returns the named encoder, constructing it on first use. name is one
// of "clip", "dinov2".
func (r *Registry) Get(name string) (Encoder, error) {
	r.mu.RLock()
	enc, ok := r.encoders[name]
	r.mu.RUnlock()
	if ok {
		return enc, nil
	}

	r.constructMu.Lock()
	defer r.constructMu.Unlock()

	// Another goroutine may have finished construction while we waited for
	// constructMu.
	r.mu.RLock()
	enc, ok = r.encoders[name]
	r.mu.RUnlock()
	if ok {
		return enc, nil
	}

	built, err := r.construct(name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.encoders[name] = built
	r.mu.Unlock()

	return built, nil
}

func (r *Registry) construct(name string) (Encoder, error) {
	switch name {
	case "clip":
		return NewCLIPEncoder(r.cfg.ModelsDir, r.opt)
	case "dinov2":
		return NewDINOv2Encoder(r.cfg.ModelsDir, r.cfg.DINOv2Variant, r.opt)
	default:
		return nil, fmt.Errorf("encoder registry: unknown encoder %q", name)
	}
}

// Default returns the encoder selected by cfg.Type.
func (r *Registry) Default() (Encoder, error) {
	return r.Get(string(r.cfg.Type))
}

// Close releases every constructed encoder's session.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, enc := range r.encoders {
		_ = enc.Close()
	}
	if r.opt != nil {
		_ = r.opt.Destroy()
	}
	return nil
}
