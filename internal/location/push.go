package location

import (
	"context"
	"sync"

	"biketrail/internal/domain"
)

const pushBufferSize = 64

// PushSource is fed by a client that reports fixes itself, such as the
// mobile app posting positions over HTTP. The client also reports whether
// the user granted location access.
type PushSource struct {
	granted bool

	mu         sync.Mutex
	inbox      chan domain.LocationFix
	done       chan struct{}
	subscribed bool
	stopped    bool
}

// NewPushSource creates a push source. granted is the permission the
// client obtained from its user.
func NewPushSource(granted bool) *PushSource {
	return &PushSource{
		granted: granted,
		inbox:   make(chan domain.LocationFix, pushBufferSize),
		done:    make(chan struct{}),
	}
}

func (p *PushSource) Name() string { return "push" }

func (p *PushSource) RequestPermission(ctx context.Context) (bool, error) {
	return p.granted, nil
}

func (p *PushSource) Subscribe(ctx context.Context) (<-chan domain.LocationFix, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil, ErrSourceStopped
	}
	p.subscribed = true

	out := make(chan domain.LocationFix)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.done:
				return
			case fix := <-p.inbox:
				select {
				case out <- fix:
				case <-ctx.Done():
					return
				case <-p.done:
					return
				}
			}
		}
	}()
	return out, nil
}

// Push hands a fix to the subscriber. It blocks while the buffer is full.
func (p *PushSource) Push(ctx context.Context, fix domain.LocationFix) error {
	p.mu.Lock()
	subscribed, stopped := p.subscribed, p.stopped
	p.mu.Unlock()

	if stopped {
		return ErrSourceStopped
	}
	if !subscribed {
		return ErrNotSubscribed
	}

	select {
	case p.inbox <- fix:
		return nil
	case <-p.done:
		return ErrSourceStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *PushSource) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.stopped {
		p.stopped = true
		close(p.done)
	}
	return nil
}
