package session

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
)

// notifier is the subset of os/signal used to take over SIGINT.
type notifier interface {
	Notify(c chan<- os.Signal, sig ...os.Signal)
	Stop(c chan<- os.Signal)
	Ignored(sig os.Signal) bool
	Ignore(sig ...os.Signal)
}

type osNotifier struct{}

func (osNotifier) Notify(c chan<- os.Signal, sig ...os.Signal) { signal.Notify(c, sig...) }
func (osNotifier) Stop(c chan<- os.Signal)                     { signal.Stop(c) }
func (osNotifier) Ignored(sig os.Signal) bool                  { return signal.Ignored(sig) }
func (osNotifier) Ignore(sig ...os.Signal)                     { signal.Ignore(sig...) }

// interruptGuard routes SIGINT to the wake channel for the lifetime of one
// read and puts the previous disposition back on release.
type interruptGuard struct {
	n          notifier
	wake       *wakeChannel
	logger     *slog.Logger
	ch         chan os.Signal
	done       chan struct{}
	wg         sync.WaitGroup
	wasIgnored bool
	once       sync.Once
}

func acquireGuard(n notifier, wake *wakeChannel, logger *slog.Logger) *interruptGuard {
	g := &interruptGuard{
		n:      n,
		wake:   wake,
		logger: logger,
		ch:     make(chan os.Signal, 1),
		done:   make(chan struct{}),
	}

	g.wasIgnored = n.Ignored(os.Interrupt)

	// an interrupt that arrived after the previous read returned must not
	// cancel this one
	if _, err := wake.drain(); err != nil {
		logger.Debug("error draining wake channel", "error", err)
	}

	n.Notify(g.ch, os.Interrupt)

	g.wg.Add(1)
	go g.forward()

	return g
}

func (g *interruptGuard) forward() {
	defer g.wg.Done()

	for {
		select {
		case <-g.done:
			return
		case <-g.ch:
			if err := g.wake.notify(); err != nil {
				g.logger.Debug("error writing to wake channel", "error", err)
			}
		}
	}
}

func (g *interruptGuard) release() {
	g.once.Do(func() {
		g.n.Stop(g.ch)
		close(g.done)
		g.wg.Wait()

		if g.wasIgnored {
			g.n.Ignore(os.Interrupt)
		}
	})
}
