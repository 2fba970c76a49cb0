package election

import (
	"sync"

	log "github.com/nickbruun/zkelection/logging"
	"github.com/nickbruun/zkelection/metrics"
	"github.com/nickbruun/zkelection/zkutils"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

const (
	// Default election root.
	DefaultRoot = "/election"

	// Default candidacy node name prefix.
	DefaultPrefix = "guid-"
)

// Controller options.
type Options struct {
	// Path of the election root. Defaults to DefaultRoot.
	Root string

	// Name prefix of candidacy nodes. Defaults to DefaultPrefix.
	Prefix string

	// Retry policy for transient errors. Defaults to DefaultRetryPolicy.
	Retry *RetryPolicy
}

func (o Options) withDefaults() Options {
	if o.Root == "" {
		o.Root = DefaultRoot
	}
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}
	if o.Retry == nil {
		p := DefaultRetryPolicy()
		o.Retry = &p
	}
	return o
}

// Election status.
type Status struct {
	Candidacy   string `json:"candidacy"`
	Leader      string `json:"leader"`
	WatchTarget string `json:"watch_target"`
	IsLeader    bool   `json:"is_leader"`
	Terminated  bool   `json:"terminated"`
}

// Election controller.
//
// Registers a candidacy for a session and drives the election until the
// session ends. Every resolution of the candidates, invocation of the role
// handler and arming of the watch happens on a single goroutine.
type Controller struct {
	coord     Coordinator
	handler   RoleHandler
	opts      Options
	registrar *Registrar
	monitor   *WatchMonitor

	// Owned by the goroutine driving the election.
	candidacy zkutils.SequenceNode

	candidacyPath atomic.String
	leader        atomic.String
	watchTarget   atomic.String
	isLeader      atomic.Bool
	started       atomic.Bool

	done     chan struct{}
	doneOnce sync.Once
	cause    atomic.Error
	err      atomic.Error
}

// Listener adapter, keeping the listener callbacks off the public API.
type controllerListener struct {
	c *Controller
}

func (l controllerListener) OnTargetDeleted() {
	l.c.onTargetDeleted()
}

func (l controllerListener) OnSessionTerminated(cause error) {
	l.c.onSessionTerminated(cause)
}

// New election controller.
//
// The coordinator must be bound to a fresh session, in which no candidacy has
// been registered.
func NewController(coord Coordinator, handler RoleHandler, opts Options) *Controller {
	opts = opts.withDefaults()

	c := &Controller{
		coord:     coord,
		handler:   handler,
		opts:      opts,
		registrar: NewRegistrar(coord, opts.Root, opts.Prefix),
		done:      make(chan struct{}),
	}
	c.monitor = NewWatchMonitor(coord, controllerListener{c}, *opts.Retry)

	return c
}

// Path of the candidacy node.
//
// Empty until the candidacy has been registered.
func (c *Controller) Candidacy() string {
	return c.candidacyPath.Load()
}

// Path of the leader's candidacy node, as of the last determination.
func (c *Controller) Leader() string {
	return c.leader.Load()
}

// Path of the node currently watched.
func (c *Controller) WatchTarget() string {
	return c.watchTarget.Load()
}

// Test if the process is the leader.
//
// Always false once the session has ended.
func (c *Controller) IsLeader() bool {
	return c.isLeader.Load()
}

// Cause of the termination of the session.
//
// Nil until the controller is done.
func (c *Controller) Cause() error {
	return c.cause.Load()
}

// Status snapshot.
func (c *Controller) Status() Status {
	terminated := false
	select {
	case <-c.done:
		terminated = true
	default:
	}

	return Status{
		Candidacy:   c.Candidacy(),
		Leader:      c.Leader(),
		WatchTarget: c.WatchTarget(),
		IsLeader:    c.IsLeader(),
		Terminated:  terminated,
	}
}

// Done channel.
//
// Closed once the session has ended, or the controller failed.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Wait for the session to end.
//
// Returns nil if the session ended through expiry, failed authorization or
// closure of the connection. Returns an error if the election could not be
// held.
func (c *Controller) Wait() error {
	<-c.done
	return c.err.Load()
}

// Run the election until the session ends.
func (c *Controller) Run() error {
	if err := c.Start(); err != nil {
		return err
	}
	return c.Wait()
}

// Start the election.
//
// Ensures the election root exists, registers the candidacy, determines the
// role once and starts serving the election in the background. Returns an
// error if the candidacy could not be registered or the role could not be
// determined.
func (c *Controller) Start() error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	if err := c.register(); err != nil {
		c.monitor.terminate()
		c.finish(err, err)
		return err
	}

	if err := c.determineRole(); err != nil {
		c.monitor.terminate()
		if c.fail(err) {
			return err
		}
		return nil
	}

	go c.monitor.Serve()

	return nil
}

func (c *Controller) register() error {
	if err := c.monitor.withRetries("create_root", c.registrar.EnsureElectionRoot); err != nil {
		return err
	}

	// Creation is not retried, as a lost response could leave a second
	// candidacy behind for the session.
	node, err := c.registrar.RegisterCandidacy()
	if err != nil {
		return err
	}

	c.candidacy = node
	c.candidacyPath.Store(c.nodePath(node))

	return nil
}

func (c *Controller) nodePath(node zkutils.SequenceNode) string {
	return candidatePath(c.registrar.Root(), node.Name)
}

// Determine the role of the process, inform the role handler and watch the
// appropriate node.
func (c *Controller) determineRole() error {
	var candidates []zkutils.SequenceNode

	err := c.monitor.withRetries("children", func() (err error) {
		candidates, err = ListCandidates(c.coord, c.registrar.Root(), c.opts.Prefix)
		return
	})
	if err != nil {
		return errors.Wrap(err, "listing candidates")
	}

	// The candidacy can only be missing if the session has ended, or the
	// node was removed behind our back. Either way, it is void.
	if !containsCandidate(candidates, c.candidacy) {
		return errors.Wrapf(ErrCandidacyLost, "candidacy %s", c.Candidacy())
	}

	leader, isLeader, err := ResolveLeader(candidates, c.candidacy)
	if err != nil {
		return err
	}

	if wasLeader := c.isLeader.Swap(isLeader); wasLeader != isLeader {
		log.Infof("Role changed, leader: %v", isLeader)
	}
	c.leader.Store(c.nodePath(leader))

	if isLeader {
		metrics.IsLeader.Set(1)
	} else {
		metrics.IsLeader.Set(0)
	}
	metrics.RoleDeterminations.WithLabelValues(metrics.Role(isLeader)).Inc()

	log.WithFields(log.Fields{
		"candidacy":  c.Candidacy(),
		"leader":     c.Leader(),
		"candidates": len(candidates),
	}).Debug("Determined role")

	c.handler.OnRoleDetermined(isLeader)

	target, err := SelectWatchTarget(candidates, c.candidacy, isLeader)
	if err != nil {
		return err
	}

	targetPath := c.nodePath(target)
	c.watchTarget.Store(targetPath)
	c.monitor.Arm(targetPath)

	return nil
}

func (c *Controller) onTargetDeleted() {
	if err := c.determineRole(); err != nil {
		c.monitor.terminate()
		c.fail(err)
	}
}

func (c *Controller) onSessionTerminated(cause error) {
	c.fail(cause)
}

// Fail the election.
//
// Returns true if the error is not a termination of the session, and thus
// means the election could not be held.
func (c *Controller) fail(err error) bool {
	if isSessionTerminal(err) {
		c.finish(err, nil)
		return false
	}

	log.Errorf("Election failed: %v", err)
	c.finish(err, err)
	return true
}

// Finish the election.
func (c *Controller) finish(cause, err error) {
	c.doneOnce.Do(func() {
		c.isLeader.Store(false)
		metrics.IsLeader.Set(0)
		metrics.SessionTerminations.WithLabelValues(terminationReason(cause)).Inc()

		if cause != nil {
			c.cause.Store(cause)
		}
		if err != nil {
			c.err.Store(err)
		}

		log.Infof("Election ended for candidacy %s: %v", c.Candidacy(), cause)
		close(c.done)
	})
}

func terminationReason(cause error) string {
	switch {
	case errors.Is(cause, ErrSessionExpired):
		return "expired"
	case errors.Is(cause, ErrNoAuth):
		return "auth_failed"
	case errors.Is(cause, ErrSessionLost):
		return "lost"
	case errors.Is(cause, ErrConnectionClosed):
		return "closed"
	case errors.Is(cause, ErrRetriesExhausted):
		return "retries_exhausted"
	case errors.Is(cause, ErrNoPredecessor), errors.Is(cause, ErrCandidacyLost):
		return "invariant_violation"
	default:
		return "error"
	}
}
