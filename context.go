package rewrite

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// ExecutionContext is shared by every visitor of one run. It is safe for
// concurrent use by the engine's workers.
type ExecutionContext struct {
	ctx    context.Context
	sink   RowSink
	logger *logrus.Entry

	messages     sync.Map
	accumulators sync.Map // recipe instance -> accumulator
}

// ContextOption configures an ExecutionContext.
type ContextOption func(*ExecutionContext)

// WithRowSink routes data-table rows to sink.
func WithRowSink(sink RowSink) ContextOption {
	return func(ec *ExecutionContext) {
		ec.sink = sink
	}
}

// WithContextLogger sets the logger visitors get from Logger.
func WithContextLogger(l *logrus.Entry) ContextOption {
	return func(ec *ExecutionContext) {
		ec.logger = l
	}
}

// NewExecutionContext returns an ExecutionContext bound to ctx. A nil ctx
// means context.Background. Rows go to a fresh MemorySink unless
// WithRowSink is given.
func NewExecutionContext(ctx context.Context, opts ...ContextOption) *ExecutionContext {
	if ctx == nil {
		ctx = context.Background()
	}
	ec := &ExecutionContext{ctx: ctx}
	for _, opt := range opts {
		opt(ec)
	}
	if ec.sink == nil {
		ec.sink = NewMemorySink()
	}
	if ec.logger == nil {
		ec.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return ec
}

// Context returns the Go context of the run.
func (ec *ExecutionContext) Context() context.Context { return ec.ctx }

// Sink returns the data-table sink.
func (ec *ExecutionContext) Sink() RowSink { return ec.sink }

// Logger returns the run's logger.
func (ec *ExecutionContext) Logger() *logrus.Entry { return ec.logger }

// PutMessage stores a run-wide message.
func (ec *ExecutionContext) PutMessage(key string, value any) {
	ec.messages.Store(key, value)
}

// Message returns a run-wide message.
func (ec *ExecutionContext) Message(key string) (any, bool) {
	return ec.messages.Load(key)
}

func (ec *ExecutionContext) accumulator(owner any) (any, bool) {
	return ec.accumulators.Load(owner)
}

func (ec *ExecutionContext) setAccumulator(owner, acc any) {
	ec.accumulators.Store(owner, acc)
}

func (ec *ExecutionContext) dropAccumulator(owner any) {
	ec.accumulators.Delete(owner)
}
