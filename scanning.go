package rewrite

// ScanningRecipe is a recipe that needs to see every file before editing any
// of them. The engine runs it in three phases over a batch:
//
//  1. Scanner is run against every original file. It may only record facts
//     into the accumulator; whatever tree it returns is discarded.
//  2. Generate is called once, after the last scan, and may return brand new
//     files. They join the batch before editing starts.
//  3. EditVisitor is run against every file, generated ones included.
//
// The accumulator is created by InitialValue once per run and is shared by
// all workers, so it must be safe for concurrent use during the scan phase.
type ScanningRecipe[A any] interface {
	Name() string
	DisplayName() string
	Description() string
	InitialValue(ec *ExecutionContext) A
	Scanner(acc A) Visitor
	Generate(acc A, ec *ExecutionContext) ([]SourceFile, error)
	EditVisitor(acc A) Visitor
}

// Scanning adapts a ScanningRecipe to Recipe so it can be registered,
// composed and run like any other recipe.
func Scanning[A any](r ScanningRecipe[A]) Recipe {
	return &scanning[A]{r: r}
}

// scanPhases is how the engine drives a scanning recipe without knowing its
// accumulator type.
type scanPhases interface {
	begin(ec *ExecutionContext)
	scanner() Visitor
	generate(ec *ExecutionContext) ([]SourceFile, error)
	end(ec *ExecutionContext)
}

type scanning[A any] struct {
	r ScanningRecipe[A]
}

var _ scanPhases = (*scanning[struct{}])(nil)

func (s *scanning[A]) Name() string        { return s.r.Name() }
func (s *scanning[A]) DisplayName() string { return s.r.DisplayName() }
func (s *scanning[A]) Description() string { return s.r.Description() }
func (s *scanning[A]) optionSource() any   { return s.r }

func (s *scanning[A]) InstanceName() string {
	if n, ok := s.r.(InstanceNamer); ok {
		return n.InstanceName()
	}
	return ""
}

// Visitor returns the edit visitor bound to the accumulator of the run the
// cursor belongs to.
func (s *scanning[A]) Visitor() Visitor {
	return VisitorFunc(func(c *Cursor, t Tree) (Tree, error) {
		return s.r.EditVisitor(s.acc(c.ExecutionContext())).Visit(c, t)
	})
}

func (s *scanning[A]) acc(ec *ExecutionContext) A {
	if v, ok := ec.accumulator(s); ok {
		return v.(A)
	}
	v, _ := ec.accumulators.LoadOrStore(s, s.r.InitialValue(ec))
	return v.(A)
}

func (s *scanning[A]) begin(ec *ExecutionContext) {
	ec.setAccumulator(s, s.r.InitialValue(ec))
}

func (s *scanning[A]) scanner() Visitor {
	return VisitorFunc(func(c *Cursor, t Tree) (Tree, error) {
		return s.r.Scanner(s.acc(c.ExecutionContext())).Visit(c, t)
	})
}

func (s *scanning[A]) generate(ec *ExecutionContext) ([]SourceFile, error) {
	return s.r.Generate(s.acc(ec), ec)
}

func (s *scanning[A]) end(ec *ExecutionContext) {
	ec.dropAccumulator(s)
}

// scanningOf finds the scanning recipe behind r, looking through
// precondition wrappers.
func scanningOf(r Recipe) (scanPhases, bool) {
	for {
		if s, ok := r.(scanPhases); ok {
			return s, true
		}
		u, ok := r.(interface{ Unwrap() Recipe })
		if !ok {
			return nil, false
		}
		r = u.Unwrap()
	}
}
