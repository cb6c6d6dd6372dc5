package lua

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/reconcile/internal/engine/document"
	"github.com/dshills/reconcile/internal/logging"
	"github.com/dshills/reconcile/internal/reconciler/dirty"
)

// DefaultTimeout bounds a single call into the script.
const DefaultTimeout = 5 * time.Second

// Annotation is a finding reported by a script.
type Annotation struct {
	Offset      int
	Length      int
	Message     string
	ContentType string
}

// String returns "offset+length: message".
func (a Annotation) String() string {
	return fmt.Sprintf("%d+%d: %s", a.Offset, a.Length, a.Message)
}

// Option configures a Strategy.
type Option func(*Strategy)

// WithTimeout bounds each call into the script. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Strategy) {
		s.timeout = d
	}
}

// WithLogger sets the logger that receives print output.
func WithLogger(l *logging.Logger) Option {
	return func(s *Strategy) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithName sets the chunk name used in Lua error messages.
func WithName(name string) Option {
	return func(s *Strategy) {
		s.name = name
	}
}

// Strategy runs a Lua script for every reconciled partition.
type Strategy struct {
	mu          sync.Mutex
	L           *lua.LState
	doc         *document.Document
	annotations []Annotation
	closed      bool

	name    string
	timeout time.Duration
	logger  *logging.Logger
}

// New loads script into a sandboxed state. The script must define a global
// reconcile function.
func New(script string, opts ...Option) (*Strategy, error) {
	s := &Strategy{
		name:    "strategy",
		timeout: DefaultTimeout,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("lua")

	s.L = newSandboxedState(s.logger)
	s.L.SetGlobal("doc", s.docModule())

	fn, err := s.L.Load(strings.NewReader(script), s.name)
	if err != nil {
		s.L.Close()
		return nil, fmt.Errorf("load %s: %w", s.name, err)
	}
	if _, err := s.call(context.Background(), fn); err != nil {
		s.L.Close()
		return nil, fmt.Errorf("run %s: %w", s.name, err)
	}

	if s.L.GetGlobal("reconcile").Type() != lua.LTFunction {
		s.L.Close()
		return nil, ErrNoReconcileFunc
	}
	return s, nil
}

// NewFromFile loads the script at path.
func NewFromFile(path string, opts ...Option) (*Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(string(data), append([]Option{WithName(path)}, opts...)...)
}

// SetDocument implements reconciler.Strategy.
func (s *Strategy) SetDocument(doc *document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
}

// Reconcile implements reconciler.Strategy by calling the script's
// reconcile function.
func (s *Strategy) Reconcile(ctx context.Context, region dirty.Region, partition document.TypedRegion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	regionTbl := s.L.NewTable()
	regionTbl.RawSetString("type", lua.LString(region.Type.String()))
	regionTbl.RawSetString("offset", lua.LNumber(region.Offset))
	regionTbl.RawSetString("length", lua.LNumber(region.Length))
	regionTbl.RawSetString("text", lua.LString(region.Text))

	partTbl := s.L.NewTable()
	partTbl.RawSetString("offset", lua.LNumber(partition.Offset))
	partTbl.RawSetString("length", lua.LNumber(partition.Length))
	partTbl.RawSetString("type", lua.LString(partition.Type))

	ret, err := s.call(ctx, s.L.GetGlobal("reconcile"), regionTbl, partTbl)
	if err != nil {
		return fmt.Errorf("reconcile %s: %w", region, err)
	}
	return s.collect(ret, partition)
}

// InitialReconcile implements reconciler.InitialReconciler. Scripts without
// an initial function are skipped.
func (s *Strategy) InitialReconcile(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	fn := s.L.GetGlobal("initial")
	if fn.Type() != lua.LTFunction {
		return nil
	}
	ret, err := s.call(ctx, fn)
	if err != nil {
		return fmt.Errorf("initial: %w", err)
	}
	return s.collect(ret, document.TypedRegion{Type: document.DefaultContentType})
}

// call invokes fn with args and returns its first result. Must hold mu.
func (s *Strategy) call(ctx context.Context, fn lua.LValue, args ...lua.LValue) (lua.LValue, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	err := s.protect(func() error {
		return s.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...)
	})
	if err != nil {
		s.L.SetTop(0)
		return lua.LNil, err
	}
	ret := s.L.Get(-1)
	s.L.Pop(1)
	return ret, nil
}

// protect converts Go panics raised while running Lua into errors.
func (s *Strategy) protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// collect appends the annotations in ret. Must hold mu.
func (s *Strategy) collect(ret lua.LValue, partition document.TypedRegion) error {
	if ret == lua.LNil {
		return nil
	}
	list, ok := ret.(*lua.LTable)
	if !ok {
		return fmt.Errorf("%w, got %s", ErrBadResult, ret.Type())
	}

	for i := 1; i <= list.Len(); i++ {
		entry, ok := list.RawGetInt(i).(*lua.LTable)
		if !ok {
			return fmt.Errorf("%w: entry %d is %s", ErrBadResult, i, list.RawGetInt(i).Type())
		}
		a := Annotation{
			Offset:      intField(entry, "offset", partition.Offset),
			Length:      intField(entry, "length", 0),
			Message:     lua.LVAsString(entry.RawGetString("message")),
			ContentType: partition.Type,
		}
		s.annotations = append(s.annotations, a)
	}
	return nil
}

func intField(t *lua.LTable, key string, def int) int {
	if n, ok := t.RawGetString(key).(lua.LNumber); ok {
		return int(n)
	}
	return def
}

// Annotations returns the annotations collected so far, in report order.
func (s *Strategy) Annotations() []Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.annotations)
}

// ClearAnnotations discards collected annotations.
func (s *Strategy) ClearAnnotations() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.annotations = nil
}

// Close releases the Lua state. It is safe to call more than once.
func (s *Strategy) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.L.Close()
	return nil
}

// docModule builds the doc table. Its functions run while mu is held by
// Reconcile or InitialReconcile, so they read s.doc directly.
func (s *Strategy) docModule() *lua.LTable {
	withDoc := func(fn func(L *lua.LState, doc *document.Document) int) lua.LGFunction {
		return func(L *lua.LState) int {
			if s.doc == nil {
				L.RaiseError("%v", ErrNoDocument)
				return 0
			}
			return fn(L, s.doc)
		}
	}

	return s.L.SetFuncs(s.L.NewTable(), map[string]lua.LGFunction{
		"text": withDoc(func(L *lua.LState, doc *document.Document) int {
			text, err := doc.GetRange(L.CheckInt(1), L.CheckInt(2))
			if err != nil {
				L.RaiseError("%v", err)
				return 0
			}
			L.Push(lua.LString(text))
			return 1
		}),
		"length": withDoc(func(L *lua.LState, doc *document.Document) int {
			L.Push(lua.LNumber(doc.Len()))
			return 1
		}),
		"line_count": withDoc(func(L *lua.LState, doc *document.Document) int {
			L.Push(lua.LNumber(doc.NumberOfLines()))
			return 1
		}),
		"line_of_offset": withDoc(func(L *lua.LState, doc *document.Document) int {
			line, err := doc.LineOfOffset(L.CheckInt(1))
			if err != nil {
				L.RaiseError("%v", err)
				return 0
			}
			L.Push(lua.LNumber(line))
			return 1
		}),
		"line_offset": withDoc(func(L *lua.LState, doc *document.Document) int {
			offset, err := doc.LineOffset(L.CheckInt(1))
			if err != nil {
				L.RaiseError("%v", err)
				return 0
			}
			L.Push(lua.LNumber(offset))
			return 1
		}),
	})
}
