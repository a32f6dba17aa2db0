package refactordiligence

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"unsafe"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	golang "github.com/alexaandru/go-sitter-forest/go"
	"github.com/alexaandru/go-sitter-forest/python"
	"github.com/alexaandru/go-sitter-forest/ruby"
	"github.com/src-d/enry/v2"

	"github.com/directional-star/diggit/pkg/safeconv"
	"github.com/directional-star/diggit/pkg/textutil"
)

var (
	errPoolType   = errors.New("unexpected parser pool type")
	errNoRootNode = errors.New("parse produced no root node")
)

// Method is one method or function found in a file version.
type Method struct {
	// Name is qualified by the enclosing class, module or receiver.
	Name  string
	Line  int
	Lines int
}

// grammar describes how one language declares scopes and methods.
type grammar struct {
	load func() unsafe.Pointer
	// scopes are node types that open a named scope.
	scopes map[string]bool
	// methods are node types that declare a method or function.
	methods map[string]bool
	// nestMethods makes a method's own name a scope for definitions inside it.
	nestMethods bool
	qualify     func(n sitter.Node, src []byte, scope []string) string
	// namespace names the unit a qualified method name is unique within.
	namespace func(file string) string

	once sync.Once
	pool sync.Pool
}

var grammars = map[string]*grammar{
	"Ruby": {
		load:    ruby.GetLanguage,
		scopes:  map[string]bool{"class": true, "module": true},
		methods: map[string]bool{"method": true, "singleton_method": true},
		qualify:   qualifyRuby,
		namespace: rubyNamespace,
	},
	"Go": {
		load:    golang.GetLanguage,
		methods: map[string]bool{"function_declaration": true, "method_declaration": true},
		qualify:   qualifyGo,
		namespace: goNamespace,
	},
	"Python": {
		load:        python.GetLanguage,
		scopes:      map[string]bool{"class_definition": true},
		methods:     map[string]bool{"function_definition": true},
		nestMethods: true,
		qualify:     qualifyPython,
		namespace:   pythonNamespace,
	},
}

func (g *grammar) parser() (*sitter.Parser, error) {
	g.once.Do(func() {
		lang := sitter.NewLanguage(g.load())
		g.pool.New = func() any {
			p := sitter.NewParser()
			p.SetLanguage(lang)

			return p
		}
	})

	p, ok := g.pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	return p, nil
}

// Scanner extracts methods from Ruby, Go and Python sources with tree-sitter.
// It is safe for concurrent use.
type Scanner struct{}

// NewScanner creates a scanner.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Supports reports whether path is in a scanned language.
func (s *Scanner) Supports(path string) bool {
	return grammarFor(path) != nil
}

// Namespace returns the unit within which a method name from file is unique:
// the package directory for Go, the module path for Python and the whole
// repository for Ruby, whose classes are reopened across files.
func (s *Scanner) Namespace(file string) string {
	g := grammarFor(file)
	if g == nil {
		return file
	}

	return g.namespace(file)
}

func grammarFor(path string) *grammar {
	return grammars[enry.GetLanguage(filepath.Base(path), nil)]
}

func rubyNamespace(string) string {
	return ""
}

func goNamespace(file string) string {
	return path.Dir(file)
}

// pythonNamespace maps a/b/c.py to a.b.c and a/b/__init__.py to a.b.
func pythonNamespace(file string) string {
	module := strings.TrimSuffix(file, path.Ext(file))
	module = strings.TrimSuffix(module, "/__init__")

	return strings.ReplaceAll(module, "/", ".")
}

// Scan returns the methods declared in content, in source order. When the
// same qualified name is declared twice only the first is kept. Unsupported
// languages and binary content yield no methods.
func (s *Scanner) Scan(ctx context.Context, path string, content []byte) ([]Method, error) {
	g := grammarFor(path)
	if g == nil || textutil.IsBinary(content) {
		return nil, nil
	}

	p, err := g.parser()
	if err != nil {
		return nil, err
	}
	defer g.pool.Put(p)

	tree, err := p.ParseString(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, errNoRootNode
	}

	w := walker{g: g, src: content, seen: make(map[string]bool)}
	w.walk(root, nil)

	return w.methods, nil
}

type walker struct {
	g       *grammar
	src     []byte
	seen    map[string]bool
	methods []Method
}

func (w *walker) walk(n sitter.Node, scope []string) {
	typ := n.Type()

	switch {
	case w.g.scopes[typ]:
		if name := nodeText(n.ChildByFieldName("name"), w.src); name != "" {
			scope = append(scope[:len(scope):len(scope)], name)
		}
	case w.g.methods[typ]:
		name := w.g.qualify(n, w.src, scope)
		if name != "" && !w.seen[name] {
			w.seen[name] = true
			start, end := n.StartPoint(), n.EndPoint()
			w.methods = append(w.methods, Method{
				Name:  name,
				Line:  safeconv.ToInt(start.Row) + 1,
				Lines: safeconv.ToInt(end.Row) - safeconv.ToInt(start.Row) + 1,
			})
		}

		if w.g.nestMethods {
			scope = append(scope[:len(scope):len(scope)], nodeText(n.ChildByFieldName("name"), w.src))
		}
	}

	for idx := range n.NamedChildCount() {
		w.walk(n.NamedChild(idx), scope)
	}
}

func nodeText(n sitter.Node, src []byte) string {
	if n.IsNull() {
		return ""
	}

	start, end := safeconv.ToInt(n.StartByte()), safeconv.ToInt(n.EndByte())
	if start > end || end > len(src) {
		return ""
	}

	return string(src[start:end])
}

// firstOfType returns the first descendant of n, in document order, of type typ.
func firstOfType(n sitter.Node, typ string) sitter.Node {
	if n.IsNull() || n.Type() == typ {
		return n
	}

	for idx := range n.NamedChildCount() {
		if found := firstOfType(n.NamedChild(idx), typ); !found.IsNull() {
			return found
		}
	}

	return sitter.Node{}
}

// qualifyRuby names instance methods Scope#name and singleton methods
// Scope.name, with nested scopes joined by "::".
func qualifyRuby(n sitter.Node, src []byte, scope []string) string {
	name := nodeText(n.ChildByFieldName("name"), src)
	if name == "" || len(scope) == 0 {
		return name
	}

	sep := "#"
	if n.Type() == "singleton_method" {
		sep = "."
	}

	return strings.Join(scope, "::") + sep + name
}

// qualifyGo names methods Receiver.Name and functions by their bare name.
func qualifyGo(n sitter.Node, src []byte, _ []string) string {
	name := nodeText(n.ChildByFieldName("name"), src)
	if name == "" || n.Type() != "method_declaration" {
		return name
	}

	recv := nodeText(firstOfType(n.ChildByFieldName("receiver"), "type_identifier"), src)
	if recv == "" {
		return name
	}

	return recv + "." + name
}

// qualifyPython joins enclosing classes and functions with dots.
func qualifyPython(n sitter.Node, src []byte, scope []string) string {
	name := nodeText(n.ChildByFieldName("name"), src)
	if name == "" || len(scope) == 0 {
		return name
	}

	return strings.Join(scope, ".") + "." + name
}
