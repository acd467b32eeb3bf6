package relay

import (
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jpl-au/relay/pathspec"
)

// AnyMethod matches every request method.
const AnyMethod = "*"

var (
	// ErrAlreadySent is returned by Sender when a response has already been started.
	ErrAlreadySent = errors.New("relay: response already sent")
	// ErrNextCalled is returned when a continuation is invoked more than once.
	ErrNextCalled = errors.New("relay: next called more than once")
	// ErrNoTemplates is returned by Sender.HTML when the router has no TemplateRenderer.
	ErrNoTemplates = errors.New("relay: no template renderer configured")
)

// Next resumes the chain at the following action and returns once the rest of
// the chain, including whatever sent the response, has finished. Each Next may
// be called at most once; further calls return ErrNextCalled.
type Next func() error

// Handler is an action in the chain. It either sends a response and returns,
// or calls next to hand the request to the actions registered after it.
// Returned errors travel back up through every handler that called next.
type Handler func(ctx *Context, next Next) error

// Router is an ordered list of actions. Each request walks the list in
// registration order; there is no other notion of priority. Registration is
// not safe for concurrent use and must be finished before serving starts.
type Router struct {
	reg       *registry
	prefix    string
	verbose   bool
	logger    *logrus.Logger
	notFound  Handler
	templates TemplateRenderer
}

type registry struct {
	actions []*action
}

// New returns a new, empty Router that logs to the standard logrus logger.
func New() *Router {
	return &Router{
		reg:    &registry{},
		logger: logrus.StandardLogger(),
	}
}

// WithVerbose toggles verbose mode. Verbose routers log every match decision
// at debug level and list the registered actions in the default 404 body.
func (rt *Router) WithVerbose(verbose bool) *Router {
	rt.verbose = verbose
	return rt
}

// WithLogger sets the logger used by the router and handed to each Context.
func (rt *Router) WithLogger(logger *logrus.Logger) *Router {
	if logger == nil {
		panic("relay: nil logger passed to WithLogger")
	}
	rt.logger = logger
	return rt
}

// WithNotFound replaces the action run when nothing else ends the chain.
// Calling next from it sends the default 404 response.
func (rt *Router) WithNotFound(h Handler) *Router {
	rt.notFound = h
	return rt
}

// WithTemplates sets the renderer used by Sender.HTML.
func (rt *Router) WithTemplates(t TemplateRenderer) *Router {
	rt.templates = t
	return rt
}

// Verbose reports whether verbose mode is on.
func (rt *Router) Verbose() bool {
	return rt.verbose
}

// On registers h for requests whose method is in methods and whose path
// matches spec. Include AnyMethod to accept every method. Captured
// parameters are written to Context.Params before h runs. Requests that do
// not match skip straight to the next action. On panics if spec is empty or
// uses the same placeholder name twice.
func (rt *Router) On(methods []string, spec string, h Handler) *Router {
	if h == nil {
		panic("relay: nil handler passed to On")
	}
	m, err := rt.compile(spec)
	if err != nil {
		panic(fmt.Sprintf("relay: invalid pathspec: %v", err))
	}
	return rt.on(methods, m, h)
}

// OnRegexp is like On but takes a caller-compiled pattern. Capture groups in
// re are not turned into parameters.
func (rt *Router) OnRegexp(methods []string, re *regexp.Regexp, h Handler) *Router {
	if h == nil {
		panic("relay: nil handler passed to OnRegexp")
	}
	if re == nil {
		panic("relay: nil pattern passed to OnRegexp")
	}
	return rt.on(methods, pathspec.FromRegexp(re), h)
}

func (rt *Router) on(methods []string, m *pathspec.Matcher, h Handler) *Router {
	if len(methods) == 0 {
		panic("relay: no methods passed to On")
	}
	set := make(map[string]struct{}, len(methods))
	for _, method := range methods {
		set[strings.ToUpper(method)] = struct{}{}
	}
	rt.add(&action{
		methods: set,
		matcher: m,
		handler: h,
		desc:    fmt.Sprintf("%s %s -> %s", strings.Join(sortedMethods(set), ","), m, funcName(h)),
	})
	return rt
}

// Any registers h for every method. See On.
func (rt *Router) Any(spec string, h Handler) *Router {
	return rt.On([]string{AnyMethod}, spec, h)
}

// Get registers h for GET requests. See On.
func (rt *Router) Get(spec string, h Handler) *Router {
	return rt.On([]string{http.MethodGet}, spec, h)
}

// Post registers h for POST requests. See On.
func (rt *Router) Post(spec string, h Handler) *Router {
	return rt.On([]string{http.MethodPost}, spec, h)
}

// Put registers h for PUT requests. See On.
func (rt *Router) Put(spec string, h Handler) *Router {
	return rt.On([]string{http.MethodPut}, spec, h)
}

// Patch registers h for PATCH requests. See On.
func (rt *Router) Patch(spec string, h Handler) *Router {
	return rt.On([]string{http.MethodPatch}, spec, h)
}

// Delete registers h for DELETE requests. See On.
func (rt *Router) Delete(spec string, h Handler) *Router {
	return rt.On([]string{http.MethodDelete}, spec, h)
}

// Head registers h for HEAD requests. See On.
func (rt *Router) Head(spec string, h Handler) *Router {
	return rt.On([]string{http.MethodHead}, spec, h)
}

// Options registers h for OPTIONS requests. See On.
func (rt *Router) Options(spec string, h Handler) *Router {
	return rt.On([]string{http.MethodOptions}, spec, h)
}

// OnAll registers h for every request. Inside Route it only runs for paths
// under the group's prefix.
func (rt *Router) OnAll(h Handler) *Router {
	if h == nil {
		panic("relay: nil handler passed to OnAll")
	}
	rt.add(&action{
		test:    rt.prefixTest(nil),
		handler: h,
		desc:    rt.describeUnconditional("all", h),
	})
	return rt
}

// OnIf registers h for requests for which test returns true.
func (rt *Router) OnIf(test func(*Context) bool, h Handler) *Router {
	if test == nil {
		panic("relay: nil test passed to OnIf")
	}
	if h == nil {
		panic("relay: nil handler passed to OnIf")
	}
	rt.add(&action{
		test:    rt.prefixTest(test),
		handler: h,
		desc:    rt.describeUnconditional("if", h),
	})
	return rt
}

// Use registers standard net/http middleware as unconditional actions, in order.
func (rt *Router) Use(mw ...func(http.Handler) http.Handler) *Router {
	for _, fn := range mw {
		if fn == nil {
			panic("relay: nil middleware passed to Use")
		}
	}
	for _, fn := range mw {
		rt.OnAll(Adapt(fn))
	}
	return rt
}

// Route creates a routing group with a path prefix. Pathspecs registered
// within fn have the prefix prepended, and OnAll/OnIf actions registered
// within fn only run for paths under the prefix. Groups append to the same
// list as their parent, so registration order still decides priority.
// Prefixes nest.
func (rt *Router) Route(prefix string, fn func(*Router)) *Router {
	if fn == nil {
		panic("relay: nil function passed to Route")
	}
	group := *rt
	group.prefix = rt.prefix + prefix
	fn(&group)
	return rt
}

// Actions returns a description of every registered action, in order.
func (rt *Router) Actions() []string {
	out := make([]string, len(rt.reg.actions))
	for i, a := range rt.reg.actions {
		out[i] = a.String()
	}
	return out
}

// String lists the registered actions, one per line.
func (rt *Router) String() string {
	var b strings.Builder
	for _, a := range rt.reg.actions {
		fmt.Fprintf(&b, " - %s\n", a)
	}
	return b.String()
}

func (rt *Router) add(a *action) {
	rt.reg.actions = append(rt.reg.actions, a)
}

// compile prepends the group prefix to a pathspec. Inside a group the
// wildcard matches the prefix and everything beneath it.
func (rt *Router) compile(spec string) (*pathspec.Matcher, error) {
	if rt.prefix == "" {
		return pathspec.Compile(spec)
	}
	if spec == pathspec.Wildcard {
		return pathspec.Prefix(rt.prefix), nil
	}
	return pathspec.Compile(rt.prefix + spec)
}

func (rt *Router) prefixTest(test func(*Context) bool) func(*Context) bool {
	if rt.prefix == "" {
		return test
	}
	under := pathspec.Prefix(rt.prefix)
	return func(ctx *Context) bool {
		if _, ok := under.Match(ctx.URL.Path); !ok {
			return false
		}
		return test == nil || test(ctx)
	}
}

func (rt *Router) describeUnconditional(kind string, h Handler) string {
	if rt.prefix != "" {
		return fmt.Sprintf("%s %s -> %s", kind, rt.prefix, funcName(h))
	}
	return fmt.Sprintf("%s -> %s", kind, funcName(h))
}

func sortedMethods(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// funcName names h for action listings: the innermost named function, without
// its import path or closure suffixes, so the result does not depend on how
// the binary was built or what the compiler inlined.
func funcName(h Handler) string {
	fn := runtime.FuncForPC(reflect.ValueOf(h).Pointer())
	if fn == nil {
		return "handler"
	}
	return shortFuncName(fn.Name())
}

var closureSuffix = regexp.MustCompile(`^(func|gowrap)?[0-9]+$`)

func shortFuncName(full string) string {
	parts := strings.Split(full[strings.LastIndex(full, "/")+1:], ".")
	for i := len(parts) - 1; i > 0; i-- {
		part := strings.TrimSuffix(parts[i], "-fm")
		if !closureSuffix.MatchString(part) {
			return part
		}
	}
	return parts[0]
}
