package hook

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strings"
)

// ErrMalformedInvocation is returned when hook arguments or STDIN data do
// not match the Subversion hook protocol.
var ErrMalformedInvocation = errors.New("malformed invocation")

// Context is the immutable fact set of one hook invocation, plus the token
// table the evaluator mutates during its walk. It is built once by the hook
// entry point and owned by it.
type Context struct {
	Kind      Kind
	ReposPath string
	User      string

	// Commit hooks
	Txn          string
	Revision     string
	Capabilities string

	// Lock hooks
	Path      string
	Comment   string
	LockToken string
	Steal     bool
	Break     bool

	// Revprop hooks
	PropName   string
	PropAction string
	PropValue  string

	// Paths carries the STDIN path list of post-lock/post-unlock.
	Paths []string
	// LockTokens is the pre-commit STDIN lock-token table, keyed by
	// unescaped repository path.
	LockTokens map[string]string

	// Tokens is the substitution table: environment variables, hook
	// facts, and anything SetToken registers during the walk.
	Tokens map[string]string
}

// NewContext validates the positional arguments and STDIN payload for the
// hook kind and builds the typed context.
func NewContext(kind Kind, args []string, stdin io.Reader) (*Context, error) {
	if len(args) != kind.ArgCount() {
		return nil, fmt.Errorf("%w: %s expects %d arguments, got %d",
			ErrMalformedInvocation, kind, kind.ArgCount(), len(args))
	}

	ctx := &Context{Kind: kind, ReposPath: args[0], Tokens: make(map[string]string)}

	switch kind {
	case StartCommit:
		ctx.User = args[1]
		ctx.Capabilities = args[2]

	case PreCommit:
		ctx.Txn = args[1]
		tokens, err := ParseLockTokens(stdin)
		if err != nil {
			return nil, err
		}
		ctx.LockTokens = tokens

	case PostCommit:
		ctx.Revision = args[1]

	case PreRevPropChange, PostRevPropChange:
		ctx.Revision = args[1]
		ctx.User = args[2]
		ctx.PropName = args[3]
		ctx.PropAction = args[4]
		value, err := readAll(stdin)
		if err != nil {
			return nil, err
		}
		ctx.PropValue = value

	case PreLock:
		ctx.Path = args[1]
		ctx.User = args[2]
		ctx.Comment = args[3]
		ctx.Steal = args[4] == "1"

	case PreUnlock:
		ctx.Path = args[1]
		ctx.User = args[2]
		ctx.LockToken = args[3]
		ctx.Break = args[4] == "1"

	case PostLock, PostUnlock:
		ctx.User = args[1]
		paths, err := ParsePathList(stdin)
		if err != nil {
			return nil, err
		}
		ctx.Paths = paths
	}

	ctx.seedTokens()
	return ctx, nil
}

// seedTokens initializes the substitution table from the environment and
// the hook facts.
func (c *Context) seedTokens() {
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			c.Tokens[kv[:i]] = kv[i+1:]
		}
	}

	set := func(name, value string) {
		if value != "" {
			c.Tokens[name] = value
		}
	}
	set("ReposPath", c.ReposPath)
	set("User", c.User)
	set("Transaction", c.Txn)
	set("Revision", c.Revision)
	set("Capabilities", c.Capabilities)
	set("Path", c.Path)
	set("Comment", c.Comment)
	set("LockToken", c.LockToken)
	set("PropName", c.PropName)
	set("PropAction", c.PropAction)
	set("PropValue", c.PropValue)
}

// tokenRef matches $Name, ${Name}, and the $$ escape.
var tokenRef = regexp.MustCompile(`\$(?:\$|([A-Za-z_]\w*)|\{([A-Za-z_]\w*)\})`)

// Expand substitutes token references in a template. A reference to a token
// that was never set is left as literal text.
func (c *Context) Expand(template string) string {
	return tokenRef.ReplaceAllStringFunc(template, func(m string) string {
		if m == "$$" {
			return "$"
		}
		name := strings.TrimLeft(m, "$")
		name = strings.Trim(name, "{}")
		if v, ok := c.Tokens[name]; ok {
			return v
		}
		return m
	})
}

// ParseLockTokens parses the pre-commit STDIN block: a literal LOCK-TOKENS:
// line, then "URI-escaped-path|token" lines until a blank line. Duplicate
// paths overwrite earlier entries: last write wins.
func ParseLockTokens(r io.Reader) (map[string]string, error) {
	tokens := make(map[string]string)
	if r == nil {
		return tokens, nil
	}

	scanner := bufio.NewScanner(r)
	inBlock := false
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if !inBlock {
			if line == "LOCK-TOKENS:" {
				inBlock = true
			}
			continue
		}
		if line == "" {
			break
		}

		escaped, token, found := strings.Cut(line, "|")
		if !found {
			return nil, fmt.Errorf("%w: malformed lock-token line: %q",
				ErrMalformedInvocation, line)
		}
		path, err := url.PathUnescape(escaped)
		if err != nil {
			return nil, fmt.Errorf("%w: bad lock-token path %q: %v",
				ErrMalformedInvocation, escaped, err)
		}
		tokens[path] = token
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInvocation, err)
	}
	return tokens, nil
}

// ParsePathList reads the newline-separated path list post-lock and
// post-unlock receive on STDIN.
func ParsePathList(r io.Reader) ([]string, error) {
	var paths []string
	if r == nil {
		return paths, nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line != "" {
			paths = append(paths, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInvocation, err)
	}
	return paths, nil
}

func readAll(r io.Reader) (string, error) {
	if r == nil {
		return "", nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedInvocation, err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}
