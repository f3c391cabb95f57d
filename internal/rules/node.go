package rules

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind identifies a rule tree node type. The set is closed: rule files may
// only use the tags enumerated here.
type Kind int

const (
	KindActions Kind = iota

	// Filters
	KindFilterAuthor
	KindFilterUser
	KindFilterCapabilities
	KindFilterLogMsg
	KindFilterComment
	KindFilterPath
	KindFilterChgType
	KindFilterFileContent
	KindFilterLockOwner
	KindFilterLockToken
	KindFilterCommitList
	KindFilterPathList
	KindFilterPropList
	KindFilterRevProp
	KindFilterStealLock
	KindFilterBreakUnlock

	// Actions
	KindSetToken
	KindSendError
	KindSendSmtp
	KindExecuteCmd
	KindSendLockToken
)

var kindNames = map[Kind]string{
	KindActions:            "Actions",
	KindFilterAuthor:       "FilterAuthor",
	KindFilterUser:         "FilterUser",
	KindFilterCapabilities: "FilterCapabilities",
	KindFilterLogMsg:       "FilterLogMsg",
	KindFilterComment:      "FilterComment",
	KindFilterPath:         "FilterPath",
	KindFilterChgType:      "FilterChgType",
	KindFilterFileContent:  "FilterFileContent",
	KindFilterLockOwner:    "FilterLockOwner",
	KindFilterLockToken:    "FilterLockToken",
	KindFilterCommitList:   "FilterCommitList",
	KindFilterPathList:     "FilterPathList",
	KindFilterPropList:     "FilterPropList",
	KindFilterRevProp:      "FilterRevProp",
	KindFilterStealLock:    "FilterStealLock",
	KindFilterBreakUnlock:  "FilterBreakUnlock",
	KindSetToken:           "SetToken",
	KindSendError:          "SendError",
	KindSendSmtp:           "SendSmtp",
	KindExecuteCmd:         "ExecuteCmd",
	KindSendLockToken:      "SendLockToken",
}

var kindByTag = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

func (k Kind) String() string {
	return kindNames[k]
}

// IsFilter reports whether the kind is a predicate node (including the
// Actions root, which behaves as an always-matching filter).
func (k Kind) IsFilter() bool {
	return k < KindSetToken
}

// condSpec names a regex tag a filter consumes and whether it must appear.
type condSpec struct {
	role     string
	required bool
}

// filterSpec describes how a filter kind is compiled.
type filterSpec struct {
	conds []condSpec
	// atLeastOne relaxes per-condition required flags to "one of".
	atLeastOne bool
	// list filters iterate a subject sequence and accept matchFirst.
	list bool
	// flag filters test a boolean hook argument via their own sense attr.
	flag bool
}

var filterSpecs = map[Kind]filterSpec{
	KindActions:            {},
	KindFilterAuthor:       {conds: []condSpec{{"AuthorRegex", true}}},
	KindFilterUser:         {conds: []condSpec{{"UserRegex", true}}},
	KindFilterCapabilities: {conds: []condSpec{{"CapabilitiesRegex", true}}},
	KindFilterLogMsg:       {conds: []condSpec{{"LogMsgRegex", true}}},
	KindFilterComment:      {conds: []condSpec{{"CommentRegex", true}}},
	KindFilterPath:         {conds: []condSpec{{"PathRegex", true}}},
	KindFilterChgType:      {conds: []condSpec{{"ChgTypeRegex", true}}},
	KindFilterFileContent:  {conds: []condSpec{{"ContentRegex", true}}},
	KindFilterLockOwner:    {conds: []condSpec{{"LockOwnerRegex", true}}},
	KindFilterLockToken:    {conds: []condSpec{{"LockTokenRegex", true}}},
	KindFilterCommitList: {
		conds:      []condSpec{{"PathRegex", false}, {"ChgTypeRegex", false}},
		atLeastOne: true,
		list:       true,
	},
	KindFilterPathList: {conds: []condSpec{{"PathRegex", true}}, list: true},
	KindFilterPropList: {
		conds: []condSpec{{"PropNameRegex", true}, {"PropValueRegex", false}},
		list:  true,
	},
	KindFilterRevProp: {
		conds: []condSpec{{"PropNameRegex", true}, {"PropValueRegex", false}},
	},
	KindFilterStealLock:   {flag: true},
	KindFilterBreakUnlock: {flag: true},
}

// Node is a compiled rule tree node: a filter with child nodes, or a leaf
// action. Each node is owned exclusively by its parent; evaluation is a
// pure top-down walk.
type Node struct {
	Kind     Kind
	Children []*Node

	// Filter fields
	Conds      []*Condition
	MatchFirst bool
	Sense      bool // flag filters only

	// Action fields
	Payload    string // command line, error message, token value
	ExitCode   int    // SendError
	ErrorLevel int    // ExecuteCmd
	TokenName  string // SetToken

	// SendSmtp fields, unexpanded: token substitution happens at run time.
	Server  string
	Timeout time.Duration // zero means the engine default
	From    string
	To      []string
	Subject string
	Message string
}

// Cond returns the node's condition with the given role, or nil.
func (n *Node) Cond(role string) *Condition {
	for _, c := range n.Conds {
		if c.Role == role {
			return c
		}
	}
	return nil
}

// Compile turns a parsed document into a rule tree, compiling every regex
// and validating attributes. All failures here happen before any evaluation
// side effect.
func Compile(root *Element) (*Node, error) {
	if root.XMLName.Local != RootTag {
		return nil, fmt.Errorf("unexpected root tag %q, want %q", root.XMLName.Local, RootTag)
	}
	return compileElement(root)
}

// Load reads, parses, and compiles a rule file.
func Load(path string) (*Node, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	return Compile(doc)
}

func compileElement(el *Element) (*Node, error) {
	kind, ok := kindByTag[el.Name()]
	if !ok {
		return nil, fmt.Errorf("action not recognized: %s", el.Name())
	}

	if kind.IsFilter() {
		return compileFilter(kind, el)
	}
	return compileAction(kind, el)
}

func compileFilter(kind Kind, el *Element) (*Node, error) {
	spec := filterSpecs[kind]
	node := &Node{Kind: kind}

	// Parameter tags consumed by this filter; everything else is a child.
	params := make(map[string]bool, len(spec.conds))
	for _, cs := range spec.conds {
		params[cs.role] = true
		tag := el.Find(cs.role)
		if tag == nil {
			if cs.required && !spec.atLeastOne {
				return nil, fmt.Errorf("required tag missing: %s", cs.role)
			}
			continue
		}
		cond, err := CompileCondition(tag)
		if err != nil {
			return nil, err
		}
		node.Conds = append(node.Conds, cond)
	}
	if spec.atLeastOne && len(node.Conds) == 0 {
		roles := make([]string, len(spec.conds))
		for i, cs := range spec.conds {
			roles[i] = cs.role
		}
		return nil, fmt.Errorf("required tag missing: %s or %s", roles[0], roles[1])
	}

	if spec.list {
		v, ok := el.Attr("matchFirst")
		node.MatchFirst = ParseSense(v, ok, false)
	}
	if spec.flag {
		v, ok := el.Attr("sense")
		node.Sense = ParseSense(v, ok, true)
	}

	for i := range el.Children {
		child := &el.Children[i]
		if params[child.Name()] {
			continue
		}
		sub, err := compileElement(child)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, sub)
	}
	return node, nil
}

func compileAction(kind Kind, el *Element) (*Node, error) {
	node := &Node{Kind: kind, Payload: el.Text}

	switch kind {
	case KindSetToken:
		name, ok := el.Attr("name")
		if !ok || name == "" {
			return nil, fmt.Errorf("required attribute missing: name")
		}
		node.TokenName = name

	case KindSendError:
		if strings.TrimSpace(node.Payload) == "" {
			return nil, fmt.Errorf("required tag content missing: SendError")
		}
		code, err := intAttr(el, "exitCode", 1)
		if err != nil {
			return nil, err
		}
		if code == 0 {
			return nil, fmt.Errorf("illegal exitCode attribute: 0")
		}
		node.ExitCode = code

	case KindExecuteCmd:
		if strings.TrimSpace(node.Payload) == "" {
			return nil, fmt.Errorf("required tag content missing: ExecuteCmd")
		}
		level, err := intAttr(el, "errorLevel", 1)
		if err != nil {
			return nil, err
		}
		node.ErrorLevel = level

	case KindSendSmtp:
		if err := compileSendSmtp(node, el); err != nil {
			return nil, err
		}

	case KindSendLockToken:
		// Payload is optional: empty means "generate one".
	}

	return node, nil
}

func compileSendSmtp(node *Node, el *Element) error {
	node.Payload = ""
	node.Server, _ = el.Attr("server")

	if v, ok := el.Attr("seconds"); ok {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return fmt.Errorf("illegal seconds attribute: %q", v)
		}
		node.Timeout = time.Duration(secs) * time.Second
	}

	from := el.Find("FromAddress")
	if from == nil {
		return fmt.Errorf("required tag missing: FromAddress")
	}
	node.From = from.Text

	for _, to := range el.FindAll("ToAddress") {
		node.To = append(node.To, to.Text)
	}
	if len(node.To) == 0 {
		return fmt.Errorf("required tag missing: ToAddress")
	}

	subject := el.Find("Subject")
	if subject == nil {
		return fmt.Errorf("required tag missing: Subject")
	}
	node.Subject = subject.Text

	message := el.Find("Message")
	if message == nil {
		return fmt.Errorf("required tag missing: Message")
	}
	node.Message = message.Text
	return nil
}

func intAttr(el *Element, name string, def int) (int, error) {
	v, ok := el.Attr(name)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("illegal %s attribute: %q", name, v)
	}
	return n, nil
}
