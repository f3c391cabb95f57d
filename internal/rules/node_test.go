package rules

import (
	"strings"
	"testing"
	"time"
)

func mustCompile(t *testing.T, doc string) *Node {
	t.Helper()
	node, err := Compile(mustParse(t, doc))
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return node
}

func compileErr(t *testing.T, doc string) error {
	t.Helper()
	_, err := Compile(mustParse(t, doc))
	if err == nil {
		t.Fatal("expected compile error, got nil")
	}
	return err
}

func TestCompileTree(t *testing.T) {
	root := mustCompile(t, sampleDoc)

	if root.Kind != KindActions {
		t.Fatalf("root kind = %v", root.Kind)
	}
	if len(root.Children) != 2 {
		t.Fatalf("root has %d children, want 2", len(root.Children))
	}

	author := root.Children[0]
	if author.Kind != KindFilterAuthor {
		t.Fatalf("first child kind = %v", author.Kind)
	}
	if cond := author.Cond("AuthorRegex"); cond == nil || cond.Sense {
		t.Error("AuthorRegex condition missing or sense not negated")
	}
	// The condition tag must not also appear as a child node.
	if len(author.Children) != 1 {
		t.Fatalf("FilterAuthor has %d children, want 1", len(author.Children))
	}

	list := author.Children[0]
	if list.Kind != KindFilterCommitList || !list.MatchFirst {
		t.Errorf("commit list kind=%v matchFirst=%v", list.Kind, list.MatchFirst)
	}

	sendErr := list.Children[0]
	if sendErr.Kind != KindSendError || sendErr.ExitCode != 2 {
		t.Errorf("send error kind=%v exitCode=%d", sendErr.Kind, sendErr.ExitCode)
	}

	token := root.Children[1]
	if token.Kind != KindSetToken || token.TokenName != "greeting" || token.Payload != "hello" {
		t.Errorf("set token = %+v", token)
	}
}

func TestCompileSendSmtp(t *testing.T) {
	root := mustCompile(t, `
<Actions>
  <SendSmtp server="mail.example.com" seconds="30">
    <FromAddress>svn@example.com</FromAddress>
    <ToAddress>dev@example.com</ToAddress>
    <ToAddress>ops@example.com</ToAddress>
    <Subject>Commit by $Author</Subject>
    <Message>Changed: $Path</Message>
  </SendSmtp>
</Actions>`)

	smtp := root.Children[0]
	if smtp.Server != "mail.example.com" {
		t.Errorf("server = %q", smtp.Server)
	}
	if smtp.Timeout != 30*time.Second {
		t.Errorf("timeout = %v", smtp.Timeout)
	}
	if smtp.From != "svn@example.com" {
		t.Errorf("from = %q", smtp.From)
	}
	if len(smtp.To) != 2 || smtp.To[1] != "ops@example.com" {
		t.Errorf("to = %v", smtp.To)
	}
	if smtp.Subject != "Commit by $Author" || smtp.Message != "Changed: $Path" {
		t.Errorf("subject=%q message=%q", smtp.Subject, smtp.Message)
	}
}

func TestCompileDefaults(t *testing.T) {
	root := mustCompile(t, `
<Actions>
  <SendError>nope</SendError>
  <ExecuteCmd>check.sh $ReposPath</ExecuteCmd>
  <FilterCommitList>
    <PathRegex>.</PathRegex>
    <SetToken name="x">y</SetToken>
  </FilterCommitList>
</Actions>`)

	if code := root.Children[0].ExitCode; code != 1 {
		t.Errorf("default exitCode = %d, want 1", code)
	}
	if level := root.Children[1].ErrorLevel; level != 1 {
		t.Errorf("default errorLevel = %d, want 1", level)
	}
	if root.Children[2].MatchFirst {
		t.Error("matchFirst should default to false")
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			"unknown tag",
			`<Actions><FilterBogus><SendError>x</SendError></FilterBogus></Actions>`,
			"action not recognized",
		},
		{
			"author filter missing regex",
			`<Actions><FilterAuthor><SendError>x</SendError></FilterAuthor></Actions>`,
			"required tag missing: AuthorRegex",
		},
		{
			"commit list missing both regexes",
			`<Actions><FilterCommitList><SendError>x</SendError></FilterCommitList></Actions>`,
			"required tag missing: PathRegex or ChgTypeRegex",
		},
		{
			"prop list missing name regex",
			`<Actions><FilterPropList><PropValueRegex>x</PropValueRegex></FilterPropList></Actions>`,
			"required tag missing: PropNameRegex",
		},
		{
			"send error empty",
			`<Actions><SendError></SendError></Actions>`,
			"required tag content missing",
		},
		{
			"send error bad exit code",
			`<Actions><SendError exitCode="abc">x</SendError></Actions>`,
			"illegal exitCode attribute",
		},
		{
			"send error zero exit code",
			`<Actions><SendError exitCode="0">x</SendError></Actions>`,
			"illegal exitCode attribute",
		},
		{
			"set token missing name",
			`<Actions><SetToken>x</SetToken></Actions>`,
			"required attribute missing: name",
		},
		{
			"smtp missing from",
			`<Actions><SendSmtp server="m"><ToAddress>a</ToAddress><Subject>s</Subject><Message>m</Message></SendSmtp></Actions>`,
			"required tag missing: FromAddress",
		},
		{
			"smtp missing recipients",
			`<Actions><SendSmtp server="m"><FromAddress>f</FromAddress><Subject>s</Subject><Message>m</Message></SendSmtp></Actions>`,
			"required tag missing: ToAddress",
		},
		{
			"smtp bad seconds",
			`<Actions><SendSmtp server="m" seconds="-2"><FromAddress>f</FromAddress><ToAddress>a</ToAddress><Subject>s</Subject><Message>m</Message></SendSmtp></Actions>`,
			"illegal seconds attribute",
		},
		{
			"bad nested regex",
			`<Actions><FilterLogMsg><LogMsgRegex>[</LogMsgRegex></FilterLogMsg></Actions>`,
			"invalid pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := compileErr(t, tt.doc)
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func TestCompileFlagFilters(t *testing.T) {
	root := mustCompile(t, `
<Actions>
  <FilterStealLock><SendError>no stealing</SendError></FilterStealLock>
  <FilterBreakUnlock sense="false"><SendError>x</SendError></FilterBreakUnlock>
</Actions>`)

	if !root.Children[0].Sense {
		t.Error("FilterStealLock sense should default to true")
	}
	if root.Children[1].Sense {
		t.Error("FilterBreakUnlock sense=false not honored")
	}
}
