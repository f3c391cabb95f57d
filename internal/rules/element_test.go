package rules

import (
	"strings"
	"testing"
)

const sampleDoc = `<?xml version="1.0"?>
<Actions>
  <FilterAuthor>
    <AuthorRegex sense="false">^(alice|bob)$</AuthorRegex>
    <FilterCommitList matchFirst="true">
      <PathRegex>^/trunk/</PathRegex>
      <SendError exitCode="2">No direct trunk commits.</SendError>
    </FilterCommitList>
  </FilterAuthor>
  <SetToken name="greeting">hello</SetToken>
</Actions>
`

func TestParseDocument(t *testing.T) {
	root := mustParse(t, sampleDoc)

	if root.Name() != "Actions" {
		t.Fatalf("root tag = %q, want Actions", root.Name())
	}
	if len(root.Children) != 2 {
		t.Fatalf("root has %d children, want 2", len(root.Children))
	}

	author := root.Find("FilterAuthor")
	if author == nil {
		t.Fatal("FilterAuthor not found")
	}
	regex := author.Find("AuthorRegex")
	if regex == nil {
		t.Fatal("AuthorRegex not found")
	}
	if v, ok := regex.Attr("sense"); !ok || v != "false" {
		t.Errorf("sense attr = %q, %v", v, ok)
	}
	if regex.Text != "^(alice|bob)$" {
		t.Errorf("regex text = %q", regex.Text)
	}

	token := root.Find("SetToken")
	if v, _ := token.Attr("name"); v != "greeting" {
		t.Errorf("name attr = %q, want greeting", v)
	}
}

func TestParseDocumentErrors(t *testing.T) {
	if _, err := ParseDocument([]byte(`<Actions><Unclosed></Actions>`)); err == nil {
		t.Error("expected parse error for malformed XML")
	}
	if _, err := ParseDocument([]byte(`<Rules></Rules>`)); err == nil {
		t.Error("expected error for wrong root tag")
	}
}

// Re-serializing a parsed document must preserve node order, attributes,
// and nesting.
func TestDocumentRoundTrip(t *testing.T) {
	first := mustParse(t, sampleDoc)

	data, err := first.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	second, err := ParseDocument(data)
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}

	assertSameElement(t, first, second, "Actions")
}

func assertSameElement(t *testing.T, a, b *Element, path string) {
	t.Helper()

	if a.Name() != b.Name() {
		t.Fatalf("%s: tag %q != %q", path, a.Name(), b.Name())
	}
	if len(a.Attrs) != len(b.Attrs) {
		t.Fatalf("%s: %d attrs != %d attrs", path, len(a.Attrs), len(b.Attrs))
	}
	for i := range a.Attrs {
		if a.Attrs[i].Name.Local != b.Attrs[i].Name.Local ||
			a.Attrs[i].Value != b.Attrs[i].Value {
			t.Errorf("%s: attr %d differs: %v != %v", path, i, a.Attrs[i], b.Attrs[i])
		}
	}
	if strings.TrimSpace(a.Text) != strings.TrimSpace(b.Text) {
		t.Errorf("%s: text %q != %q", path, a.Text, b.Text)
	}
	if len(a.Children) != len(b.Children) {
		t.Fatalf("%s: %d children != %d children", path, len(a.Children), len(b.Children))
	}
	for i := range a.Children {
		assertSameElement(t, &a.Children[i], &b.Children[i],
			path+"/"+a.Children[i].Name())
	}
}
