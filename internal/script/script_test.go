package script

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vccadmin/internal/vcc"
)

const sampleScript = `<?xml version="1.0" encoding="ISO-8859-1"?>
<ivrScript>
  <domainId>131000</domainId>
  <properties><timeout>30</timeout></properties>
  <modules>
    <incomingCall><moduleName>IncomingCall1</moduleName><moduleId>A1</moduleId></incomingCall>
    <play><moduleName>Copy of Greeting</moduleName><moduleId>A2</moduleId><prompt lang="en">Hi &amp; welcome</prompt></play>
    <play><moduleName>Greeting</moduleName><moduleId>A3</moduleId></play>
    <menu><moduleName>Copy of Greeting</moduleName><moduleId>A4</moduleId></menu>
    <hangup><moduleId>A5</moduleId></hangup>
    <play><moduleName>Café Menü</moduleName><moduleId>A6</moduleId></play>
  </modules>
  <userVariables>
    <entry><key>Existing</key><value><name>Existing</name></value></entry>
  </userVariables>
</ivrScript>`

func mustParse(t *testing.T, xml string) *Document {
	t.Helper()
	doc, err := Parse(xml)
	require.NoError(t, err)
	return doc
}

func moduleNames(doc *Document) []string {
	var names []string
	for _, m := range doc.ModuleNodes() {
		if n, ok := m.Name(); ok {
			names = append(names, n)
		}
	}
	return names
}

func TestParse(t *testing.T) {
	doc := mustParse(t, sampleScript)

	assert.Equal(t, "ivrScript", doc.Root().Tag)
	assert.Equal(t, sampleScript, doc.RawSource)
	assert.Len(t, doc.ModuleNodes(), 6)
	assert.Equal(t, []string{"Existing"}, doc.Variables())
	assert.Equal(t, "play", doc.ModuleNodes()[1].Type())

	// 非 ASCII 名稱以 UTF-8 保留
	name, ok := doc.ModuleNodes()[5].Name()
	require.True(t, ok)
	assert.Equal(t, "Café Menü", name)

	_, ok = doc.ModuleNodes()[4].Name()
	assert.False(t, ok)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{"malformed", "<ivrScript><modules id=></modules><userVariables/></ivrScript>"},
		{"empty", ""},
		{"missing modules", "<ivrScript><userVariables/></ivrScript>"},
		{"missing userVariables", "<ivrScript><modules/></ivrScript>"},
		{"duplicate modules", "<ivrScript><modules/><modules/><userVariables/></ivrScript>"},
		{"nested only", "<ivrScript><x><modules/><userVariables/></x></ivrScript>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.xml)
			require.Error(t, err)
			assert.ErrorIs(t, err, vcc.ErrParse)
			assert.Equal(t, vcc.KindParse, vcc.KindOf(err))
		})
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	doc := mustParse(t, sampleScript)

	out, err := doc.Serialize()
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(out, "<?xml"), "serialized output must not carry a declaration")
	assert.True(t, strings.HasPrefix(out, "<ivrScript>"))
	assert.Contains(t, out, "Café Menü")
	assert.Contains(t, out, "Hi &amp; welcome")

	again := mustParse(t, out)
	out2, err := again.Serialize()
	require.NoError(t, err)
	assert.Equal(t, out, out2)

	assertTreesEqual(t, doc.Root(), again.Root())
}

func assertTreesEqual(t *testing.T, a, b *etree.Element) {
	t.Helper()
	assert.Equal(t, a.Tag, b.Tag)
	require.Equal(t, len(a.Attr), len(b.Attr), "attributes of %s", a.Tag)
	for i := range a.Attr {
		assert.Equal(t, a.Attr[i].Key, b.Attr[i].Key)
		assert.Equal(t, a.Attr[i].Value, b.Attr[i].Value)
	}
	assert.Equal(t, strings.TrimSpace(a.Text()), strings.TrimSpace(b.Text()))
	ac, bc := a.ChildElements(), b.ChildElements()
	require.Equal(t, len(ac), len(bc), "children of %s", a.Tag)
	for i := range ac {
		assertTreesEqual(t, ac[i], bc[i])
	}
}

func TestSerializeDoesNotAliasDocument(t *testing.T) {
	doc := mustParse(t, sampleScript)
	out, err := doc.Serialize()
	require.NoError(t, err)

	DedupModuleNames(doc)
	out2, err := doc.Serialize()
	require.NoError(t, err)
	assert.NotEqual(t, out, out2)
}

func TestDedupModuleNames(t *testing.T) {
	doc := mustParse(t, sampleScript)

	renames := DedupModuleNames(doc)

	assert.Equal(t, []string{"IncomingCall1", "Greeting", "Greeting 1", "Greeting 2", "Café Menü"}, moduleNames(doc))
	assert.Equal(t, []Rename{
		{ModuleType: "play", From: "Copy of Greeting", To: "Greeting"},
		{ModuleType: "play", From: "Greeting", To: "Greeting 1"},
		{ModuleType: "menu", From: "Copy of Greeting", To: "Greeting 2"},
	}, renames)

	// 其他內容保持不變
	prompt := doc.Root().FindElement("modules/play/prompt")
	require.NotNil(t, prompt)
	assert.Equal(t, "en", prompt.SelectAttrValue("lang", ""))
	assert.Equal(t, "Hi & welcome", prompt.Text())
}

func TestDedupModuleNamesTable(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  []string
	}{
		{
			name:  "copies collapse onto original",
			names: []string{"Copy of Greeting", "Greeting", "Copy of Greeting"},
			want:  []string{"Greeting", "Greeting 1", "Greeting 2"},
		},
		{
			name:  "no duplicates unchanged",
			names: []string{"Start", "Menu", "End"},
			want:  []string{"Start", "Menu", "End"},
		},
		{
			name:  "nested copy prefix",
			names: []string{"Copy of Copy of Menu", "Menu"},
			want:  []string{"Menu", "Menu 1"},
		},
		{
			name:  "plain duplicates numbered",
			names: []string{"X", "X", "X", "X"},
			want:  []string{"X", "X 1", "X 2", "X 3"},
		},
		{
			name:  "generated name skips existing module",
			names: []string{"Greeting", "Greeting 1", "Copy of Greeting"},
			want:  []string{"Greeting", "Greeting 1", "Greeting 2"},
		},
		{
			name:  "generated name skips later module",
			names: []string{"Copy of Greeting", "Greeting", "Greeting 1"},
			want:  []string{"Greeting", "Greeting 2", "Greeting 1"},
		},
		{
			name:  "suffixed copy collides with numbered original",
			names: []string{"Menu 1", "Menu", "Copy of Menu 1", "Menu"},
			want:  []string{"Menu 1", "Menu", "Menu 1 1", "Menu 2"},
		},
		{
			name:  "empty modules",
			names: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b strings.Builder
			b.WriteString("<ivrScript><modules>")
			for _, n := range tt.names {
				b.WriteString("<play><moduleName>" + n + "</moduleName></play>")
			}
			b.WriteString("</modules><userVariables/></ivrScript>")

			doc := mustParse(t, b.String())
			DedupModuleNames(doc)
			got := moduleNames(doc)
			assert.Equal(t, tt.want, got)

			seen := make(map[string]bool, len(got))
			for _, n := range got {
				assert.False(t, seen[n], "duplicate module name %q in %v", n, got)
				seen[n] = true
			}
		})
	}
}

func TestDedupIdempotentOnCleanScript(t *testing.T) {
	doc := mustParse(t, "<ivrScript><modules><play><moduleName>A</moduleName></play><play><moduleName>B</moduleName></play></modules><userVariables/></ivrScript>")
	assert.Empty(t, DedupModuleNames(doc))
}

func TestAttributesFlag(t *testing.T) {
	assert.Equal(t, 192, AttributesFlag(true, true))
	assert.Equal(t, 128, AttributesFlag(false, true))
	assert.Equal(t, 64, AttributesFlag(true, false))
	assert.Equal(t, 8, AttributesFlag(false, false))
}

func TestAddVariable(t *testing.T) {
	tests := []struct {
		name      string
		spec      VariableSpec
		wantTag   string
		wantFlags string
	}{
		{"string input output", VariableSpec{Name: "CallerTier", Type: VariableTypeString, Input: true, Output: true}, "stringValue", "192"},
		{"integer output", VariableSpec{Name: "RetryCount", Type: VariableTypeInteger, Output: true}, "integerValue", "128"},
		{"string input", VariableSpec{Name: "Lang", Type: VariableTypeString, Input: true}, "stringValue", "64"},
		{"integer neither", VariableSpec{Name: "Scratch", Type: VariableTypeInteger}, "integerValue", "8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, sampleScript)
			require.NoError(t, AddVariable(doc, tt.spec, AddOptions{}))

			entries := doc.UserVariables().SelectElements("entry")
			require.Len(t, entries, 2)
			last := entries[1]

			assert.Equal(t, tt.spec.Name, last.SelectElement("key").Text())
			value := last.SelectElement("value")
			require.NotNil(t, value)

			var tags []string
			for _, c := range value.ChildElements() {
				tags = append(tags, c.Tag)
			}
			assert.Equal(t, []string{"name", "description", tt.wantTag, "attributes", "isNullValue"}, tags)

			assert.Equal(t, tt.spec.Name, value.SelectElement("name").Text())
			assert.Equal(t, "", value.SelectElement("description").Text())
			typed := value.SelectElement(tt.wantTag)
			assert.Equal(t, "", typed.SelectElement("value").Text())
			assert.Equal(t, "0", typed.SelectElement("id").Text())
			assert.Equal(t, tt.wantFlags, value.SelectElement("attributes").Text())
			assert.Equal(t, "true", value.SelectElement("isNullValue").Text())

			assert.Equal(t, []string{"Existing", tt.spec.Name}, doc.Variables())
		})
	}
}

func TestAddVariableSurvivesRoundTrip(t *testing.T) {
	doc := mustParse(t, sampleScript)
	require.NoError(t, AddVariable(doc, VariableSpec{Name: "Ünïcode", Type: VariableTypeString, Input: true, Output: true}, AddOptions{}))

	out, err := doc.Serialize()
	require.NoError(t, err)

	again := mustParse(t, out)
	assert.True(t, HasVariable(again, "Ünïcode"))
}

func TestAddVariableConflict(t *testing.T) {
	doc := mustParse(t, sampleScript)

	err := AddVariable(doc, VariableSpec{Name: "Existing", Type: VariableTypeString}, AddOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, vcc.ErrConflict)
	assert.Len(t, doc.Variables(), 1, "document must be untouched on conflict")

	require.NoError(t, AddVariable(doc, VariableSpec{Name: "Existing", Type: VariableTypeString}, AddOptions{AllowDuplicate: true}))
	assert.Equal(t, []string{"Existing", "Existing"}, doc.Variables())
}

func TestAddVariableInvalid(t *testing.T) {
	doc := mustParse(t, sampleScript)

	err := AddVariable(doc, VariableSpec{Name: "X", Type: VariableType(99)}, AddOptions{})
	assert.ErrorIs(t, err, vcc.ErrInvalidInput)

	err = AddVariable(doc, VariableSpec{Name: " ", Type: VariableTypeString}, AddOptions{})
	assert.ErrorIs(t, err, vcc.ErrInvalidInput)

	assert.Len(t, doc.Variables(), 1)
}

func TestParseVariableSpec(t *testing.T) {
	tests := []struct {
		arg     string
		want    VariableSpec
		wantErr bool
	}{
		{arg: "string:CallerTier", want: VariableSpec{Name: "CallerTier", Type: VariableTypeString, Input: true, Output: true}},
		{arg: "str:A", want: VariableSpec{Name: "A", Type: VariableTypeString, Input: true, Output: true}},
		{arg: "int:Count", want: VariableSpec{Name: "Count", Type: VariableTypeInteger, Input: true, Output: true}},
		{arg: "INTEGER:Count", want: VariableSpec{Name: "Count", Type: VariableTypeInteger, Input: true, Output: true}},
		{arg: "bool:Flag", wantErr: true},
		{arg: "CallerTier", wantErr: true},
		{arg: "string:", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := ParseVariableSpec(tt.arg)
			if tt.wantErr {
				assert.ErrorIs(t, err, vcc.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
