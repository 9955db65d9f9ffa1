package component

import (
	"testing"

	"github.com/go-drift/blocks/pkg/async"
)

// --- fixtures ---

type plainBlock struct {
	Base
	Label string
}

func (b *plainBlock) Declare(d *Declaration) {
	d.Field("count", Default(0)).
		Prop("title", Default("untitled")).
		SystemField("ready", Default(false))
}

func (b *plainBlock) Shout() string { return "hey" }

type childBlock struct {
	plainBlock
}

func (b *childBlock) Declare(d *Declaration) {
	d.Field("extra", Default("x")).
		Method("count", func(ctx *Context, args ...any) any { return 42 })
}

func registerFixture(t *testing.T, name, parent string, proto Block) *Meta {
	t.Helper()
	m, err := Register(name, parent, proto)
	if err != nil {
		t.Fatalf("Register(%s): %v", name, err)
	}
	t.Cleanup(func() { Unregister(name) })
	return m
}

// --- registration and layered lookup ---

func TestRegister_BuildsMeta(t *testing.T) {
	m := registerFixture(t, "plain", "", &plainBlock{})

	if m.ComponentName != "plain" {
		t.Errorf("expected name plain, got %s", m.ComponentName)
	}
	if _, ok := m.FieldByName("count"); !ok {
		t.Error("declared field count not found")
	}
	if _, ok := m.Prop("title"); !ok {
		t.Error("declared prop title not found")
	}
	if _, ok := m.SystemField("ready"); !ok {
		t.Error("declared system field ready not found")
	}
}

type namedBlock struct{ Base }

func (b *namedBlock) Declare(d *Declaration) {
	d.Name("bFancy").Field("x", Default(1))
}

func TestRegister_DeclaredNameWins(t *testing.T) {
	m := registerFixture(t, "fancyAlias", "", &namedBlock{})

	if m.ComponentName != "bFancy" {
		t.Errorf("ComponentName = %q, want bFancy", m.ComponentName)
	}
	got, _, ok := Lookup("fancyAlias")
	if !ok || got != m {
		t.Error("registry key should stay the lookup alias")
	}
}

func TestRegister_UnknownParent(t *testing.T) {
	if _, err := Register("orphan", "nobody", &plainBlock{}); err == nil {
		t.Fatal("expected error for unknown parent")
	}
}

func TestRegister_ReflectsPrototypeMethods(t *testing.T) {
	m := registerFixture(t, "plain", "", &plainBlock{})

	mt, ok := m.MethodByName("shout")
	if !ok {
		t.Fatal("prototype method Shout should be registered as shout")
	}
	if got := mt.Call(&Context{}); got != "hey" {
		t.Errorf("expected hey, got %v", got)
	}
	if _, ok := m.MethodByName("declare"); ok {
		t.Error("Base-promoted methods must not become component methods")
	}
}

func TestMeta_ChildReadsThroughParent(t *testing.T) {
	parent := registerFixture(t, "plain", "", &plainBlock{})
	child := registerFixture(t, "child", "plain", &childBlock{})

	if child.Parent() != parent {
		t.Fatal("child meta should link to parent meta")
	}
	if _, ok := child.Prop("title"); !ok {
		t.Error("child should read parent's prop through the chain")
	}
	if _, ok := child.FieldByName("extra"); !ok {
		t.Error("child's own field missing")
	}
}

func TestMeta_MethodDemotesSameNamedField(t *testing.T) {
	registerFixture(t, "plain", "", &plainBlock{})
	child := registerFixture(t, "child", "plain", &childBlock{})

	if _, ok := child.FieldByName("count"); ok {
		t.Error("field count should be demoted by same-named method")
	}
	if _, ok := child.MethodByName("count"); !ok {
		t.Error("method count should resolve")
	}
	if _, ok := child.AllFields()["count"]; ok {
		t.Error("merged field view must omit demoted names")
	}
}

func TestNewMeta_HookListsAreIndependent(t *testing.T) {
	parent := NewMeta(nil)
	parent.Hooks[StageCreated] = append(parent.Hooks[StageCreated], &Hook{
		Name: "a",
		Fn:   func(ctx *Context, args ...any) *async.Completion { return nil },
	})
	parent.Watchers["count"] = append(parent.Watchers["count"], &Watcher{Handler: MethodName("onCount")})

	child := NewMeta(parent)
	child.Hooks[StageCreated] = append(child.Hooks[StageCreated], &Hook{
		Name: "b",
		Fn:   func(ctx *Context, args ...any) *async.Completion { return nil },
	})
	child.Watchers["count"] = append(child.Watchers["count"], &Watcher{Handler: MethodName("other")})

	if len(parent.Hooks[StageCreated]) != 1 {
		t.Errorf("parent hook list grew to %d, child append must not leak", len(parent.Hooks[StageCreated]))
	}
	if len(parent.Watchers["count"]) != 1 {
		t.Errorf("parent watcher list grew to %d", len(parent.Watchers["count"]))
	}
	if len(child.Hooks[StageCreated]) != 2 {
		t.Errorf("child should see inherited plus own hooks, got %d", len(child.Hooks[StageCreated]))
	}
}

func TestNewMeta_ParamsAreIndependent(t *testing.T) {
	parent := NewMeta(nil)
	parent.Params.Provide = map[string]any{"theme": "dark"}
	parent.Params.Inject = make([]string, 1, 4)
	parent.Params.Inject[0] = "locale"

	child := NewMeta(parent)
	child.Params.Provide["leak"] = "child-only"
	child.Params.Inject = append(child.Params.Inject, "session")

	if _, ok := parent.Params.Provide["leak"]; ok {
		t.Error("child Provide write must not reach the parent meta")
	}
	if len(parent.Params.Inject) != 1 || parent.Params.Inject[0] != "locale" {
		t.Errorf("parent Inject = %v, want [locale]", parent.Params.Inject)
	}
	if child.Params.Provide["theme"] != "dark" {
		t.Error("child should inherit the parent's provided values")
	}
}

type provideBaseBlock struct{ Base }

func (b *provideBaseBlock) Declare(d *Declaration) {
	d.Provide("theme", "dark")
}

type provideChildBlock struct{ provideBaseBlock }

func (b *provideChildBlock) Declare(d *Declaration) {
	d.Provide("accent", "red")
}

func TestRegister_ChildProvideStaysOffParent(t *testing.T) {
	parent := registerFixture(t, "provideBase", "", &provideBaseBlock{})
	child := registerFixture(t, "provideChild", "provideBase", &provideChildBlock{})

	if _, ok := parent.Params.Provide["accent"]; ok {
		t.Error("subclass Provide leaked into the parent class meta")
	}
	if child.Params.Provide["theme"] != "dark" {
		t.Error("child should inherit the parent's provided values")
	}
	if child.Params.Provide["accent"] != "red" {
		t.Error("child's own Provide missing")
	}
}

type redeclareBlock struct{ childBlock }

func (b *redeclareBlock) Declare(d *Declaration) {
	d.Field("count", Default(7))
}

func TestMeta_ChildRedeclaresDemotedField(t *testing.T) {
	registerFixture(t, "plain", "", &plainBlock{})
	registerFixture(t, "child", "plain", &childBlock{})
	gc := registerFixture(t, "redeclare", "child", &redeclareBlock{})

	f, ok := gc.FieldByName("count")
	if !ok {
		t.Fatal("redeclared field should resolve on the grandchild")
	}
	if f.Default != 7 {
		t.Errorf("redeclaration default = %v, want 7", f.Default)
	}
	mf, ok := gc.AllFields()["count"]
	if !ok {
		t.Fatal("merged view must include the redeclared field")
	}
	if mf.Default != 7 {
		t.Errorf("merged view default = %v, want 7", mf.Default)
	}
	// The intermediate layer still demotes it for itself.
	mid, _, _ := Lookup("child")
	if _, ok := mid.AllFields()["count"]; ok {
		t.Error("demoting layer must not see the field")
	}
}

func TestMeta_AccessorProxies(t *testing.T) {
	proto := &accessorBlock{}
	m := registerFixture(t, "accessors", "", proto)

	getter, ok := m.MethodByName("fullNameGetter")
	if !ok {
		t.Fatal("accessor should synthesize fullNameGetter proxy")
	}
	if _, ok := m.MethodByName("fullNameSetter"); !ok {
		t.Fatal("accessor should synthesize fullNameSetter proxy")
	}
	if got := getter.Call(&Context{}); got != "static" {
		t.Errorf("expected static, got %v", got)
	}
}

type accessorBlock struct {
	Base
}

func (b *accessorBlock) Declare(d *Declaration) {
	d.Accessor("fullName",
		func(ctx *Context) any { return "static" },
		nil)
}

// --- declaration validation ---

type badAfterBlock struct{ Base }

func (b *badAfterBlock) Declare(d *Declaration) {
	d.Field("a", Default(1), After("missing"))
}

func TestRegister_MissingAfterReference(t *testing.T) {
	if _, err := Register("bad", "", &badAfterBlock{}); err == nil {
		t.Fatal("expected error for after-reference to unknown field")
	}
}

type badAtomBlock struct{ Base }

func (b *badAtomBlock) Declare(d *Declaration) {
	d.Field("plain", Default(1)).
		Field("atomic", Default(2), Atom(), After("plain"))
}

func TestRegister_AtomAfterNonAtom(t *testing.T) {
	if _, err := Register("badAtom", "", &badAtomBlock{}); err == nil {
		t.Fatal("expected error for atomic field depending on non-atomic field")
	}
}

func TestMeta_MergedViewsPreferChild(t *testing.T) {
	registerFixture(t, "plain", "", &plainBlock{})
	child := registerFixture(t, "shadow", "plain", &shadowBlock{})

	f, ok := child.AllFields()["count"]
	if !ok {
		t.Fatal("count should survive in merged view")
	}
	if f.Default != 10 {
		t.Errorf("child redeclaration should win, got default %v", f.Default)
	}
}

type shadowBlock struct{ plainBlock }

func (b *shadowBlock) Declare(d *Declaration) {
	d.Field("count", Default(10))
}
