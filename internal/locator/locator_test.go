package locator

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPythonLocator(t *testing.T) {
	src := `import os


@cache
@retry(3)
def load(path):
    return os.path.exists(path)


async def fetch(url):
    pass

class Service:
    def method(self):
        pass

def tail():
    x = 1
    return x
`
	got, err := NewPythonLocator().Locate("app.py", []byte(src))
	require.NoError(t, err)

	want := []Declaration{
		{Name: "load", StartLine: 4, EndLine: 7},
		{Name: "fetch", StartLine: 10, EndLine: 11},
		{Name: "tail", StartLine: 17, EndLine: 19},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("declarations mismatch (-want +got):\n%s", diff)
	}
}

func TestPythonLocatorSyntaxError(t *testing.T) {
	_, err := NewPythonLocator().Locate("bad.py", []byte("def broken(:\n    pass\n"))
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestGoLocator(t *testing.T) {
	src := `package demo

import "fmt"

// Hello greets.
// It has two doc lines.
func Hello() {
	fmt.Println("hi")
}

type Box[T any] struct{ v T }

func (b *Box[T]) Get() T {
	return b.v
}

func (Box[T]) Empty() bool { return false }
`
	got, err := NewGoLocator().Locate("demo.go", []byte(src))
	require.NoError(t, err)

	want := []Declaration{
		{Name: "Hello", StartLine: 5, EndLine: 9},
		{Name: "Box.Get", StartLine: 13, EndLine: 15},
		{Name: "Box.Empty", StartLine: 17, EndLine: 17},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("declarations mismatch (-want +got):\n%s", diff)
	}
}

func TestGoLocatorSyntaxError(t *testing.T) {
	_, err := NewGoLocator().Locate("bad.go", []byte("package demo\nfunc {\n"))
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestJavaScriptLocator(t *testing.T) {
	src := `const x = 1;

function plain(a) {
  return a;
}

export function shared() {}

export default function main() {
  return plain(x);
}

function* ids() {
  yield 1;
}

const arrow = () => 2;
`
	got, err := NewJavaScriptLocator().Locate("index.js", []byte(src))
	require.NoError(t, err)

	want := []Declaration{
		{Name: "plain", StartLine: 3, EndLine: 5},
		{Name: "shared", StartLine: 7, EndLine: 7},
		{Name: "main", StartLine: 9, EndLine: 11},
		{Name: "ids", StartLine: 13, EndLine: 15},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("declarations mismatch (-want +got):\n%s", diff)
	}
}

func TestTypeScriptLocator(t *testing.T) {
	src := `interface Opts { n: number }

export function total(o: Opts): number {
  return o.n;
}
`
	got, err := NewJavaScriptLocator().Locate("calc.ts", []byte(src))
	require.NoError(t, err)

	want := []Declaration{{Name: "total", StartLine: 3, EndLine: 5}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("declarations mismatch (-want +got):\n%s", diff)
	}
}

func TestRustLocator(t *testing.T) {
	src := `use std::io;

#[inline]
#[must_use]
pub fn add(a: i32, b: i32) -> i32 {
    a + b
}

struct S;

fn main() {
    println!("{}", add(1, 2));
}
`
	got, err := NewRustLocator().Locate("lib.rs", []byte(src))
	require.NoError(t, err)

	want := []Declaration{
		{Name: "add", StartLine: 3, EndLine: 7},
		{Name: "main", StartLine: 11, EndLine: 13},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("declarations mismatch (-want +got):\n%s", diff)
	}
}

func TestFactory(t *testing.T) {
	f := DefaultFactory()

	for _, path := range []string{"a.py", "a.PYW", "a.go", "a.js", "a.tsx", "a.rs"} {
		assert.True(t, f.Has(path), path)
	}
	assert.False(t, f.Has("README.md"))

	_, err := f.Locate("notes.txt", []byte("hello"))
	assert.ErrorIs(t, err, ErrNoLocator)

	assert.Contains(t, f.Extensions(), ".mjs")
}

func TestIndentOf(t *testing.T) {
	lines := []string{"def a():", "\t  x = 1"}
	assert.Equal(t, "", indentOf(lines, 1))
	assert.Equal(t, "\t  ", indentOf(lines, 2))
	assert.Equal(t, "", indentOf(lines, 9))
}
