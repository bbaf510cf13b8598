package analysis

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/panbanda/lcom/internal/cache"
	"github.com/panbanda/lcom/pkg/analyzer"
	"github.com/panbanda/lcom/pkg/analyzer/cohesion"
	"github.com/panbanda/lcom/pkg/config"
)

const counterSource = `
namespace Shop
{
    public class Counter
    {
        private int count;
        private string name;

        public void Inc() { count++; }
        public void Reset() { count = 0; }
        public void Rename(string n) { name = n; }
    }

    public interface IShape
    {
        void Draw();
    }
}
`

const pointSource = `
package geo;

public class Point {
    private int x;

    public int get() { return x; }
    public void set(int v) { x = v; }
}
`

func testFiles() analyzer.MemorySource {
	return analyzer.MemorySource{
		"src/Counter.cs": []byte(counterSource),
		"src/Point.java": []byte(pointSource),
	}
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	base := []Option{WithConfig(config.DefaultConfig()), WithSource(testFiles())}
	return New(append(base, opts...)...)
}

func TestNew_Defaults(t *testing.T) {
	svc := New(WithConfig(config.DefaultConfig()))
	assert.NotNil(t, svc.logger)
	assert.NotNil(t, svc.source)
	assert.Nil(t, svc.cache)
	assert.Equal(t, "strict", svc.Config().Analysis.InheritedMethods)
}

func TestAnalyzeLCOM(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.AnalyzeLCOM(context.Background(), []string{"src/Counter.cs", "src/Point.java"}, LCOMOptions{})
	require.NoError(t, err)

	require.Len(t, result.Types, 2)
	assert.Equal(t, "Shop.Counter", result.Types[0].TypeName)
	assert.Equal(t, 1, result.Types[0].LCOM)
	assert.Equal(t, "geo.Point", result.Types[1].TypeName)
	assert.Equal(t, 0, result.Types[1].LCOM)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 2, result.Summary.TotalTypes)
	assert.Equal(t, 1, result.Summary.CohesiveTypes)
}

func TestAnalyzeLCOM_IncludeInterfaces(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.AnalyzeLCOM(context.Background(), []string{"src/Counter.cs"}, LCOMOptions{IncludeInterfaces: true})
	require.NoError(t, err)

	_, ok := result.Find("IShape")
	assert.True(t, ok, "interface should be reported when included")
}

func TestAnalyzeLCOM_SortAndTop(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.AnalyzeLCOM(context.Background(), []string{"src/Point.java", "src/Counter.cs"}, LCOMOptions{Sort: "lcom", Top: 1})
	require.NoError(t, err)

	require.Len(t, result.Types, 1)
	assert.Equal(t, "Shop.Counter", result.Types[0].TypeName)
	// The summary covers every type, not just the ones shown.
	assert.Equal(t, 2, result.Summary.TotalTypes)
}

func TestAnalyzeLCOM_InvalidOptions(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.AnalyzeLCOM(context.Background(), []string{"src/Counter.cs"}, LCOMOptions{InheritedMethods: "sometimes"})
	assert.Error(t, err)

	_, err = svc.AnalyzeLCOM(context.Background(), []string{"src/Counter.cs"}, LCOMOptions{Sort: "size"})
	assert.Error(t, err)
}

func TestAnalyzeLCOM_MissingFile(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.AnalyzeLCOM(context.Background(), []string{"src/Gone.cs", "src/Point.java", "src/Gone.cs"}, LCOMOptions{})
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "src/Gone.cs", result.Errors[0].Path)
	assert.Empty(t, result.Errors[0].TypeName)
	assert.Len(t, result.Types, 1)
}

func TestAnalyzeLCOM_Progress(t *testing.T) {
	svc := newTestService(t)

	var last, total int
	_, err := svc.AnalyzeLCOM(context.Background(), []string{"src/Counter.cs", "src/Point.java"}, LCOMOptions{
		OnProgress: func(done, expected int, _ string) {
			last, total = done, expected
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, last)
	assert.Equal(t, 2, total)
}

func TestAnalyzeLCOM_Cancelled(t *testing.T) {
	svc := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.AnalyzeLCOM(ctx, []string{"src/Counter.cs"}, LCOMOptions{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestAnalyzeLCOM_Cache(t *testing.T) {
	c, err := cache.New(filepath.Join(t.TempDir(), "cache"), 24, true)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	src := testFiles()
	svc := New(WithConfig(config.DefaultConfig()), WithSource(src), WithCache(c), WithLogger(zap.New(core)))
	files := []string{"src/Counter.cs", "src/Point.java"}

	first, err := svc.AnalyzeLCOM(context.Background(), files, LCOMOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, logs.FilterMessage("cache hit").Len())

	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)

	second, err := svc.AnalyzeLCOM(context.Background(), files, LCOMOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, logs.FilterMessage("cache hit").Len())
	assert.Equal(t, first.Types, second.Types)

	// A different policy must not reuse results computed under another.
	_, err = svc.AnalyzeLCOM(context.Background(), files, LCOMOptions{InheritedMethods: "permissive"})
	require.NoError(t, err)
	assert.Equal(t, 2, logs.FilterMessage("cache hit").Len())

	// Changed content is re-analyzed.
	src["src/Point.java"] = []byte(`package geo; public class Point { private int x; private int y; public int a() { return x; } public int b() { return y; } }`)
	third, err := svc.AnalyzeLCOM(context.Background(), files, LCOMOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, logs.FilterMessage("cache hit").Len())
	point, ok := third.Find("Point")
	require.True(t, ok)
	assert.Equal(t, 1, point.LCOM)
}

func TestAnalyzeLCOM_PartialTypesBypassCache(t *testing.T) {
	c, err := cache.New(filepath.Join(t.TempDir(), "cache"), 24, true)
	require.NoError(t, err)

	src := analyzer.MemorySource{
		"src/A.cs":       []byte("partial class Foo { int x; void M1() { x = 1; } }"),
		"src/B.cs":       []byte("partial class Foo { void M2() { x = 2; } }"),
		"src/Point.java": []byte(pointSource),
	}
	svc := New(WithConfig(config.DefaultConfig()), WithSource(src), WithCache(c))
	files := []string{"src/A.cs", "src/B.cs", "src/Point.java"}

	first, err := svc.AnalyzeLCOM(context.Background(), files, LCOMOptions{})
	require.NoError(t, err)
	foo, ok := first.Find("Foo")
	require.True(t, ok)
	assert.Equal(t, 0, foo.LCOM)

	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries, "only Point.java is cached")

	src["src/B.cs"] = []byte("partial class Foo { int y; void M2() { y = 2; } }")
	second, err := svc.AnalyzeLCOM(context.Background(), files, LCOMOptions{})
	require.NoError(t, err)
	foo, ok = second.Find("Foo")
	require.True(t, ok)
	assert.Equal(t, 1, foo.LCOM)
	assert.Len(t, second.Types, 2)
}

func TestExplain_Parts(t *testing.T) {
	src := analyzer.MemorySource{
		"src/A.cs": []byte("partial class Foo { int x; void M1() { x = 1; } }"),
		"src/B.cs": []byte("partial class Foo { void M2() { x = 2; } }"),
	}
	svc := New(WithConfig(config.DefaultConfig()), WithSource(src))

	e, err := svc.Explain(context.Background(), "src/A.cs", "Foo", ExplainOptions{Parts: []string{"src/B.cs"}})
	require.NoError(t, err)
	require.Len(t, e.Methods, 2)
	assert.Equal(t, 0, e.Counts.LCOM)
}

func TestExplain(t *testing.T) {
	svc := newTestService(t)

	e, err := svc.Explain(context.Background(), "src/Counter.cs", "Counter", ExplainOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Shop.Counter", e.TypeName)
	assert.Equal(t, "strict", e.InheritedMethods)
	require.Len(t, e.Members, 2)
	assert.Equal(t, "count", e.Members[0].Name)
	require.Len(t, e.Methods, 3)
	assert.Equal(t, "10", e.Methods[0].Vector)
	assert.Equal(t, []string{"name"}, e.Methods[2].Uses)
	assert.Equal(t, 1, e.Counts.LCOM)
}

func TestExplain_Errors(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Explain(context.Background(), "src/Counter.cs", "Nope", ExplainOptions{})
	assert.ErrorIs(t, err, cohesion.ErrTypeNotFound)

	_, err = svc.Explain(context.Background(), "src/Counter.cs", "Counter", ExplainOptions{BackingFields: "merge"})
	assert.Error(t, err)
}
