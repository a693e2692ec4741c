package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/runjs/config"
	"github.com/reglet-dev/runjs/domain/entities"
	domainerrors "github.com/reglet-dev/runjs/domain/errors"
	"github.com/reglet-dev/runjs/hostfuncs"
	"github.com/reglet-dev/runjs/internal/testutil"
)

type fixture struct {
	buf    *hostfuncs.HostBuffer
	stdout bytes.Buffer
	stderr bytes.Buffer
	logs   bytes.Buffer
}

func (f *fixture) engine(t *testing.T, opts ...Option) *Engine {
	t.Helper()

	reg, err := hostfuncs.NewRegistry(
		hostfuncs.WithMiddleware(hostfuncs.PanicRecoveryMiddleware()),
		hostfuncs.WithBundle(hostfuncs.BufferBundle(f.buf)),
	)
	require.NoError(t, err)

	base := []Option{
		WithOps(reg),
		WithStdout(&f.stdout),
		WithStderr(&f.stderr),
		WithLogger(slog.New(slog.NewTextHandler(&f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))),
	}
	e, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

// run writes files into a temp dir and runs entry.
func run(t *testing.T, files map[string]string, entry string, opts ...Option) (*fixture, error) {
	t.Helper()

	f := &fixture{buf: hostfuncs.NewHostBuffer()}
	ids := testutil.WriteTree(t, t.TempDir(), files)
	err := f.engine(t, opts...).Run(context.Background(), ids[entry])
	return f, err
}

func TestEngine_ImportEvaluatesBeforeImporter(t *testing.T) {
	f, err := run(t, map[string]string{
		"main.ts": `import "./b.ts";
await editor.append("b");
const s: string = await editor.read();
console.log(s);
`,
		"b.ts": `editor.append("a");`,
	}, "main.ts")
	require.NoError(t, err)

	assert.Equal(t, "ab", f.buf.String())
	assert.Equal(t, "ab\n", f.stdout.String())
}

func TestEngine_HostCallsSettleInIssueOrder(t *testing.T) {
	f, err := run(t, map[string]string{
		"main.js": `
const parts = ["one", "two", "three", "four", "five"];
const settled = [];
await Promise.all(parts.map((p) => editor.append(p).then(() => settled.push(p))));
console.log(settled.join(","));
`,
	}, "main.js")
	require.NoError(t, err)

	assert.Equal(t, "onetwothreefourfive", f.buf.String())
	assert.Equal(t, "one,two,three,four,five\n", f.stdout.String())
}

func TestEngine_ModuleKinds(t *testing.T) {
	f, err := run(t, map[string]string{
		"main.mjs": `import data from "./data.json";
import { html } from "./view.tsx";
import legacy from "./legacy.cjs";
import { twice } from "./lib/math.mts";
await editor.add_to_buffer(data.items.join(","));
await editor.append(" " + html + " " + legacy.name + " " + twice(21));
console.log(await editor.get_buffer());
`,
		"data.json": `{"items": [1, 2, 3]}`,
		"view.tsx": `const React = {
  createElement: (tag: string, _props: unknown, ...kids: string[]) => "<" + tag + ">" + kids.join("") + "</" + tag + ">",
};
export const html: string = <b>hi</b>;
`,
		"legacy.cjs":  `module.exports = { name: "cjs" };`,
		"lib/math.mts": `export const twice = (n: number): number => n * 2;`,
	}, "main.mjs")
	require.NoError(t, err)

	assert.Equal(t, "1,2,3 <b>hi</b> cjs 42", f.buf.String())
	assert.Equal(t, "1,2,3 <b>hi</b> cjs 42\n", f.stdout.String())
}

func TestEngine_ImportMetaURL(t *testing.T) {
	f := &fixture{buf: hostfuncs.NewHostBuffer()}
	ids := testutil.WriteTree(t, t.TempDir(), map[string]string{
		"main.ts": `import { where } from "./lib/dir name/dep.js";
await editor.append(import.meta.url + "|" + where);
`,
		"lib/dir name/dep.js": `export const where = import.meta.url;`,
	})

	err := f.engine(t).Run(context.Background(), ids["main.ts"])
	require.NoError(t, err)
	assert.Equal(t, ids["main.ts"].String()+"|"+ids["lib/dir name/dep.js"].String(), f.buf.String())
}

func TestEngine_ImportMetaObjectFailsLinking(t *testing.T) {
	_, err := run(t, map[string]string{
		"main.js": `const meta = import.meta; editor.append(String(meta.resolve));`,
	}, "main.js")

	evalErr := testutil.RequireErrorAs[*domainerrors.EvaluationError](t, err)
	assert.Contains(t, evalErr.Message, "link failed")
	assert.Contains(t, evalErr.Message, "import.meta")
}

func TestEngine_DynamicImport(t *testing.T) {
	f, err := run(t, map[string]string{
		"main.js": `const m = await import("./later.js");
await editor.append(m.word);
`,
		"later.js": `export const word = "late";`,
	}, "main.js")
	require.NoError(t, err)
	assert.Equal(t, "late", f.buf.String())
}

func TestEngine_Console(t *testing.T) {
	f, err := run(t, map[string]string{
		"main.js": `console.log("out", 1, { a: [true] });
console.info("info");
console.warn("careful");
console.error(new Error("bad"));
console.log(typeof __runjs, typeof editor.append);
`,
	}, "main.js")
	require.NoError(t, err)

	assert.Equal(t, "out 1 {\"a\":[true]}\ninfo\nundefined function\n", f.stdout.String())
	assert.Contains(t, f.stderr.String(), "careful\n")
	assert.Contains(t, f.stderr.String(), "bad")
}

func TestEngine_TimersAndMicrotasks(t *testing.T) {
	f, err := run(t, map[string]string{
		"main.js": `setTimeout((x) => editor.append(x), 5, "t");
const cancelled = setTimeout(() => editor.append("x"), 1);
clearTimeout(cancelled);
queueMicrotask(() => editor.append("m"));
`,
	}, "main.js")
	require.NoError(t, err)
	assert.Equal(t, "mt", f.buf.String())
}

func TestEngine_ScriptErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		contains string
	}{
		{"thrown error", `throw new Error("boom");`, "Uncaught Error: boom"},
		{"rejected await", `await Promise.reject(new TypeError("nope"));`, "Uncaught TypeError: nope"},
		{"unhandled rejection", `Promise.reject(new Error("late"));`, "Uncaught (in promise) Error: late"},
		{"stalled", `await new Promise(() => {});`, "evaluation stalled"},
		{"timer throws", `setTimeout(() => { throw new Error("tick"); }, 1);`, "Uncaught Error: tick"},
		{"bad timer callback", `setTimeout("code", 1);`, "callback is not a function"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, map[string]string{"main.js": tt.src}, "main.js")
			evalErr := testutil.RequireErrorAs[*domainerrors.EvaluationError](t, err)
			assert.Contains(t, evalErr.Error(), tt.contains)
			assert.Contains(t, evalErr.Error(), "main.js")
		})
	}
}

func TestEngine_ThrownErrorKeepsStack(t *testing.T) {
	_, err := run(t, map[string]string{"main.js": `function fail() { throw new Error("deep"); }
fail();`}, "main.js")
	evalErr := testutil.RequireErrorAs[*domainerrors.EvaluationError](t, err)
	assert.Contains(t, evalErr.Stack, "fail")
}

func TestEngine_LinkErrorsKeepTheirType(t *testing.T) {
	t.Run("bare specifier", func(t *testing.T) {
		_, err := run(t, map[string]string{"main.js": `import _ from "lodash";`}, "main.js")
		testutil.RequireErrorAs[*domainerrors.EvaluationError](t, err)
		resErr := testutil.RequireErrorAs[*domainerrors.ResolutionError](t, err)
		assert.Equal(t, "lodash", resErr.Specifier)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := run(t, map[string]string{"main.js": `import "./gone.js";`}, "main.js")
		ioErr := testutil.RequireErrorAs[*domainerrors.IoError](t, err)
		assert.Contains(t, ioErr.Identifier, "gone.js")
	})

	t.Run("type error in typescript", func(t *testing.T) {
		_, err := run(t, map[string]string{
			"main.js": `import "./bad.ts";`,
			"bad.ts":  `let x: = 1;`,
		}, "main.js")
		testutil.RequireErrorAs[*domainerrors.TranspileError](t, err)
	})

	t.Run("syntax error in javascript", func(t *testing.T) {
		_, err := run(t, map[string]string{"main.js": `let = = 1;`}, "main.js")
		evalErr := testutil.RequireErrorAs[*domainerrors.EvaluationError](t, err)
		assert.Contains(t, evalErr.Error(), "link failed")
	})
}

func TestEngine_UnknownMediaPolicy(t *testing.T) {
	files := map[string]string{
		"main.js":   `import "./style.css"; await editor.append("ran");`,
		"style.css": `body { color: red }`,
	}

	t.Run("abort", func(t *testing.T) {
		f, err := run(t, files, "main.js")
		classErr := testutil.RequireErrorAs[*domainerrors.ClassificationError](t, err)
		assert.Equal(t, ".css", classErr.Extension)
		assert.Empty(t, f.buf.String())
	})

	t.Run("skip", func(t *testing.T) {
		f, err := run(t, files, "main.js", WithUnknownMediaPolicy(config.UnknownMediaSkip))
		require.NoError(t, err)
		assert.Equal(t, "ran", f.buf.String())
		assert.Contains(t, f.logs.String(), "skipping module with unknown media type")
		assert.Contains(t, f.logs.String(), "style.css")
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := New(WithUnknownMediaPolicy("ignore"))
		testutil.RequireErrorAs[*domainerrors.ConfigError](t, err)
	})
}

func TestEngine_OpErrorRejects(t *testing.T) {
	reg, err := hostfuncs.NewRegistry(
		hostfuncs.WithByteHandler(hostfuncs.OpAppend, func(ctx context.Context, payload []byte) ([]byte, error) {
			return hostfuncs.NewValidationError("buffer is read-only").ToJSON(), nil
		}),
		hostfuncs.WithByteHandler(hostfuncs.OpRead, func(ctx context.Context, payload []byte) ([]byte, error) {
			return nil, errors.New("disk on fire")
		}),
	)
	require.NoError(t, err)

	var stdout bytes.Buffer
	e, err := New(WithOps(reg), WithStdout(&stdout))
	require.NoError(t, err)
	defer e.Close()

	ids := testutil.WriteTree(t, t.TempDir(), map[string]string{"main.js": `
try {
  await editor.append("x");
} catch (e) {
  console.log(String(e));
}
await editor.read();
`})
	err = e.Run(context.Background(), ids["main.js"])

	assert.Contains(t, stdout.String(), "VALIDATION_ERROR")
	assert.Contains(t, stdout.String(), "buffer is read-only")
	evalErr := testutil.RequireErrorAs[*domainerrors.EvaluationError](t, err)
	assert.Contains(t, evalErr.Error(), "disk on fire")
}

func TestEngine_PanickingOpIsRecovered(t *testing.T) {
	reg, err := hostfuncs.NewRegistry(
		hostfuncs.WithMiddleware(hostfuncs.PanicRecoveryMiddleware()),
		hostfuncs.WithByteHandler(hostfuncs.OpAppend, func(context.Context, []byte) ([]byte, error) { panic("kaboom") }),
		hostfuncs.WithByteHandler(hostfuncs.OpRead, func(context.Context, []byte) ([]byte, error) { return []byte(`{"text":""}`), nil }),
	)
	require.NoError(t, err)

	var stdout bytes.Buffer
	e, err := New(WithOps(reg), WithStdout(&stdout))
	require.NoError(t, err)
	defer e.Close()

	ids := testutil.WriteTree(t, t.TempDir(), map[string]string{"main.js": `
await editor.append("x").catch((e) => console.log(String(e)));
console.log(JSON.stringify(await editor.read()));
`})
	require.NoError(t, e.Run(context.Background(), ids["main.js"]))

	assert.Contains(t, stdout.String(), "panic: kaboom")
	assert.Contains(t, stdout.String(), "\n\"\"\n")
}

func TestNew_MissingOps(t *testing.T) {
	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `op "append" has no registered handler`)

	reg, err := hostfuncs.NewRegistry(hostfuncs.WithByteHandler(hostfuncs.OpAppend, func(context.Context, []byte) ([]byte, error) { return nil, nil }))
	require.NoError(t, err)
	_, err = New(WithOps(reg))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `op "read" has no registered handler`)
}

func TestEngine_Cancellation(t *testing.T) {
	t.Run("busy script", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		f := &fixture{buf: hostfuncs.NewHostBuffer()}
		ids := testutil.WriteTree(t, t.TempDir(), map[string]string{"main.js": `while (true) {}`})
		err := f.engine(t).Run(ctx, ids["main.js"])
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("waiting on a timer", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		f := &fixture{buf: hostfuncs.NewHostBuffer()}
		e := f.engine(t)
		ids := testutil.WriteTree(t, t.TempDir(), map[string]string{"main.js": `setTimeout(() => editor.append("never"), 60000);`})

		require.NoError(t, e.LoadMainModule(ctx, ids["main.js"]))
		require.NoError(t, e.Evaluate(ctx))
		assert.Equal(t, 1, e.Pending())

		time.AfterFunc(20*time.Millisecond, cancel)
		err := e.RunEventLoop(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, f.buf.String())
	})

	t.Run("before linking", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		f := &fixture{buf: hostfuncs.NewHostBuffer()}
		ids := testutil.WriteTree(t, t.TempDir(), map[string]string{"main.js": `1`})
		err := f.engine(t).LoadMainModule(ctx, ids["main.js"])
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestEngine_StepOrder(t *testing.T) {
	f := &fixture{buf: hostfuncs.NewHostBuffer()}
	e := f.engine(t)

	assert.Error(t, e.Evaluate(context.Background()))
	assert.Error(t, e.Result())

	err := e.LoadMainModule(context.Background(), &url.URL{Path: "main.js"})
	testutil.RequireErrorAs[*domainerrors.IoError](t, err)
}

// MockLoader serves modules from memory.
type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Load(ctx context.Context, id *url.URL) (*entities.ModuleSource, error) {
	args := m.Called(ctx, id.String())
	src, _ := args.Get(0).(*entities.ModuleSource)
	return src, args.Error(1)
}

func TestEngine_UsesConfiguredLoader(t *testing.T) {
	ml := new(MockLoader)
	ml.On("Load", mock.Anything, "file:///virtual/main.js").Return(&entities.ModuleSource{
		Identifier: "file:///virtual/main.js",
		Code:       `import { v } from "./dep.js"; await editor.append(v);`,
		Kind:       entities.ModuleKindJavaScript,
	}, nil).Once()
	ml.On("Load", mock.Anything, "file:///virtual/dep.js").Return(&entities.ModuleSource{
		Identifier: "file:///virtual/dep.js",
		Code:       `export const v = "virtual";`,
		Kind:       entities.ModuleKindJavaScript,
	}, nil).Once()

	f := &fixture{buf: hostfuncs.NewHostBuffer()}
	e := f.engine(t, WithLoader(ml))

	entry, err := url.Parse("file:///virtual/main.js")
	require.NoError(t, err)
	require.NoError(t, e.Run(context.Background(), entry))

	assert.Equal(t, "virtual", f.buf.String())
	ml.AssertExpectations(t)
	assert.Contains(t, f.logs.String(), "module graph linked")
}
