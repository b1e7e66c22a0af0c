package ocr

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

type fakeCall struct {
	name string
	args []string
}

type fakeResponse struct {
	stdout string
	stderr string
	err    error
}

// fakeRunner answers by binary name and records every call.
type fakeRunner struct {
	responses map[string]fakeResponse
	calls     []fakeCall
}

func (f *fakeRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, fakeCall{name: name, args: args})
	r, ok := f.responses[name]
	if !ok {
		return nil, []byte("not found"), errors.New("exec: " + name + ": not found")
	}
	return []byte(r.stdout), []byte(r.stderr), r.err
}

func (f *fakeRunner) argsOf(name string) string {
	for _, c := range f.calls {
		if c.name == name {
			return strings.Join(c.args, " ")
		}
	}
	return ""
}
