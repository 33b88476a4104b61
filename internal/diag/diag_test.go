package diag

import (
	"bytes"
	"strings"
	"testing"
)

func newTestSink() (*Sink, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	s := &Sink{
		out:     &out,
		errOut:  &errOut,
		enabled: make(map[Aspect]bool),
		color:   false,
	}
	return s, &out, &errOut
}

func TestTraceRespectsAllowList(t *testing.T) {
	s, out, _ := newTestSink()

	s.Trace(AspectModecheck, "checking %s", "inc/2")
	if out.Len() != 0 {
		t.Fatalf("expected no output for disabled aspect, got %q", out.String())
	}

	s.Enable(AspectModecheck)
	s.Trace(AspectModecheck, "checking %s", "inc/2")
	if !strings.Contains(out.String(), "checking inc/2") {
		t.Errorf("expected trace line, got %q", out.String())
	}
	if !strings.Contains(out.String(), "[modecheck]") {
		t.Errorf("expected aspect tag, got %q", out.String())
	}
}

func TestEnableAllCoversEveryAspect(t *testing.T) {
	s, out, _ := newTestSink()
	s.EnableAll()

	for _, a := range []Aspect{AspectModecheck, AspectUnbranch, AspectBuild, AspectLastcall, AspectProcspec} {
		out.Reset()
		s.Trace(a, "ping")
		if out.Len() == 0 {
			t.Errorf("expected aspect %s to be enabled after EnableAll", a)
		}
	}
}

func TestWarnAndErrorBypassAllowList(t *testing.T) {
	s, _, errOut := newTestSink()

	s.Warn(AspectBuild, "fork fusion skipped degenerate case")
	if !strings.Contains(errOut.String(), "fork fusion skipped") {
		t.Errorf("expected warning regardless of allow-list, got %q", errOut.String())
	}

	errOut.Reset()
	s.Error(AspectProcspec, "fixed point did not converge after %d iterations", 8)
	if !strings.Contains(errOut.String(), "fixed point did not converge") {
		t.Errorf("expected error line, got %q", errOut.String())
	}
}

func TestSuccessRespectsAllowList(t *testing.T) {
	s, out, _ := newTestSink()

	s.Success(AspectProcspec, "module m compiled")
	if out.Len() != 0 {
		t.Fatalf("expected no output for disabled aspect, got %q", out.String())
	}

	s.Enable(AspectProcspec)
	s.Success(AspectProcspec, "module m compiled")
	if !strings.Contains(out.String(), "module m compiled") {
		t.Errorf("expected success line, got %q", out.String())
	}
}
