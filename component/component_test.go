package component

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// mockComponent implements Component for testing.
type mockComponent struct {
	name       string
	startErr   error
	stopErr    error
	health     Health
	startOrder *[]string
	stopOrder  *[]string
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	if m.startOrder != nil {
		*m.startOrder = append(*m.startOrder, m.name)
	}
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	if m.stopOrder != nil {
		*m.stopOrder = append(*m.stopOrder, m.name)
	}
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) Health {
	return m.health
}

type describedComponent struct {
	mockComponent
}

func (d *describedComponent) Describe() Description {
	return Description{Type: "csv", Details: "./partners.csv"}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&mockComponent{name: "s_csv"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(&mockComponent{name: "s_csv"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestGet(t *testing.T) {
	r := NewRegistry()
	c := &mockComponent{name: "d_db"}
	r.Register(c)

	if got := r.Get("d_db"); got != c {
		t.Errorf("expected registered component, got %v", got)
	}
	if got := r.Get("missing"); got != nil {
		t.Errorf("expected nil for unknown component, got %v", got)
	}
}

func TestStartAllStopAllOrder(t *testing.T) {
	var started, stopped []string
	r := NewRegistry()
	for _, name := range []string{"a", "b", "c"} {
		r.Register(&mockComponent{name: name, startOrder: &started, stopOrder: &stopped})
	}

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	if fmt.Sprint(started) != "[a b c]" {
		t.Errorf("expected start order [a b c], got %v", started)
	}

	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if fmt.Sprint(stopped) != "[c b a]" {
		t.Errorf("expected stop order [c b a], got %v", stopped)
	}
}

func TestStartAllErrorStopsOnlyStarted(t *testing.T) {
	var stopped []string
	r := NewRegistry()
	r.Register(&mockComponent{name: "a", stopOrder: &stopped})
	r.Register(&mockComponent{name: "b", startErr: errors.New("refused"), stopOrder: &stopped})
	r.Register(&mockComponent{name: "c", stopOrder: &stopped})

	if err := r.StartAll(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
	r.StopAll(context.Background())
	if fmt.Sprint(stopped) != "[a]" {
		t.Errorf("expected only a to stop, got %v", stopped)
	}
}

func TestStopAllJoinsErrors(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	r := NewRegistry()
	r.Register(&mockComponent{name: "a", stopErr: errA})
	r.Register(&mockComponent{name: "b", stopErr: errB})
	r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("expected both stop errors, got %v", err)
	}
}

func TestHealthAll(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockComponent{name: "a", health: Health{Name: "a", Status: StatusHealthy}})
	r.Register(&mockComponent{name: "b", health: Health{Name: "b", Status: StatusUnhealthy, Message: "ping failed"}})

	h := r.HealthAll(context.Background())
	if len(h) != 2 || h[1].Status != StatusUnhealthy || h[1].Message != "ping failed" {
		t.Errorf("unexpected health: %+v", h)
	}
	if len(r.All()) != 2 {
		t.Errorf("expected 2 components, got %d", len(r.All()))
	}
}

func TestDescribe(t *testing.T) {
	d := Describe(&mockComponent{name: "plain"})
	if d.Name != "plain" || d.Type != "" {
		t.Errorf("unexpected description: %+v", d)
	}

	d = Describe(&describedComponent{mockComponent{name: "s_csv"}})
	if d.Name != "s_csv" || d.Type != "csv" || d.Details != "./partners.csv" {
		t.Errorf("unexpected description: %+v", d)
	}
}

func TestLazyOpensOnce(t *testing.T) {
	opens := 0
	l := NewLazy("db", func(context.Context) (int, error) {
		opens++
		return 42, nil
	})

	for range 3 {
		v, err := l.Get(context.Background())
		if err != nil || v != 42 {
			t.Fatalf("Get = %d, %v", v, err)
		}
	}
	if opens != 1 {
		t.Errorf("expected 1 open, got %d", opens)
	}
	if !l.IsOpen() {
		t.Error("expected open")
	}
}

func TestLazyRetriesFailedOpen(t *testing.T) {
	fail := true
	l := NewLazy("db", func(context.Context) (string, error) {
		if fail {
			return "", errors.New("refused")
		}
		return "ok", nil
	})

	if _, err := l.Get(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	fail = false
	if v, err := l.Get(context.Background()); err != nil || v != "ok" {
		t.Errorf("Get = %q, %v", v, err)
	}
}

func TestLazyClose(t *testing.T) {
	var closed []string
	l := NewLazy("db", func(context.Context) (string, error) { return "conn", nil }).
		WithCloser(func(v string) error {
			closed = append(closed, v)
			return nil
		})

	if err := l.Close(); err != nil || len(closed) != 0 {
		t.Fatalf("closing an unopened value must be a no-op: %v %v", err, closed)
	}
	l.Get(context.Background())
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if fmt.Sprint(closed) != "[conn]" || l.IsOpen() {
		t.Errorf("expected conn closed, got %v open=%v", closed, l.IsOpen())
	}
}

func TestLazyWithoutOpener(t *testing.T) {
	l := NewLazy[int]("x", nil)
	if _, err := l.Get(context.Background()); err == nil {
		t.Error("expected error without opener")
	}
}
