package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/wellnest/wellnest-api/internal/otpflow"
)

// terminal is both the navigator and the view of a controller mounted in a
// shell. Any Replace or Back ends the session.
type terminal struct {
	out io.Writer

	mu     sync.Mutex
	route  string
	params otpflow.Params

	done chan struct{}
	once sync.Once
}

func newTerminal(out io.Writer) *terminal {
	return &terminal{out: out, done: make(chan struct{})}
}

func (t *terminal) printf(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

func (t *terminal) finish(route string, params otpflow.Params) {
	t.mu.Lock()
	t.route, t.params = route, params
	t.mu.Unlock()
	t.once.Do(func() { close(t.done) })
}

// Landing returns where the flow ended, "" if it did not navigate away
func (t *terminal) Landing() (string, otpflow.Params) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.route, t.params
}

func (t *terminal) Push(route string, params otpflow.Params) {
	t.printf("-> %s\n", route)
}

func (t *terminal) Replace(route string, params otpflow.Params) {
	t.finish(route, params)
}

func (t *terminal) Back() {
	t.finish("", nil)
}

func (t *terminal) SetVerifying(loading bool) {
	if loading {
		t.printf("verifying...\n")
	}
}

func (t *terminal) SetResending(loading bool) {
	if loading {
		t.printf("requesting a new code...\n")
	}
}

func (t *terminal) Focus(int) {}

func (t *terminal) Notify(n otpflow.Notice) {
	t.printf("[%s] %s\n", n.Level, n.Message)
}

// render prints the slots with the focused one bracketed
func render(code otpflow.Code, focus int) string {
	var b strings.Builder
	for i := 0; i < otpflow.CodeLength; i++ {
		d := code.Slot(i)
		if d == "" {
			d = "_"
		}
		if i == focus {
			b.WriteString("[" + d + "]")
		} else {
			b.WriteString(" " + d + " ")
		}
	}
	return b.String()
}

// run feeds stdin lines to the controller until the flow navigates away, the
// user quits or input ends.
func (t *terminal) run(ctx context.Context, ctrl *otpflow.Controller, in io.Reader) error {
	lines := make(chan string)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-stop:
				return
			}
		}
	}()

	for {
		select {
		case <-t.done:
			return nil
		default:
		}
		t.printf("%s > ", render(ctrl.Code(), ctrl.Focus()))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.done:
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := t.handle(ctx, ctrl, line); quit {
				return nil
			}
		}
	}
}

func (t *terminal) handle(ctx context.Context, ctrl *otpflow.Controller, line string) bool {
	focus := ctrl.Focus()
	switch strings.ToLower(line) {
	case "":
	case "quit", "q":
		return true
	case "submit":
		ctrl.Submit(ctx)
	case "resend":
		ctrl.Resend(ctx)
	case "clear":
		ctrl.Clear()
	case "<":
		// a filled slot is cleared in place, an empty one steps back
		if ctrl.Code().Slot(focus) != "" {
			ctrl.ChangeDigit("", focus)
		} else {
			ctrl.KeyPress(otpflow.KeyBackspace, focus)
		}
	default:
		// typed one key at a time so focus advances like on a keypad
		for _, r := range line {
			ctrl.ChangeDigit(string(r), ctrl.Focus())
		}
	}
	return false
}

// describe formats landing params with secrets shortened
func describe(params otpflow.Params) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := params[k]
		if strings.Contains(k, "token") && len(v) > 8 {
			v = v[:8] + "..."
		}
		if v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	return strings.Join(parts, " ")
}
