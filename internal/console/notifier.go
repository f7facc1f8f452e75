package console

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/facto/facto/internal/logger"
)

// Notifier prints user-facing messages, one per line
type Notifier struct {
	mu     sync.Mutex
	out    io.Writer
	logger *logger.Logger
	next   int
}

func NewNotifier(out io.Writer, logger *logger.Logger) *Notifier {
	return &Notifier{out: out, logger: logger}
}

func (n *Notifier) Loading(msg string) string {
	n.mu.Lock()
	n.next++
	id := strconv.Itoa(n.next)
	n.mu.Unlock()

	n.print("…", msg)
	return id
}

func (n *Notifier) Success(msg string) { n.print("✓", msg) }
func (n *Notifier) Info(msg string)    { n.print("i", msg) }
func (n *Notifier) Error(msg string)   { n.print("✗", msg) }

// Dismiss is a no-op since printed lines cannot be taken back
func (n *Notifier) Dismiss(string) {}

func (n *Notifier) print(symbol, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := fmt.Fprintf(n.out, "%s %s\n", symbol, msg); err != nil {
		n.logger.Warnw("failed to print message", "error", err)
	}
}

// Navigator prints the address the user must open to continue
type Navigator struct {
	out io.Writer
}

func NewNavigator(out io.Writer) *Navigator {
	return &Navigator{out: out}
}

func (n *Navigator) Navigate(_ context.Context, target string) error {
	_, err := fmt.Fprintf(n.out, "Open this address to complete checkout:\n  %s\n", target)
	return err
}
