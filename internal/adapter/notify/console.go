package notify

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Console shows alerts as lines on a terminal and records them in the log.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	logger *zap.Logger
}

func NewConsole(out io.Writer, logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{out: out, logger: logger}
}

func (c *Console) Alert(title, message string) {
	c.logger.Warn("alert shown", zap.String("title", title), zap.String("message", message))
	c.write("!", title, message)
}

func (c *Console) Info(title, message string) {
	c.logger.Info("notice shown", zap.String("title", title), zap.String("message", message))
	c.write("i", title, message)
}

func (c *Console) write(mark, title, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[%s] %s: %s\n", mark, title, message)
}
