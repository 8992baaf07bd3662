package progress

import (
	"os"

	"github.com/schollz/progressbar/v3"
)

// CLIProgress renders a single progress bar on stderr.
type CLIProgress struct {
	bar *progressbar.ProgressBar
}

// NewCLIProgress creates a progress reporter for command-line use.
func NewCLIProgress() *CLIProgress {
	return &CLIProgress{}
}

func (c *CLIProgress) Start(total int64, description string) {
	c.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(65*1000*1000), // 65ms in ns
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			_, _ = os.Stderr.WriteString("\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
	)
}

func (c *CLIProgress) Update(current int64) {
	if c.bar != nil {
		_ = c.bar.Set64(current)
	}
}

func (c *CLIProgress) Finish() {
	if c.bar != nil {
		_ = c.bar.Finish()
	}
}

func (c *CLIProgress) Error(err error) {
	if c.bar != nil {
		_ = c.bar.Exit()
	}
}

func (c *CLIProgress) SetDescription(desc string) {
	if c.bar != nil {
		c.bar.Describe(desc)
	}
}
