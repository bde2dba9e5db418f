package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sdejongh/duopane/pkg/config"
	"github.com/sdejongh/duopane/pkg/models"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/term"
)

var errNotInteractive = errors.Base("a conflict needs an answer but stdin is not a terminal (use --on-conflict)")

// prompter asks questions on the terminal
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

func newPrompter() *prompter {
	return &prompter{in: bufio.NewReader(os.Stdin), out: os.Stderr, fd: int(os.Stdin.Fd())}
}

func (p *prompter) interactive() bool {
	return term.IsTerminal(p.fd)
}

// conflictDecider returns the function answering conflicts. A fixed answer
// from --on-conflict or the config becomes sticky; otherwise each conflict
// is asked on the terminal. Without a terminal the operation is cancelled
// and *failed is set.
func conflictDecider(cfg *config.Config, flag string, p *prompter, failed *error) (func(models.Conflict) models.ConflictDecision, error) {
	if flag != "" {
		cfg.Operations.OnConflict = flag
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	if decision, ok := cfg.ConflictDecision(); ok {
		return func(models.Conflict) models.ConflictDecision { return decision }, nil
	}

	return func(c models.Conflict) models.ConflictDecision {
		if !p.interactive() {
			*failed = errors.WithStack(errNotInteractive)
			return models.DecisionCancel
		}
		return p.askConflict(c)
	}, nil
}

// askConflict loops until a valid answer is given
func (p *prompter) askConflict(c models.Conflict) models.ConflictDecision {
	for {
		fmt.Fprintf(p.out, "%s already exists.\n", c.Dest)
		fmt.Fprint(p.out, "[o]verwrite, overwrite [a]ll, [s]kip, skip a[l]l, [c]ancel? ")

		line, err := p.in.ReadString('\n')
		if err != nil {
			return models.DecisionCancel
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "o", "overwrite":
			return models.DecisionOverwrite
		case "a", "overwrite all":
			return models.DecisionOverwriteAll
		case "s", "skip":
			return models.DecisionSkip
		case "l", "skip all":
			return models.DecisionSkipAll
		case "c", "cancel":
			return models.DecisionCancel
		}
	}
}

// confirm asks a yes/no question, defaulting to no
func (p *prompter) confirm(question string) bool {
	if !p.interactive() {
		return false
	}
	fmt.Fprintf(p.out, "%s [y/N] ", question)
	line, err := p.in.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// password reads a password without echo
func (p *prompter) password(prompt string) (string, error) {
	if !p.interactive() {
		return "", errors.New("cannot prompt for a password: stdin is not a terminal")
	}
	fmt.Fprint(p.out, prompt)
	data, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", errors.Errorf("failed to read password: %w", err)
	}
	return string(data), nil
}

// resolvePassword returns the --password value, or prompts for it when asked
func resolvePassword(p *prompter, password string, ask bool) (string, error) {
	if !ask || password != "" {
		return password, nil
	}
	return p.password("Archive password: ")
}
