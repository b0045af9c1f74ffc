package install

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ZebulonRouseFrantzich/prokit/internal/config"
)

// ErrNoImporter is returned when a run needs the native importer but
// none is configured.
var ErrNoImporter = errors.New("no native package importer configured")

// ErrImportFailed wraps a failed native import.
var ErrImportFailed = errors.New("native package import failed")

// Importer installs a package through the host application's own
// import mechanism. Import must not return before the package file has
// been consumed; the caller deletes it right after.
type Importer interface {
	Import(ctx context.Context, packagePath string) error
}

// Placeholders expanded in CommandImporter arguments.
const (
	PlaceholderPackage = "{package}"
	PlaceholderProject = "{project}"
)

// CommandImporter runs an external command, for example the editor in
// batch mode with an import flag.
type CommandImporter struct {
	// Argv is the command template. "{package}" and "{project}" are
	// replaced in every argument.
	Argv       []string
	ProjectDir string
	Log        config.Logger
}

// NewCommandImporter builds an importer from the configured command template.
func NewCommandImporter(cfg *config.Config, log config.Logger) *CommandImporter {
	return &CommandImporter{
		Argv:       cfg.ImportCommand,
		ProjectDir: cfg.ProjectDir,
		Log:        config.LoggerOrNop(log),
	}
}

// Import runs the command and waits for it to exit.
func (c *CommandImporter) Import(ctx context.Context, packagePath string) error {
	if len(c.Argv) == 0 {
		return ErrNoImporter
	}

	args := c.expand(packagePath)
	log := config.LoggerOrNop(c.Log)
	log.Info("running native importer", "command", args[0], "package", packagePath)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = c.ProjectDir

	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return translateImportError(err, string(out))
	}

	log.Debug("native importer finished", "output", redactSensitiveInfo(string(out)))
	return nil
}

func (c *CommandImporter) expand(packagePath string) []string {
	r := strings.NewReplacer(PlaceholderPackage, packagePath, PlaceholderProject, c.ProjectDir)
	args := make([]string, len(c.Argv))
	for i, a := range c.Argv {
		args[i] = r.Replace(a)
	}
	return args
}

// translateImportError maps a failed command to ErrImportFailed with a
// short, redacted reason.
func translateImportError(err error, output string) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: cancelled: %w", ErrImportFailed, context.Canceled)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: timed out: %w", ErrImportFailed, context.DeadlineExceeded)
	}
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: command not found: %w", ErrImportFailed, err)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		detail := strings.TrimSpace(redactSensitiveInfo(output))
		if detail == "" {
			return fmt.Errorf("%w: exit status %d", ErrImportFailed, exitErr.ExitCode())
		}
		return fmt.Errorf("%w: exit status %d: %s", ErrImportFailed, exitErr.ExitCode(), detail)
	}

	return fmt.Errorf("%w: %w", ErrImportFailed, err)
}
