package extract

import (
	"context"

	"github.com/paperforge/paperforge/internal/execx"
)

// Runner lets us stub external commands in tests. Production code uses
// execx.ExecRunner.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

var _ Runner = execx.ExecRunner{}
